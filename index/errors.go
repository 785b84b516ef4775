package index

import "fmt"

// InvalidDateError 表示传入Merge的日期不是合法的YYYY-MM-DD字符串，属于调用方错误
type InvalidDateError struct {
	Date string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("index: invalid date %q, want YYYY-MM-DD", e.Date)
}

// CorruptStoreError 表示存储内容无法解析，或者是无法识别的结构
type CorruptStoreError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptStoreError) Error() string {
	msg := "index: corrupt store " + e.Path
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}

// PersistError 包装写盘过程中的底层I/O错误，出现该错误时原文件保持不变
type PersistError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("index: persist %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
