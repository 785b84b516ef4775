package collect

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind 区分抓取失败的原因，决定日志级别和运行报告里的描述
type FailureKind string

const (
	KindNetwork  FailureKind = "network"
	KindTimeout  FailureKind = "timeout"
	KindStatus   FailureKind = "status"
	KindShape    FailureKind = "shape"
	KindUpstream FailureKind = "upstream"
	KindNotFound FailureKind = "not_found"
)

// FetchFailure 表示某个来源在本次运行中没有产出记录。它只会让批次变小，不会中止运行
type FetchFailure struct {
	Source string
	Kind   FailureKind
	Err    error
}

func (f *FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", f.Source, f.Kind, f.Err)
}

func (f *FetchFailure) Unwrap() error {
	return f.Err
}

// Fail 构造一个FetchFailure
func Fail(source string, kind FailureKind, format string, args ...interface{}) *FetchFailure {
	return &FetchFailure{Source: source, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// IsFailure 判断err链上是否有FetchFailure
func IsFailure(err error) bool {
	var f *FetchFailure
	return errors.As(err, &f)
}

// KindOf 返回err对应的失败类型，不是FetchFailure时返回空
func KindOf(err error) FailureKind {
	var f *FetchFailure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// classify 把底层的网络错误归类为timeout或network
func classify(source string, err error) *FetchFailure {
	var f *FetchFailure
	if errors.As(err, &f) {
		return f
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &FetchFailure{Source: source, Kind: KindTimeout, Err: err}
	}
	return &FetchFailure{Source: source, Kind: KindNetwork, Err: err}
}
