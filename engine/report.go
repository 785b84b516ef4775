package engine

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/index"
	"go.uber.org/multierr"
)

type panicError struct {
	key   string
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("job %s panic: %v", e.key, e.value)
}

// StoreFailure 表示集合的索引无法读取或写入，这类错误需要人工处理，与上游波动区分开
type StoreFailure struct {
	Collection string
	Err        error
}

func (e *StoreFailure) Error() string {
	return fmt.Sprintf("store %s: %v", e.Collection, e.Err)
}

func (e *StoreFailure) Unwrap() error {
	return e.Err
}

// SourceReport 是一个集合在一次运行中的结果
type SourceReport struct {
	Source   string
	Records  int // 抓取到的记录数
	Merge    index.MergeReport
	Failures []error // 抓取失败和合并前被丢弃的记录
	StoreErr error
	Mirrored bool
	Duration time.Duration // 本集合抓取和落盘的耗时，不含其他集合
}

// OK 没有任何抓取失败，且存储正常
func (s SourceReport) OK() bool {
	return len(s.Failures) == 0 && s.StoreErr == nil && len(s.Merge.Skipped) == 0
}

func (s SourceReport) status() string {
	switch {
	case s.StoreErr != nil:
		return "store-failed"
	case s.OK():
		return "ok"
	case s.Merge.Merged() > 0:
		return "partial"
	default:
		return "failed"
	}
}

type Report struct {
	Date    string
	Sources []SourceReport
}

// StoreFailed 是否有集合的存储出错，命令行据此决定退出码
func (r Report) StoreFailed() bool {
	for _, s := range r.Sources {
		if s.StoreErr != nil {
			return true
		}
	}
	return false
}

// Err 汇总所有存储错误
func (r Report) Err() error {
	var err error
	for _, s := range r.Sources {
		if s.StoreErr != nil {
			err = multierr.Append(err, s.StoreErr)
		}
	}
	return err
}

/*
输入输出目标，输出每个来源一行的运行报告

格式：来源  状态  抓取数  新增  替换  失败原因
*/
func (r Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "date %s\n", r.Date)
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tRECORDS\tINSERTED\tREPLACED\tDETAIL")
	for _, s := range r.Sources {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			s.Source, s.status(), s.Records, s.Merge.Inserted, s.Merge.Replaced, s.detail())
	}
	return tw.Flush()
}

func (s SourceReport) detail() string {
	if s.StoreErr != nil {
		return "index unreadable/unwritable: " + s.StoreErr.Error()
	}
	errs := append([]error{}, s.Failures...)
	if e := s.Merge.Err(); e != nil {
		errs = append(errs, multierr.Errors(e)...)
	}
	if len(errs) == 0 {
		return "-"
	}
	kinds := ""
	for i, e := range errs {
		if i == 3 {
			kinds += fmt.Sprintf(" (+%d more)", len(errs)-3)
			break
		}
		if i > 0 {
			kinds += "; "
		}
		if k := collect.KindOf(e); k != "" {
			kinds += string(k) + ": "
		}
		kinds += rootCause(e).Error()
	}
	return kinds
}

func rootCause(err error) error {
	var f *collect.FetchFailure
	if errors.As(err, &f) && f.Err != nil {
		return f.Err
	}
	return err
}
