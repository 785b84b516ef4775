// Package spider 定义一个数据集合的抓取任务：从哪里取、存到哪个目录、用什么身份键去重、站点上如何展示
package spider

import (
	"context"
	"errors"

	"github.com/dszqbsm/stockdaily/index"
	"go.uber.org/zap"
)

// Batch 是一个任务对某一天的抓取结果。Failures里的错误只代表缺失的记录，不会中止合并
type Batch struct {
	Records  []index.Record
	Failures []error
}

// Add 追加一条记录，值会先转换为通用的Record结构
func (b *Batch) Add(v interface{}) error {
	r, err := index.NewRecord(v)
	if err != nil {
		return err
	}
	b.Records = append(b.Records, r)
	return nil
}

func (b *Batch) Fail(err error) {
	if err != nil {
		b.Failures = append(b.Failures, err)
	}
}

// Collector 抓取指定日期的数据。返回的error表示整个来源失败，等价于一个空批次
type Collector func(ctx context.Context, date string) (*Batch, error)

// Reconciler 在合并前根据已存储的分桶调整批次，返回需要合并的记录和被丢弃记录的原因
type Reconciler func(prev *index.Bucket, records []index.Record) ([]index.Record, []error)

// IdentityFactory 根据日期生成身份键函数，单条/天的集合以日期本身为身份键
type IdentityFactory func(date string) index.IdentityFunc

// DateIdentity 每天只有一条记录
func DateIdentity(date string) index.IdentityFunc {
	return index.ByDate(date)
}

// FieldIdentity 以记录中的某个字段为身份键
func FieldIdentity(field string) IdentityFactory {
	return func(string) index.IdentityFunc {
		return index.ByField(field)
	}
}

type Task struct {
	Options
}

/*
输入若干配置，输出一个任务

名称、目录和抓取函数是必需的，缺少时返回错误
*/
func NewTask(opts ...Option) (*Task, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Name == "" {
		return nil, errors.New("spider: task name is empty")
	}
	if options.Dir == "" {
		options.Dir = options.Name
	}
	if options.Collect == nil {
		return nil, errors.New("spider: task " + options.Name + " has no collector")
	}
	return &Task{Options: options}, nil
}

func (t *Task) Logger() *zap.Logger {
	return t.logger
}

type Options struct {
	Name      string // 集合名称，也是命令行参数
	Title     string // 站点上显示的中文名
	Dir       string // 相对输出目录的存储目录
	Identity  IdentityFactory
	Collect   Collector
	Reconcile Reconciler
	View      View
	// Summary 非空时站点额外输出 summary.json，按日期汇总每个分桶
	Summary View

	// Months 为true时站点视图文件按 YYYY-MM 子目录存放
	Months bool
	logger *zap.Logger
}

var defaultOptions = Options{
	Identity: DateIdentity,
	View:     SingleView,
	logger:   zap.NewNop(),
}

type Option func(opts *Options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

func WithName(name string) Option {
	return func(opts *Options) {
		opts.Name = name
	}
}

func WithTitle(title string) Option {
	return func(opts *Options) {
		opts.Title = title
	}
}

func WithDir(dir string) Option {
	return func(opts *Options) {
		opts.Dir = dir
	}
}

func WithIdentity(f IdentityFactory) Option {
	return func(opts *Options) {
		opts.Identity = f
	}
}

func WithCollector(c Collector) Option {
	return func(opts *Options) {
		opts.Collect = c
	}
}

func WithReconciler(r Reconciler) Option {
	return func(opts *Options) {
		opts.Reconcile = r
	}
}

func WithView(v View) Option {
	return func(opts *Options) {
		opts.View = v
	}
}

func WithMonths(months bool) Option {
	return func(opts *Options) {
		opts.Months = months
	}
}

func WithSummary(v View) Option {
	return func(opts *Options) {
		opts.Summary = v
	}
}
