package engine

import (
	"time"

	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	WorkCount int           // 并发数
	Delay     time.Duration // 同一个worker两次任务之间的间隔
	OutDir    string        // 所有集合存储目录的根
	Mirror    Mirror        // 可选的数据库镜像
	Logger    *zap.Logger
	clock     func() time.Time
}

var defaultOptions = options{
	WorkCount: 1,
	OutDir:    ".",
	Logger:    zap.NewNop(),
	clock:     time.Now,
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithWorkCount(workCount int) Option {
	return func(opts *options) {
		opts.WorkCount = workCount
	}
}

func WithDelay(delay time.Duration) Option {
	return func(opts *options) {
		opts.Delay = delay
	}
}

func WithOutDir(dir string) Option {
	return func(opts *options) {
		opts.OutDir = dir
	}
}

func WithMirror(m Mirror) Option {
	return func(opts *options) {
		opts.Mirror = m
	}
}

func WithClock(clock func() time.Time) Option {
	return func(opts *options) {
		opts.clock = clock
	}
}
