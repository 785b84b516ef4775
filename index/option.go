package index

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	logger *zap.Logger
	clock  func() time.Time
}

var defaultOptions = options{
	logger: zap.NewNop(),
	clock:  time.Now,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithClock 替换updated_at使用的时钟，测试中用于得到确定的时间
func WithClock(clock func() time.Time) Option {
	return func(opts *options) {
		opts.clock = clock
	}
}
