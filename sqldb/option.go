package sqldb

import (
	"go.uber.org/zap"
)

type options struct {
	logger       *zap.Logger
	sqlURL       string
	maxOpenConns int
}

var defaultOptions = options{
	logger:       zap.NewNop(),
	maxOpenConns: 4,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// WithConnURL 设置DSN，例如 root:123456@tcp(127.0.0.1:3306)/stockdaily?charset=utf8mb4&parseTime=true
func WithConnURL(sqlURL string) Option {
	return func(opts *options) {
		opts.sqlURL = sqlURL
	}
}

func WithMaxOpenConns(n int) Option {
	return func(opts *options) {
		opts.maxOpenConns = n
	}
}
