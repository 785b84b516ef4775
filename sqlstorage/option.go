package sqlstorage

import (
	"go.uber.org/zap"
)

type options struct {
	logger      *zap.Logger
	sqlURL      string
	BatchCount  int    // 每条REPLACE语句最多包含的行数
	TablePrefix string
}

var defaultOptions = options{
	logger:      zap.NewNop(),
	BatchCount:  50,
	TablePrefix: "stockdaily_",
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithSQLURL(sqlURL string) Option {
	return func(opts *options) {
		opts.sqlURL = sqlURL
	}
}

func WithBatchCount(batchCount int) Option {
	return func(opts *options) {
		opts.BatchCount = batchCount
	}
}

func WithTablePrefix(prefix string) Option {
	return func(opts *options) {
		opts.TablePrefix = prefix
	}
}
