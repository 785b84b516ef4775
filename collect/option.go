package collect

import (
	"time"

	"github.com/dszqbsm/stockdaily/limiter"
	"github.com/dszqbsm/stockdaily/proxy"
	"go.uber.org/zap"
)

type options struct {
	logger    *zap.Logger
	timeout   time.Duration
	waitTime  time.Duration
	proxy     proxy.ProxyFunc
	limit     limiter.RateLimiter
	userAgent string
}

var defaultOptions = options{
	logger:  zap.NewNop(),
	timeout: 15 * time.Second,
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		// 非正值会让每个请求立即超时，保留默认值
		if timeout > 0 {
			opts.timeout = timeout
		}
	}
}

// WithWaitTime 每次请求前随机休眠[0, waitTime)
func WithWaitTime(waitTime time.Duration) Option {
	return func(opts *options) {
		opts.waitTime = waitTime
	}
}

func WithProxy(p proxy.ProxyFunc) Option {
	return func(opts *options) {
		opts.proxy = p
	}
}

func WithLimit(l limiter.RateLimiter) Option {
	return func(opts *options) {
		opts.limit = l
	}
}

// WithUserAgent 固定User-Agent，不设置时每次随机
func WithUserAgent(ua string) Option {
	return func(opts *options) {
		opts.userAgent = ua
	}
}
