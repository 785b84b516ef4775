package limiter

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter 统一单个限速器和组合限速器的行为
type RateLimiter interface {
	Wait(context.Context) error // 阻塞直到拿到令牌或ctx结束
	Limit() rate.Limit
}

// Multi 组合多个限速器，按速率从慢到快排序，等待时依次通过每一个
func Multi(limiters ...RateLimiter) *multiLimiter {
	sort.Slice(limiters, func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	})
	return &multiLimiter{limiters: limiters}
}

type multiLimiter struct {
	limiters []RateLimiter
}

func (l *multiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Limit 返回最严格的那个速率
func (l *multiLimiter) Limit() rate.Limit {
	if len(l.limiters) == 0 {
		return rate.Inf
	}
	return l.limiters[0].Limit()
}

// Per 表示 duration 内最多 eventCount 次
func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}

// Config 对应配置文件中 [[limits]] 的一项
type Config struct {
	EventCount int `json:"eventCount"`
	EventDur   int `json:"eventDur"` // 秒
	Bucket     int `json:"bucket"`
}

/*
输入配置中的限速规则列表，输出组合限速器

例如 {eventCount=1, eventDur=2} 和 {eventCount=20, eventDur=60} 同时生效：每2秒一次，且每分钟不超过20次。
列表为空时不限速
*/
func FromConfig(cfgs []Config) (RateLimiter, error) {
	if len(cfgs) == 0 {
		return rate.NewLimiter(rate.Inf, 1), nil
	}
	ls := make([]RateLimiter, 0, len(cfgs))
	for _, c := range cfgs {
		if c.EventCount <= 0 || c.EventDur <= 0 {
			return nil, errors.New("limiter: eventCount and eventDur must be positive")
		}
		bucket := c.Bucket
		if bucket <= 0 {
			bucket = 1
		}
		ls = append(ls, rate.NewLimiter(Per(c.EventCount, time.Duration(c.EventDur)*time.Second), bucket))
	}
	return Multi(ls...), nil
}
