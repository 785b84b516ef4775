// Package boot 是各个子命令共用的启动过程：加载配置、初始化日志、组装Fetcher和任务表
package boot

import (
	"fmt"
	"io"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/dszqbsm/stockdaily/limiter"
	"github.com/dszqbsm/stockdaily/log"
	"github.com/dszqbsm/stockdaily/proxy"
	"github.com/dszqbsm/stockdaily/spider"
	"github.com/dszqbsm/stockdaily/tasklib"
	"go.uber.org/zap"
)

type Env struct {
	Cfg    conf.Config
	Logger *zap.Logger
	closer io.Closer
}

/*
输入配置文件路径和命令行指定的输出目录，输出运行环境

outDir非空时覆盖配置文件中的outDir。日志初始化完成后替换zap的全局logger
*/
func Setup(configPath, outDir string) (*Env, error) {
	cfg, err := conf.Load(configPath)
	if err != nil {
		return nil, err
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}

	logger, closer, err := log.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("init log: %w", err)
	}
	zap.ReplaceGlobals(logger)
	logger.Info("log init end", zap.String("config", configPath), zap.String("outDir", cfg.OutDir))

	return &Env{Cfg: cfg, Logger: logger, closer: closer}, nil
}

// Close 刷新日志并关闭日志文件
func (e *Env) Close() error {
	_ = e.Logger.Sync()
	return e.closer.Close()
}

// Fetcher 按 [fetcher] 和 [[limits]] 配置组装所有来源共用的HTTP采集器
func (e *Env) Fetcher() (collect.Fetcher, error) {
	fc := e.Cfg.Fetcher
	e.Logger.Sugar().Info("proxy list: ", fc.Proxy, " timeout: ", fc.Timeout)

	opts := []collect.Option{
		collect.WithLogger(e.Logger.Named("fetcher")),
		collect.WithTimeout(time.Duration(fc.Timeout) * time.Millisecond),
		collect.WithWaitTime(time.Duration(fc.WaitTime) * time.Millisecond),
		collect.WithUserAgent(fc.UserAgent),
	}
	if len(fc.Proxy) > 0 {
		p, err := proxy.RoundRobinProxySwitcher(fc.Proxy...)
		if err != nil {
			return nil, fmt.Errorf("proxy: %w", err)
		}
		opts = append(opts, collect.WithProxy(p))
	}
	l, err := limiter.FromConfig(e.Cfg.Limits)
	if err != nil {
		return nil, err
	}
	opts = append(opts, collect.WithLimit(l))
	return collect.NewHTTPFetch(opts...), nil
}

// Tasks 返回登记了全部集合的任务表
func (e *Env) Tasks(f collect.Fetcher) (*spider.TaskStore, error) {
	return tasklib.NewStore(e.Cfg, f, e.Logger)
}
