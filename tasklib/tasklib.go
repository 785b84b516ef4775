// Package tasklib 根据配置构建全部集合的抓取任务
package tasklib

import (
	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/dszqbsm/stockdaily/spider"
	"github.com/dszqbsm/stockdaily/tasklib/anomaly"
	"github.com/dszqbsm/stockdaily/tasklib/dragontiger"
	"github.com/dszqbsm/stockdaily/tasklib/jiuyan"
	"github.com/dszqbsm/stockdaily/tasklib/limitup"
	"github.com/dszqbsm/stockdaily/tasklib/ztts"
	"go.uber.org/zap"
)

/*
输入配置、共享的Fetcher和日志，输出登记了全部任务的任务表

登记顺序即站点首页的展示顺序
*/
func NewStore(cfg conf.Config, f collect.Fetcher, logger *zap.Logger) (*spider.TaskStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	builders := []func() (*spider.Task, error){
		func() (*spider.Task, error) {
			return limitup.New(cfg.Sources.LimitUp, f, logger.Named(limitup.Name))
		},
		func() (*spider.Task, error) {
			return jiuyan.New(cfg.Articles, cfg.OutDir, f, logger.Named(jiuyan.Name))
		},
		func() (*spider.Task, error) {
			return anomaly.New(cfg.Sources.Anomaly, f, logger.Named(anomaly.Name))
		},
		func() (*spider.Task, error) {
			return dragontiger.New(cfg.Sources.DragonTiger, f, logger.Named(dragontiger.Name))
		},
		func() (*spider.Task, error) {
			return ztts.New(cfg.Sources.Ztts, cfg.OutDir, f, logger.Named(ztts.Name))
		},
	}

	store := spider.NewTaskStore()
	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, err
		}
		if err := store.Add(t); err != nil {
			return nil, err
		}
	}
	return store, nil
}
