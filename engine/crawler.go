// Package engine 编排一次抓取运行：并发抓取各集合，再逐个集合单线程地加载、合并、落盘
package engine

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/index"
	"github.com/dszqbsm/stockdaily/spider"
	"go.uber.org/zap"
)

// IndexFile 是每个集合目录下的索引文件名
const IndexFile = "index.json"

// Mirror 接收合并后的分桶，例如写入数据库。镜像失败不影响JSON存储
type Mirror interface {
	Upsert(collection string, b *index.Bucket) error
}

type Crawler struct {
	options
}

func NewCrawler(opts ...Option) *Crawler {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Crawler{options: options}
}

// StorePath 返回集合索引文件的路径
func StorePath(outDir string, t *spider.Task) string {
	return filepath.Join(outDir, t.Dir, IndexFile)
}

/*
输入上下文、日期和任务列表，输出运行报告

先用工作池并发执行各任务的抓取，抓取失败只会让批次变小；全部抓取结束后，按任务顺序依次加载索引、合并、落盘。
某个集合的存储错误只终止该集合，其余集合照常处理
*/
func (c *Crawler) Run(ctx context.Context, date string, tasks ...*spider.Task) (Report, error) {
	report := Report{Date: date}
	if _, err := index.ParseDate(date); err != nil {
		return report, err
	}

	unlock, err := Lock(c.OutDir)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := unlock(); err != nil {
			c.Logger.Warn("release lock failed", zap.Error(err))
		}
	}()

	// 每个任务只写自己的下标，pool.Run返回后再读
	took := make([]time.Duration, len(tasks))
	jobs := make([]Job, len(tasks))
	for i, t := range tasks {
		i, t := i, t
		jobs[i] = Job{Key: t.Name, Do: func(ctx context.Context) (interface{}, error) {
			started := c.clock()
			defer func() { took[i] = c.clock().Sub(started) }()
			return t.Collect(ctx, date)
		}}
	}
	pool := NewPool(WithWorkCount(len(tasks)), WithLogger(c.Logger))
	results := pool.Run(ctx, jobs)

	for i, t := range tasks {
		batch, _ := results[i].Value.(*spider.Batch)
		if batch == nil {
			batch = &spider.Batch{}
		}
		if err := results[i].Err; err != nil {
			if !collect.IsFailure(err) {
				err = &collect.FetchFailure{Source: t.Name, Kind: collect.KindUpstream, Err: err}
			}
			batch.Fail(err)
		}
		started := c.clock()
		sr := c.store(t, date, batch)
		sr.Duration = took[i] + c.clock().Sub(started)
		report.Sources = append(report.Sources, sr)
	}
	return report, nil
}

// store 对单个集合执行 加载 -> 合并 -> 落盘 -> 镜像
func (c *Crawler) store(t *spider.Task, date string, batch *spider.Batch) SourceReport {
	logger := c.Logger.With(zap.String("collection", t.Name), zap.String("date", date))
	sr := SourceReport{
		Source:   t.Name,
		Records:  len(batch.Records),
		Failures: batch.Failures,
	}
	for _, f := range batch.Failures {
		logger.Warn("source failure", zap.Error(f))
	}

	st := index.NewFileStore(StorePath(c.OutDir, t), t.Name,
		index.WithLogger(logger), index.WithClock(c.clock))
	idx, err := st.Load()
	if err != nil {
		logger.Error("load index failed", zap.Error(err))
		sr.StoreErr = &StoreFailure{Collection: t.Name, Err: err}
		return sr
	}

	records := batch.Records
	if t.Reconcile != nil {
		var dropped []error
		records, dropped = t.Reconcile(idx.Bucket(date), records)
		for _, d := range dropped {
			logger.Info("record not merged", zap.Error(d))
		}
		sr.Failures = append(sr.Failures, dropped...)
	}

	rep, err := idx.Merge(date, records, t.Identity(date))
	sr.Merge = rep
	if err != nil {
		sr.StoreErr = &StoreFailure{Collection: t.Name, Err: err}
		return sr
	}
	if e := rep.Err(); e != nil {
		logger.Warn("records skipped", zap.Error(e))
	}

	if rep.Merged() == 0 && idx.Migrated == index.ShapeCurrent {
		logger.Info("nothing to merge, index untouched")
		return sr
	}
	if err := st.Persist(idx); err != nil {
		logger.Error("persist index failed", zap.Error(err))
		sr.StoreErr = &StoreFailure{Collection: t.Name, Err: err}
		return sr
	}

	if c.Mirror != nil && rep.Merged() > 0 {
		if err := c.Mirror.Upsert(t.Name, idx.Bucket(date)); err != nil {
			logger.Warn("mirror failed", zap.Error(err))
		} else {
			sr.Mirrored = true
		}
	}
	logger.Info("collection done",
		zap.Int("records", sr.Records),
		zap.Int("inserted", rep.Inserted),
		zap.Int("replaced", rep.Replaced),
		zap.Int("failures", len(sr.Failures)))
	return sr
}
