// Package ztts 抓取大智慧涨停透视：页面上的情绪指标由浏览器读取，涨停梯队来自接口，按月份目录保存报告
package ztts

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/dszqbsm/stockdaily/market"
	"github.com/dszqbsm/stockdaily/spider"
	"go.uber.org/zap"
)

const (
	Name = "ztts"
	Dir  = "dzh_ztts"
)

type Source struct {
	cfg     conf.ZttsConfig
	outDir  string
	fetcher collect.Fetcher
	dash    Dashboard
	logger  *zap.Logger
	now     func() time.Time
}

func NewSource(cfg conf.ZttsConfig, outDir string, f collect.Fetcher, dash Dashboard, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dash == nil {
		dash = NewRodDashboard(cfg, logger)
	}
	return &Source{cfg: cfg, outDir: outDir, fetcher: f, dash: dash, logger: logger, now: time.Now}
}

// New 返回涨停透视任务，视图文件按 YYYY-MM 子目录存放
func New(cfg conf.ZttsConfig, outDir string, f collect.Fetcher, logger *zap.Logger) (*spider.Task, error) {
	s := NewSource(cfg, outDir, f, nil, logger)
	return spider.NewTask(
		spider.WithName(Name),
		spider.WithTitle("涨停透视"),
		spider.WithDir(Dir),
		spider.WithIdentity(spider.DateIdentity),
		spider.WithView(spider.SingleView),
		spider.WithMonths(true),
		spider.WithSummary(Summary),
		spider.WithCollector(s.Collect),
		spider.WithLogger(s.logger),
	)
}

/*
输入日期，输出当天的涨停透视报告

页面数据是报告的主体，取不到时整个来源失败；涨停梯队接口失败只记入Failures，报告中梯队为空
*/
func (s *Source) Collect(ctx context.Context, date string) (*spider.Batch, error) {
	snap, err := s.dash.Snapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	if snap.Date != "" && snap.Date != market.Compact(date) {
		return nil, collect.Fail(Name, collect.KindNotFound, "dashboard shows %s, want %s", snap.Date, date)
	}

	batch := &spider.Batch{}
	ladder, err := s.ladder(ctx, date)
	if err != nil {
		s.logger.Warn("ladder not collected", zap.String("date", date), zap.Error(err))
		batch.Fail(err)
	}

	now := s.now()
	report := buildReport(date, now, snap, ladder)

	month := market.Month(date)
	rel := path.Join(Dir, month, date+".txt")
	file := filepath.Join(s.outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("ztts: %w", err)
	}
	if err := os.WriteFile(file, []byte(report.Text(now)), 0o644); err != nil {
		return nil, fmt.Errorf("ztts: write report: %w", err)
	}
	report.Files = map[string]string{
		"json": path.Join(Dir, month, date+".json"),
		"txt":  rel,
	}

	if err := batch.Add(report); err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "convert report: %w", err)
	}
	s.logger.Info("ztts report collected",
		zap.String("date", date),
		zap.Int("boards", len(report.Boards)),
		zap.String("analysis", report.Analysis.Origin))
	return batch, nil
}
