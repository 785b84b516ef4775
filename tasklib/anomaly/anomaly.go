// Package anomaly 抓取韭研公社的异动解析：当天涨停个股按题材归类，附带每只股票的异动说明
package anomaly

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/dszqbsm/stockdaily/market"
	"github.com/dszqbsm/stockdaily/spider"
	"go.uber.org/zap"
)

const (
	Name = "anomaly"
	Dir  = "analysis"

	tokenSalt = "Uu0KfOB8iUP69d3c:"
)

type actionInfo struct {
	Time    string `json:"time"`
	Expound string `json:"expound"`
}

type rawStock struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Article struct {
		ActionInfo actionInfo `json:"action_info"`
	} `json:"article"`
}

type rawCategory struct {
	Name   string     `json:"name"`
	Reason string     `json:"reason"`
	List   []rawStock `json:"list"`
}

type response struct {
	ErrCode string        `json:"errCode"`
	Msg     string        `json:"msg"`
	Data    []rawCategory `json:"data"`
}

type Stock struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	LimitTime string `json:"limit_time"`
	Analysis  string `json:"analysis"`
}

type Category struct {
	Name   string  `json:"name"`
	Reason string  `json:"reason"`
	Stocks []Stock `json:"stocks"`
}

// Report 是某个交易日的异动解析
type Report struct {
	Date          string     `json:"date"`
	UpdateTime    string     `json:"update_time"`
	CategoryCount int        `json:"category_count"`
	TotalStocks   int        `json:"total_stocks"`
	Categories    []Category `json:"categories"`
}

type Source struct {
	cfg     conf.AnomalyConfig
	fetcher collect.Fetcher
	logger  *zap.Logger
	now     func() time.Time
}

func NewSource(cfg conf.AnomalyConfig, f collect.Fetcher, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{cfg: cfg, fetcher: f, logger: logger, now: time.Now}
}

func New(cfg conf.AnomalyConfig, f collect.Fetcher, logger *zap.Logger) (*spider.Task, error) {
	s := NewSource(cfg, f, logger)
	return spider.NewTask(
		spider.WithName(Name),
		spider.WithTitle("异动解析"),
		spider.WithDir(Dir),
		spider.WithIdentity(spider.DateIdentity),
		spider.WithView(spider.SingleView),
		spider.WithCollector(s.Collect),
		spider.WithLogger(s.logger),
	)
}

// Token 是接口要求的请求头，由毫秒时间戳加盐后取md5
func Token(timestamp string) string {
	sum := md5.Sum([]byte(tokenSalt + timestamp))
	return hex.EncodeToString(sum[:])
}

func (s *Source) Collect(ctx context.Context, date string) (*spider.Batch, error) {
	body, err := json.Marshal(map[string]interface{}{"date": date, "pc": 1})
	if err != nil {
		return nil, err
	}
	now := s.now()
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	req := &collect.Request{
		Source:  Name,
		URL:     s.cfg.URL,
		Method:  http.MethodPost,
		Body:    body,
		Timeout: time.Duration(s.cfg.Timeout) * time.Millisecond,
		Header: http.Header{
			"Content-Type": {"application/json"},
			"Origin":       {"https://www.jiuyangongshe.com"},
			"Referer":      {"https://www.jiuyangongshe.com/"},
			"Platform":     {"3"},
			"Timestamp":    {ts},
			"Token":        {Token(ts)},
		},
	}
	var resp response
	if err := collect.GetJSON(ctx, s.fetcher, req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrCode != "" && resp.ErrCode != "0" {
		return nil, collect.Fail(Name, collect.KindUpstream, "errCode %s: %s", resp.ErrCode, resp.Msg)
	}

	report := build(date, now, resp.Data)
	if report.TotalStocks == 0 {
		return nil, collect.Fail(Name, collect.KindNotFound, "no anomaly analysis on %s", date)
	}
	s.logger.Info("anomaly analysis fetched",
		zap.String("date", date),
		zap.Int("categories", report.CategoryCount),
		zap.Int("stocks", report.TotalStocks))

	batch := &spider.Batch{}
	if err := batch.Add(report); err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "convert report: %w", err)
	}
	return batch, nil
}

// build 整理分类，没有股票的分类（如页面顶部的汇总项）不输出
func build(date string, now time.Time, data []rawCategory) Report {
	r := Report{
		Date:       date,
		UpdateTime: now.In(market.Shanghai).Format("2006-01-02 15:04:05"),
		Categories: []Category{},
	}
	for _, c := range data {
		if len(c.List) == 0 {
			continue
		}
		cat := Category{Name: strings.TrimSpace(c.Name), Reason: strings.TrimSpace(c.Reason)}
		for _, st := range c.List {
			cat.Stocks = append(cat.Stocks, Stock{
				Code:      st.Code,
				Name:      strings.TrimSpace(st.Name),
				LimitTime: st.Article.ActionInfo.Time,
				Analysis:  strings.TrimSpace(st.Article.ActionInfo.Expound),
			})
		}
		r.Categories = append(r.Categories, cat)
		r.TotalStocks += len(cat.Stocks)
	}
	r.CategoryCount = len(r.Categories)
	return r
}
