// Package limitup 抓取财联社的涨停池，每个交易日一条记录
package limitup

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/dszqbsm/stockdaily/market"
	"github.com/dszqbsm/stockdaily/spider"
	"go.uber.org/zap"
)

const (
	Name = "limitup"
	Dir  = "data"
)

// 请求参数固定，签名也随之固定，但上游会校验
var baseParams = url.Values{
	"app":   {"CailianpressWeb"},
	"os":    {"web"},
	"rever": {"1"},
	"sv":    {"8.4.6"},
	"type":  {"up_pool"},
	"way":   {"last_px"},
}

type plate struct {
	Name string `json:"secu_name"`
}

type item struct {
	Code     string         `json:"secu_code"`
	Name     string         `json:"secu_name"`
	Change   collect.Number `json:"change"`
	LastPx   collect.Number `json:"last_px"`
	Time     string         `json:"time"`
	UpReason string         `json:"up_reason"`
	Plate    []plate        `json:"plate"`
}

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data []item `json:"data"`
}

type Stock struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	ChangePercent string  `json:"change_percent"`
	Price         float64 `json:"price"`
	LimitUpTime   string  `json:"limit_up_time"`
	Reason        string  `json:"reason"`
	Plates        string  `json:"plates"`
}

// Pool 是某个交易日的涨停池
type Pool struct {
	Date       string  `json:"date"`
	UpdateTime string  `json:"update_time"`
	Count      int     `json:"count"`
	Stocks     []Stock `json:"stocks"`
}

type Source struct {
	cfg     conf.LimitUpConfig
	fetcher collect.Fetcher
	logger  *zap.Logger
	now     func() time.Time
}

func NewSource(cfg conf.LimitUpConfig, f collect.Fetcher, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{cfg: cfg, fetcher: f, logger: logger, now: time.Now}
}

// New 返回涨停池任务
func New(cfg conf.LimitUpConfig, f collect.Fetcher, logger *zap.Logger) (*spider.Task, error) {
	s := NewSource(cfg, f, logger)
	return spider.NewTask(
		spider.WithName(Name),
		spider.WithTitle("涨停池"),
		spider.WithDir(Dir),
		spider.WithIdentity(spider.DateIdentity),
		spider.WithView(spider.SingleView),
		spider.WithCollector(s.Collect),
		spider.WithLogger(s.logger),
	)
}

// Sign 对按键排序后的查询串先做sha1，再对十六进制结果做md5
func Sign(params url.Values) string {
	h := sha1.Sum([]byte(params.Encode()))
	m := md5.Sum([]byte(hex.EncodeToString(h[:])))
	return hex.EncodeToString(m[:])
}

/*
输入日期，输出包含一条涨停池记录的批次

接口只提供最近一个交易日的涨停池，请求其他日期时返回not_found，避免把当天的数据写到别的日期下
*/
func (s *Source) Collect(ctx context.Context, date string) (*spider.Batch, error) {
	now := s.now().In(market.Shanghai)
	if latest := market.LatestTradingDate(now); latest != date {
		return nil, collect.Fail(Name, collect.KindNotFound, "up pool only serves %s, not %s", latest, date)
	}

	query := url.Values{}
	for k, v := range baseParams {
		query[k] = v
	}
	query.Set("sign", Sign(baseParams))

	req := &collect.Request{
		Source:  Name,
		URL:     s.cfg.URL,
		Query:   query,
		Timeout: time.Duration(s.cfg.Timeout) * time.Millisecond,
		Header: http.Header{
			"Origin":  {"https://www.cls.cn"},
			"Referer": {"https://www.cls.cn/"},
		},
	}
	var resp response
	if err := collect.GetJSON(ctx, s.fetcher, req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 200 {
		return nil, collect.Fail(Name, collect.KindUpstream, "code %d: %s", resp.Code, resp.Msg)
	}

	pool := build(date, now, resp.Data)
	s.logger.Info("limit up pool fetched", zap.String("date", date), zap.Int("count", pool.Count))

	batch := &spider.Batch{}
	if err := batch.Add(pool); err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "convert pool: %w", err)
	}
	return batch, nil
}

// build 把接口返回的条目整理为涨停池记录
func build(date string, now time.Time, items []item) Pool {
	pool := Pool{
		Date:       date,
		UpdateTime: now.In(market.Shanghai).Format("2006-01-02 15:04:05"),
		Stocks:     make([]Stock, 0, len(items)),
	}
	for _, it := range items {
		names := make([]string, 0, len(it.Plate))
		for _, p := range it.Plate {
			if p.Name != "" {
				names = append(names, p.Name)
			}
		}
		pool.Stocks = append(pool.Stocks, Stock{
			Code:          market.ConvertStockCode(it.Code),
			Name:          strings.TrimSpace(it.Name),
			ChangePercent: fmt.Sprintf("%.2f%%", it.Change.Float()*100),
			Price:         it.LastPx.Float(),
			LimitUpTime:   it.Time,
			Reason:        it.UpReason,
			Plates:        strings.Join(names, "|"),
		})
	}
	pool.Count = len(pool.Stocks)
	return pool
}
