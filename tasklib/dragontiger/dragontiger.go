// Package dragontiger 抓取东方财富的龙虎榜：先取当天上榜个股，再由工作池逐只查询买卖席位
package dragontiger

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/dszqbsm/stockdaily/engine"
	"github.com/dszqbsm/stockdaily/spider"
	"go.uber.org/zap"
)

const (
	Name = "dragontiger"
	Dir  = "dragon_tiger"

	StatusSuccess = "success"
	StatusFailed  = "failed"

	reportOverview = "RPT_DAILYBILLBOARD_DETAILSNEW"
	reportBuy      = "RPT_BILLBOARD_DAILYDETAILSBUY"
	reportSell     = "RPT_BILLBOARD_DAILYDETAILSSELL"

	// 接口金额单位为元，记录中统一为万元
	tenThousand = 10000
)

type Source struct {
	cfg     conf.DragonTigerConfig
	fetcher collect.Fetcher
	logger  *zap.Logger
}

func NewSource(cfg conf.DragonTigerConfig, f collect.Fetcher, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{cfg: cfg, fetcher: f, logger: logger}
}

// New 返回龙虎榜任务，同一天内以股票代码为身份键
func New(cfg conf.DragonTigerConfig, f collect.Fetcher, logger *zap.Logger) (*spider.Task, error) {
	s := NewSource(cfg, f, logger)
	return spider.NewTask(
		spider.WithName(Name),
		spider.WithTitle("龙虎榜"),
		spider.WithDir(Dir),
		spider.WithIdentity(spider.FieldIdentity("code")),
		spider.WithView(spider.MapView("details")),
		spider.WithCollector(s.Collect),
		spider.WithReconciler(Reconcile),
		spider.WithLogger(s.logger),
	)
}

/*
输入日期，输出当天每只上榜股票的明细

上榜列表取不到时整个来源失败；单只股票的席位查询失败时记录为status=failed，同时记入Failures
*/
func (s *Source) Collect(ctx context.Context, date string) (*spider.Batch, error) {
	entries, err := s.overview(ctx, date)
	if err != nil {
		return nil, err
	}
	s.logger.Info("dragon tiger list fetched", zap.String("date", date), zap.Int("stocks", len(entries)))

	jobs := make([]engine.Job, len(entries))
	for i, e := range entries {
		e := e
		jobs[i] = engine.Job{Key: e.Code, Do: func(ctx context.Context) (interface{}, error) {
			return s.detail(ctx, date, e)
		}}
	}
	pool := engine.NewPool(
		engine.WithWorkCount(s.cfg.Workers),
		engine.WithDelay(time.Duration(s.cfg.Delay)*time.Millisecond),
		engine.WithLogger(s.logger),
	)
	results := pool.Run(ctx, jobs)

	batch := &spider.Batch{}
	for i, r := range results {
		d, _ := r.Value.(*Detail)
		if r.Err != nil || d == nil {
			err := r.Err
			if !collect.IsFailure(err) {
				err = collect.Fail(Name, collect.KindUpstream, "%s: %v", entries[i].Code, err)
			}
			batch.Fail(err)
			d = failedDetail(entries[i], err)
		}
		if err := batch.Add(d); err != nil {
			batch.Fail(collect.Fail(Name, collect.KindShape, "%s: %w", entries[i].Code, err))
		}
	}
	return batch, nil
}

type apiResult struct {
	Pages int   `json:"pages"`
	Count int   `json:"count"`
	Data  []row `json:"data"`
}

type apiResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Code    int        `json:"code"`
	Result  *apiResult `json:"result"`
}

// row 覆盖三个报表用到的全部字段
type row struct {
	SecurityCode string         `json:"SECURITY_CODE"`
	SecurityName string         `json:"SECURITY_NAME_ABBR"`
	ClosePrice   collect.Number `json:"CLOSE_PRICE"`
	ChangeRate   collect.Number `json:"CHANGE_RATE"`
	Explanation  string         `json:"EXPLANATION"`
	NetAmt       collect.Number `json:"BILLBOARD_NET_AMT"`
	BuyAmt       collect.Number `json:"BILLBOARD_BUY_AMT"`
	SellAmt      collect.Number `json:"BILLBOARD_SELL_AMT"`
	DealAmt      collect.Number `json:"BILLBOARD_DEAL_AMT"`
	Turnover     collect.Number `json:"TURNOVERRATE"`

	DeptName  string         `json:"OPERATEDEPT_NAME"`
	Buy       collect.Number `json:"BUY"`
	Sell      collect.Number `json:"SELL"`
	BuyRatio  collect.Number `json:"TOTAL_BUYRIO"`
	SellRatio collect.Number `json:"TOTAL_SELLRIO"`
}

func (s *Source) query(ctx context.Context, q url.Values) ([]row, error) {
	rows, _, err := s.queryPage(ctx, q)
	return rows, err
}

// queryPage 返回一页数据和报表的总页数
func (s *Source) queryPage(ctx context.Context, q url.Values) ([]row, int, error) {
	q.Set("source", "WEB")
	q.Set("client", "WEB")
	req := &collect.Request{
		Source:  Name,
		URL:     s.cfg.URL,
		Query:   q,
		Timeout: time.Duration(s.cfg.Timeout) * time.Millisecond,
	}
	var resp apiResponse
	if err := collect.GetJSON(ctx, s.fetcher, req, &resp); err != nil {
		return nil, 0, err
	}
	if resp.Result == nil || len(resp.Result.Data) == 0 {
		if !resp.Success && resp.Code != 0 && resp.Code != 9201 {
			return nil, 0, collect.Fail(Name, collect.KindUpstream, "%s: code %d: %s", q.Get("reportName"), resp.Code, resp.Message)
		}
		return nil, 0, nil
	}
	return resp.Result.Data, resp.Result.Pages, nil
}

// 上榜列表最多翻的页数
const maxOverviewPages = 20

func (s *Source) overview(ctx context.Context, date string) ([]entry, error) {
	pageSize := s.cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	var rows []row
	for n, pages := 1, 1; n <= pages && n <= maxOverviewPages; n++ {
		data, total, err := s.queryPage(ctx, url.Values{
			"reportName":  {reportOverview},
			"columns":     {"ALL"},
			"sortColumns": {"SECURITY_CODE,TRADE_DATE"},
			"sortTypes":   {"1,-1"},
			"pageSize":    {strconv.Itoa(pageSize)},
			"pageNumber":  {strconv.Itoa(n)},
			"filter":      {fmt.Sprintf("(TRADE_DATE<='%s')(TRADE_DATE>='%s')", date, date)},
		})
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			break
		}
		rows = append(rows, data...)
		pages = total
	}
	entries := mergeEntries(rows)
	if len(entries) == 0 {
		return nil, collect.Fail(Name, collect.KindNotFound, "no dragon tiger list on %s", date)
	}
	return entries, nil
}

// entry 是上榜列表中的一只股票，同一只股票因多个原因上榜时合并为一条
type entry struct {
	Code    string
	Name    string
	Info    Info
	reasons []string
}

func mergeEntries(rows []row) []entry {
	var out []entry
	pos := make(map[string]int)
	for _, r := range rows {
		code := strings.TrimSpace(r.SecurityCode)
		if code == "" {
			continue
		}
		reason := strings.TrimSpace(r.Explanation)
		if i, ok := pos[code]; ok {
			if reason != "" && !contains(out[i].reasons, reason) {
				out[i].reasons = append(out[i].reasons, reason)
				out[i].Info.Reason = strings.Join(out[i].reasons, "；")
			}
			continue
		}
		e := entry{
			Code: code,
			Name: strings.TrimSpace(r.SecurityName),
			Info: Info{
				ClosePrice:    r.ClosePrice.Float(),
				ChangePercent: round2(r.ChangeRate.Float()),
				Reason:        reason,
				NetAmount:     wan(r.NetAmt.Float()),
				BuyAmount:     wan(r.BuyAmt.Float()),
				SellAmount:    wan(r.SellAmt.Float()),
				DealAmount:    wan(r.DealAmt.Float()),
				TurnoverRate:  round2(r.Turnover.Float()),
			},
		}
		if reason != "" {
			e.reasons = []string{reason}
		}
		pos[code] = len(out)
		out = append(out, e)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func wan(yuan float64) float64 {
	return round2(yuan / tenThousand)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
