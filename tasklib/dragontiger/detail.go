package dragontiger

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dszqbsm/stockdaily/index"
	"github.com/dszqbsm/stockdaily/market"
)

// Info 是上榜列表中的行情和上榜原因，金额单位万元
type Info struct {
	ClosePrice    float64 `json:"close_price"`
	ChangePercent float64 `json:"change_percent"`
	Reason        string  `json:"reason"`
	NetAmount     float64 `json:"net_amount"`
	BuyAmount     float64 `json:"buy_amount"`
	SellAmount    float64 `json:"sell_amount"`
	DealAmount    float64 `json:"deal_amount"`
	TurnoverRate  float64 `json:"turnover_rate"`
}

type Seat struct {
	Rank           int     `json:"rank"`
	DepartmentName string  `json:"department_name"`
	BuyAmount      float64 `json:"buy_amount"`
	SellAmount     float64 `json:"sell_amount"`
	AmountRatio    float64 `json:"amount_ratio"`
	Label          string  `json:"label"`
}

type CapitalFlow struct {
	BuyTotal  float64 `json:"buy_total"`
	SellTotal float64 `json:"sell_total"`
	NetInflow float64 `json:"net_inflow"`
}

// Detail 是一只股票当天的龙虎榜明细
type Detail struct {
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	MarketName  string       `json:"market_name"`
	Status      string       `json:"status"`
	Error       string       `json:"error,omitempty"`
	LhbInfo     Info         `json:"lhb_info"`
	CapitalFlow *CapitalFlow `json:"capital_flow,omitempty"`
	BuySeats    []Seat       `json:"buy_seats"`
	SellSeats   []Seat       `json:"sell_seats"`
}

// SeatLabel 按营业部名称粗分席位类型
func SeatLabel(name string) string {
	switch {
	case strings.Contains(name, "机构"):
		return "机构"
	case strings.Contains(name, "沪股通"), strings.Contains(name, "深股通"):
		return "北向资金"
	case strings.Contains(name, "拉萨"):
		return "散户"
	}
	return "游资"
}

func (s *Source) detail(ctx context.Context, date string, e entry) (*Detail, error) {
	buyRows, err := s.seats(ctx, reportBuy, "BUY", date, e.Code)
	if err != nil {
		return nil, err
	}
	sellRows, err := s.seats(ctx, reportSell, "SELL", date, e.Code)
	if err != nil {
		return nil, err
	}

	d := &Detail{
		Code:       e.Code,
		Name:       e.Name,
		MarketName: market.MarketType(e.Code),
		Status:     StatusSuccess,
		LhbInfo:    e.Info,
		BuySeats:   toSeats(buyRows, true),
		SellSeats:  toSeats(sellRows, false),
	}
	flow := &CapitalFlow{}
	for _, st := range d.BuySeats {
		flow.BuyTotal += st.BuyAmount
	}
	for _, st := range d.SellSeats {
		flow.SellTotal += st.SellAmount
	}
	flow.BuyTotal = round2(flow.BuyTotal)
	flow.SellTotal = round2(flow.SellTotal)
	flow.NetInflow = round2(flow.BuyTotal - flow.SellTotal)
	d.CapitalFlow = flow
	return d, nil
}

func (s *Source) seats(ctx context.Context, report, sortColumn, date, code string) ([]row, error) {
	return s.query(ctx, url.Values{
		"reportName":  {report},
		"columns":     {"ALL"},
		"sortColumns": {sortColumn},
		"sortTypes":   {"-1"},
		"pageSize":    {"50"},
		"pageNumber":  {"1"},
		"filter":      {fmt.Sprintf(`(TRADE_DATE='%s')(SECURITY_CODE="%s")`, date, code)},
	})
}

func toSeats(rows []row, buy bool) []Seat {
	seats := make([]Seat, 0, len(rows))
	for i, r := range rows {
		ratio := r.SellRatio.Float()
		if buy {
			ratio = r.BuyRatio.Float()
		}
		name := strings.TrimSpace(r.DeptName)
		seats = append(seats, Seat{
			Rank:           i + 1,
			DepartmentName: name,
			BuyAmount:      wan(r.Buy.Float()),
			SellAmount:     wan(r.Sell.Float()),
			AmountRatio:    round2(ratio),
			Label:          SeatLabel(name),
		})
	}
	return seats
}

func failedDetail(e entry, err error) *Detail {
	d := &Detail{
		Code:       e.Code,
		Name:       e.Name,
		MarketName: market.MarketType(e.Code),
		Status:     StatusFailed,
		LhbInfo:    e.Info,
		BuySeats:   []Seat{},
		SellSeats:  []Seat{},
	}
	if err != nil {
		d.Error = err.Error()
	}
	return d
}

/*
输入已存储的分桶和本次批次，输出需要合并的记录

已经成功抓到席位的股票，不会被本次失败的记录覆盖；被丢弃的记录以错误的形式返回，写入运行报告
*/
func Reconcile(prev *index.Bucket, records []index.Record) ([]index.Record, []error) {
	if prev == nil {
		return records, nil
	}
	var (
		kept    = make([]index.Record, 0, len(records))
		dropped []error
	)
	for _, r := range records {
		code, _ := index.ByField("code")(r)
		if r["status"] == StatusFailed {
			if old, ok := prev.Items[code]; ok && old["status"] == StatusSuccess {
				dropped = append(dropped, fmt.Errorf("dragontiger: %s detail failed, keep stored success", code))
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept, dropped
}
