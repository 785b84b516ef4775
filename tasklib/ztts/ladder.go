package ztts

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/market"
)

type ladderItem struct {
	Code   string         `json:"code"`
	Name   string         `json:"name"`
	Close  collect.Number `json:"close"`
	Zf     collect.Number `json:"zf"`
	FBRate collect.Number `json:"fbrate"`
	DNum   collect.Number `json:"dnum"`
	BNum   collect.Number `json:"bnum"`
}

type ladderResponse struct {
	Code int          `json:"code"`
	Msg  string       `json:"msg"`
	Data []ladderItem `json:"data"`
}

type LadderStock struct {
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	ClosePrice   float64 `json:"close_price"`
	ChangeRate   float64 `json:"change_rate"`
	TurnoverRate float64 `json:"turnover_rate"`
	DNum         int     `json:"dnum"`
	BNum         int     `json:"bnum"`
	BoardLabel   string  `json:"board_label"`
	Market       string  `json:"market"`
}

// Ladder 是涨停梯队，Stocks和Boards的键形如 "3板"
type Ladder struct {
	Stocks  map[string][]LadderStock `json:"ladder_stocks"`
	Markets map[string]int           `json:"market_distribution"`
	Boards  map[string]int           `json:"board_distribution"`
	// 板数从高到低
	Order []string `json:"-"`
}

func (s *Source) ladder(ctx context.Context, date string) (*Ladder, error) {
	req := &collect.Request{
		Source:  Name,
		URL:     s.cfg.APIURL,
		Query:   url.Values{"service": {"getZttdData"}, "date": {market.Compact(date)}},
		Timeout: 10 * time.Second,
		Header:  http.Header{"Referer": {s.cfg.URL}},
	}
	var resp ladderResponse
	if err := collect.GetJSON(ctx, s.fetcher, req, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, collect.Fail(Name, collect.KindUpstream, "ladder code %d: %s", resp.Code, resp.Msg)
	}
	return buildLadder(resp.Data), nil
}

// buildLadder 按连板数分组，组内保持接口返回的顺序
func buildLadder(items []ladderItem) *Ladder {
	l := &Ladder{
		Stocks:  make(map[string][]LadderStock),
		Markets: make(map[string]int),
		Boards:  make(map[string]int),
	}
	var nums []int
	for _, it := range items {
		bnum := int(it.BNum.Float())
		dnum := int(it.DNum.Float())
		key := boardKey(bnum)
		if _, ok := l.Stocks[key]; !ok {
			nums = append(nums, bnum)
		}
		mk := market.MarketType(it.Code)
		l.Stocks[key] = append(l.Stocks[key], LadderStock{
			Code:         it.Code,
			Name:         strings.TrimSpace(it.Name),
			ClosePrice:   it.Close.Float(),
			ChangeRate:   round2(it.Zf.Float() * 100),
			TurnoverRate: round2(it.FBRate.Float() * 100),
			DNum:         dnum,
			BNum:         bnum,
			BoardLabel:   fmt.Sprintf("%d天%d板", dnum, bnum),
			Market:       mk,
		})
		l.Markets[mk]++
		l.Boards[key]++
	}
	sort.Sort(sort.Reverse(sort.IntSlice(nums)))
	for _, n := range nums {
		l.Order = append(l.Order, boardKey(n))
	}
	return l
}

func boardKey(n int) string {
	return fmt.Sprintf("%d板", n)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
