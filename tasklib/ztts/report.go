package ztts

import (
	"fmt"
	"strings"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/index"
	"github.com/dszqbsm/stockdaily/market"
)

const sourceName = "大智慧涨停透视"

type ReportInfo struct {
	GeneratedAt string `json:"生成时间"`
	Date        string `json:"数据日期"`
	Source      string `json:"数据来源"`
}

type Analysis struct {
	Text   string `json:"完整解读"`
	Origin string `json:"分析来源"`
}

type Core struct {
	MarketSense *collect.Number `json:"活跃资金情绪"`
	SealRate    *collect.Number `json:"封板率"`
	LimitUp     *collect.Number `json:"涨停数量"`
	MaxBan      *collect.Number `json:"最高板数"`
	LbNum       *collect.Number `json:"连板家数"`
	Zrb         *collect.Number `json:"自然板家数"`
	Cjzt        *collect.Number `json:"触及涨停"`
}

type Trend struct {
	Rank100 *collect.Number `json:"百日排名"`
	Avg5    *collect.Number `json:"五日平均"`
	Days    *collect.Number `json:"连续天数"`
	Type    *collect.Number `json:"趋势类型"`
	Desc    string          `json:"趋势描述"`
}

type DayStat struct {
	LimitUp      *collect.Number `json:"涨停数量"`
	SealRate     *collect.Number `json:"封板率"`
	Opened       *collect.Number `json:"涨停打开"`
	LimitDown    *collect.Number `json:"跌停数量"`
	DownSealRate *collect.Number `json:"跌停封板率"`
	DownOpened   *collect.Number `json:"跌停打开"`
	MarketSense  *collect.Number `json:"活跃资金情绪,omitempty"`
}

type Streak struct {
	MaxBan *collect.Number `json:"最高板数"`
	LbNum  *collect.Number `json:"连板家数"`
	Zrb    *collect.Number `json:"自然板家数"`
	Cjzt   *collect.Number `json:"触及涨停"`
}

type Performance struct {
	ZrztRate interface{} `json:"昨日涨停今日表现"`
	ShRate   interface{} `json:"上证指数表现"`
}

// Report 是某个交易日的涨停透视报告
type Report struct {
	Info        ReportInfo               `json:"报告信息"`
	Analysis    Analysis                 `json:"市场分析"`
	Core        Core                     `json:"核心指标"`
	Trend       Trend                    `json:"趋势分析"`
	Today       DayStat                  `json:"今日数据"`
	Yesterday   DayStat                  `json:"前日数据"`
	Streak      Streak                   `json:"连板统计"`
	Performance Performance              `json:"市场表现"`
	Ladder      map[string][]LadderStock `json:"涨停梯队"`
	Markets     map[string]int           `json:"市场分布"`
	Boards      map[string]int           `json:"板数分布"`
	Raw         *Snapshot                `json:"原始数据"`
	Files       map[string]string        `json:"files"`

	ladderOrder []string
}

func stat(st *Stat) Stat {
	if st == nil {
		return Stat{}
	}
	return *st
}

func buildReport(date string, now time.Time, snap *Snapshot, ladder *Ladder) *Report {
	today, yesterday := stat(snap.Today), stat(snap.Yesterday)
	wad := Wad{}
	if snap.Wad != nil {
		wad = *snap.Wad
	}

	r := &Report{
		Info: ReportInfo{
			GeneratedAt: now.In(market.Shanghai).Format(time.RFC3339),
			Date:        date,
			Source:      sourceName,
		},
		Core: Core{
			MarketSense: snap.MarketSense,
			SealRate:    today.LUFB,
			LimitUp:     today.LU,
			MaxBan:      snap.MaxBan,
			LbNum:       snap.LbNum,
			Zrb:         snap.Zrb,
			Cjzt:        snap.Cjzt,
		},
		Trend: Trend{
			Rank100: wad.Rank100,
			Avg5:    wad.Avg5,
			Days:    wad.Days,
			Type:    wad.Type,
			Desc:    trendDesc(wad.Type),
		},
		Today: DayStat{
			LimitUp:      today.LU,
			SealRate:     today.LUFB,
			Opened:       today.LUOP,
			LimitDown:    today.LD,
			DownSealRate: today.LDFB,
			DownOpened:   today.LDOP,
			MarketSense:  snap.MarketSense,
		},
		Yesterday: DayStat{
			LimitUp:      yesterday.LU,
			SealRate:     yesterday.LUFB,
			Opened:       yesterday.LUOP,
			LimitDown:    yesterday.LD,
			DownSealRate: yesterday.LDFB,
			DownOpened:   yesterday.LDOP,
		},
		Streak:      Streak{MaxBan: snap.MaxBan, LbNum: snap.LbNum, Zrb: snap.Zrb, Cjzt: snap.Cjzt},
		Performance: Performance{ZrztRate: snap.ZrztRate, ShRate: snap.ShRate},
		Ladder:      map[string][]LadderStock{},
		Markets:     map[string]int{},
		Boards:      map[string]int{},
		Raw:         snap,
	}
	if text := strings.TrimSpace(snap.Analysis); text != "" {
		r.Analysis = Analysis{Text: text, Origin: "页面DOM提取"}
	} else {
		r.Analysis = Analysis{Text: FallbackAnalysis(date, now, snap.Wad), Origin: "趋势数据生成"}
	}
	if ladder != nil {
		r.Ladder, r.Markets, r.Boards = ladder.Stocks, ladder.Markets, ladder.Boards
		r.ladderOrder = ladder.Order
	}
	return r
}

func trendDesc(t *collect.Number) string {
	if t != nil && t.Float() == 1 {
		return "上升"
	}
	return "下降"
}

func num(n *collect.Number) float64 {
	if n == nil {
		return 0
	}
	return n.Float()
}

/*
输入日期、当前时间和趋势数据，输出页面没有解读文本时使用的分析

百日排名越靠前情绪越强，按20/40/60/80分为五档
*/
func FallbackAnalysis(date string, now time.Time, wad *Wad) string {
	if wad == nil {
		return "暂无分析数据"
	}
	rank := num(wad.Rank100)
	var strength string
	switch {
	case rank <= 20:
		strength = "很强"
	case rank <= 40:
		strength = "较强"
	case rank <= 60:
		strength = "一般"
	case rank <= 80:
		strength = "较弱"
	default:
		strength = "很弱"
	}
	trend := trendDesc(wad.Type)

	dateText := "今日"
	if d, err := index.ParseDate(date); err == nil && date != now.In(market.Shanghai).Format(index.DateLayout) {
		dateText = d.Format("01月02日")
	}
	return fmt.Sprintf("解读：%s涨停数量%d，在过去100个交易日中排名%d位，涨停数量连续%d个交易日%s；\n\n市场中线赚钱效应%s，赚钱效应有%s趋势。",
		dateText, int(num(wad.Num)), int(rank), int(num(wad.Days)), trend, strength, trend)
}

// FormatPercent 大于1的值已经是百分数，否则按比例换算
func FormatPercent(n *collect.Number) string {
	if n == nil {
		return "暂无数据"
	}
	f := n.Float()
	if f > 1 {
		return fmt.Sprintf("%.2f%%", f)
	}
	return fmt.Sprintf("%.2f%%", f*100)
}

func FormatNumber(n *collect.Number) string {
	if n == nil {
		return "暂无数据"
	}
	return fmt.Sprintf("%d", int(n.Float()))
}

// Text 生成与JSON报告对应的纯文本报告
func (r *Report) Text(now time.Time) string {
	sep, thin := strings.Repeat("=", 60), strings.Repeat("-", 40)
	d, _ := index.ParseDate(r.Info.Date)

	var lines []string
	add := func(l ...string) { lines = append(lines, l...) }

	add(sep,
		fmt.Sprintf("%s - %s", sourceName, d.Format("2006年01月02日")),
		fmt.Sprintf("更新时间：%s", now.In(market.Shanghai).Format("15:04:05")),
		sep, "",
		"【市场分析解读】", thin, r.Analysis.Text, "",
		"【核心指标统计】", thin,
		"活跃资金情绪："+FormatPercent(r.Core.MarketSense),
		"封板率："+FormatPercent(r.Core.SealRate),
		"最高板数："+FormatNumber(r.Core.MaxBan)+"板",
		"连板家数："+FormatNumber(r.Core.LbNum)+"家",
		"自然板家数："+FormatNumber(r.Core.Zrb)+"家",
		"触及涨停："+FormatNumber(r.Core.Cjzt)+"家",
		"")

	prefix := "当日"
	if r.Info.Date == now.In(market.Shanghai).Format(index.DateLayout) {
		prefix = "今日"
	}
	add(fmt.Sprintf("【%svs前一日对比】", prefix), thin)
	rows := []struct {
		name       string
		today, yes *collect.Number
		rate       bool
	}{
		{"涨停板", r.Today.LimitUp, r.Yesterday.LimitUp, false},
		{"涨停封板率", r.Today.SealRate, r.Yesterday.SealRate, true},
		{"涨停打开", r.Today.Opened, r.Yesterday.Opened, false},
		{"跌停板", r.Today.LimitDown, r.Yesterday.LimitDown, false},
		{"跌停封板率", r.Today.DownSealRate, r.Yesterday.DownSealRate, true},
		{"跌停打开", r.Today.DownOpened, r.Yesterday.DownOpened, false},
	}
	for _, row := range rows {
		format := FormatNumber
		if row.rate {
			format = FormatPercent
		}
		add(row.name+"：",
			fmt.Sprintf("  %s：%s", prefix, format(row.today)),
			"  前一日："+format(row.yes),
			"")
	}

	if len(r.ladderOrder) > 0 {
		add("【涨停梯队详情】", sep, "", "板数分布：")
		for _, k := range r.ladderOrder {
			add(fmt.Sprintf("  %s: %d只", k, r.Boards[k]))
		}
		add("", "市场分布：")
		for _, mk := range []string{market.BoardSHMain, market.BoardSTAR, market.BoardSZMain, market.BoardChiNext, market.BoardBJ, market.BoardOther} {
			if n := r.Markets[mk]; n > 0 {
				add(fmt.Sprintf("  %s: %d只", mk, n))
			}
		}
		add("", "详细个股：")
		for _, k := range r.ladderOrder {
			stocks := r.Ladder[k]
			add("", fmt.Sprintf("%s (%d只)：", k, len(stocks)), thin)
			for i, st := range stocks {
				add(fmt.Sprintf("%d. %s (%s) - %s", i+1, st.Name, st.Code, st.Market),
					fmt.Sprintf("   收盘价: %.2f元  涨幅: %.2f%%", st.ClosePrice, st.ChangeRate),
					"   连板标签: "+st.BoardLabel,
					"")
			}
		}
	}

	crawl := "未知"
	if r.Raw != nil && r.Raw.CrawlTime != "" {
		crawl = r.Raw.CrawlTime
	}
	add("【数据说明】", thin,
		"数据来源："+sourceName,
		"数据日期："+r.Info.Date,
		"爬取时间："+crawl,
		"", sep)
	return strings.Join(lines, "\n")
}
