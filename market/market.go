// Package market 提供A股交易日和证券代码相关的小工具
package market

import (
	"strings"
	"time"

	"github.com/dszqbsm/stockdaily/index"
)

// Shanghai 是所有日期计算使用的时区，加载失败时退化为固定的UTC+8
var Shanghai = loadShanghai()

func loadShanghai() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}

// 开盘前的数据还属于上一个交易日
const openHour = 9

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// PrevTradingDay 返回t之前最近的工作日，不含t本身
func PrevTradingDay(t time.Time) time.Time {
	d := day(t).AddDate(0, 0, -1)
	for isWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

/*
输入当前时间，输出最近一个交易日的零点（上海时区）

周末回退到周五；当天是交易日但还没到9点时，取上一个交易日。不考虑法定节假日
*/
func LatestTradingDay(now time.Time) time.Time {
	now = now.In(Shanghai)
	today := day(now)
	d := today
	for isWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	if d.Equal(today) && now.Hour() < openHour {
		d = PrevTradingDay(d)
	}
	return d
}

// LatestTradingDate 同LatestTradingDay，返回YYYY-MM-DD
func LatestTradingDate(now time.Time) string {
	return LatestTradingDay(now).Format(index.DateLayout)
}

// Compact 把 2025-01-21 转为 20250121
func Compact(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// Month 返回日期所在的 YYYY-MM
func Month(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// ConvertStockCode 把 sh600000 转为 600000.SH，无法识别的前缀原样返回
func ConvertStockCode(code string) string {
	lower := strings.ToLower(code)
	for _, p := range []string{"sh", "sz", "bj"} {
		if strings.HasPrefix(lower, p) && len(code) > 2 {
			return code[2:] + "." + strings.ToUpper(p)
		}
	}
	return code
}

const (
	BoardSHMain  = "沪市主板"
	BoardSTAR    = "科创板"
	BoardSZMain  = "深市主板"
	BoardChiNext = "创业板"
	BoardBJ      = "北交所"
	BoardOther   = "其他"
)

/*
输入证券代码，输出所属板块

同时接受 SH600000、sh600000、600000.SH 和纯数字 600000 几种写法
*/
func MarketType(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	var exch string
	switch {
	case strings.HasPrefix(c, "SH"), strings.HasPrefix(c, "SZ"), strings.HasPrefix(c, "BJ"):
		exch, c = c[:2], c[2:]
	case strings.HasSuffix(c, ".SH"), strings.HasSuffix(c, ".SZ"), strings.HasSuffix(c, ".BJ"):
		exch, c = c[len(c)-2:], c[:len(c)-3]
	}
	if exch == "BJ" {
		return BoardBJ
	}
	switch {
	case strings.HasPrefix(c, "60") && exch != "SZ":
		return BoardSHMain
	case strings.HasPrefix(c, "68") && exch != "SZ":
		return BoardSTAR
	case strings.HasPrefix(c, "00") && exch != "SH":
		return BoardSZMain
	case strings.HasPrefix(c, "30") && exch != "SH":
		return BoardChiNext
	case exch == "" && (strings.HasPrefix(c, "8") || strings.HasPrefix(c, "4") || strings.HasPrefix(c, "92")):
		return BoardBJ
	}
	return BoardOther
}
