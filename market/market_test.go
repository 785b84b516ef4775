package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatestTradingDate(t *testing.T) {
	at := func(s string) time.Time {
		tm, err := time.ParseInLocation("2006-01-02 15:04", s, Shanghai)
		if err != nil {
			t.Fatal(err)
		}
		return tm
	}
	tests := []struct {
		now  string
		want string
	}{
		{now: "2025-01-21 15:30", want: "2025-01-21"}, // 周二收盘后
		{now: "2025-01-21 08:59", want: "2025-01-20"}, // 周二开盘前
		{now: "2025-01-20 07:00", want: "2025-01-17"}, // 周一开盘前回到周五
		{now: "2025-01-18 12:00", want: "2025-01-17"}, // 周六
		{now: "2025-01-19 08:00", want: "2025-01-17"}, // 周日早上
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatestTradingDate(at(tt.now)), tt.now)
	}

	// UTC时间先换算到上海时区
	utc := time.Date(2025, 1, 21, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-21", LatestTradingDate(utc))
}

func TestConvertStockCode(t *testing.T) {
	assert.Equal(t, "600000.SH", ConvertStockCode("sh600000"))
	assert.Equal(t, "000001.SZ", ConvertStockCode("sz000001"))
	assert.Equal(t, "830799.BJ", ConvertStockCode("bj830799"))
	assert.Equal(t, "600000", ConvertStockCode("600000"))
}

func TestMarketType(t *testing.T) {
	tests := map[string]string{
		"SH600000":  BoardSHMain,
		"SH688981":  BoardSTAR,
		"SZ000001":  BoardSZMain,
		"SZ300750":  BoardChiNext,
		"BJ830799":  BoardBJ,
		"600000.SH": BoardSHMain,
		"300750":    BoardChiNext,
		"830799":    BoardBJ,
		"SZ600000":  BoardOther,
		"":          BoardOther,
	}
	for code, want := range tests {
		assert.Equal(t, want, MarketType(code), code)
	}
}

func TestCompactAndMonth(t *testing.T) {
	assert.Equal(t, "20250121", Compact("2025-01-21"))
	assert.Equal(t, "2025-01", Month("2025-01-21"))
}
