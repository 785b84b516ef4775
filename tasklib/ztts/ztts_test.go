package ztts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/dszqbsm/stockdaily/index"
	"github.com/dszqbsm/stockdaily/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct {
	snap *Snapshot
	err  error
}

func (d *fakeDashboard) Snapshot(ctx context.Context, date string) (*Snapshot, error) {
	return d.snap, d.err
}

func number(f float64) *collect.Number {
	n := collect.Number(f)
	return &n
}

func snapshot(t *testing.T, raw string) *Snapshot {
	t.Helper()
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	return &s
}

const ladderBody = `{"code":0,"msg":"ok","data":[
	{"code":"SZ002031","name":"巨轮智能","close":6.08,"zf":0.1002,"fbrate":0.0321,"dnum":3,"bnum":3},
	{"code":"SH600000","name":"浦发银行","close":"10.5","zf":0.1,"fbrate":0.01,"dnum":1,"bnum":1},
	{"code":"SZ300750","name":"宁德时代","close":200,"zf":0.2,"fbrate":0.05,"dnum":2,"bnum":1}
]}`

func newSource(t *testing.T, dash Dashboard, ladder string, status int) (*Source, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getZttdData", r.URL.Query().Get("service"))
		assert.Equal(t, "20250121", r.URL.Query().Get("date"))
		w.WriteHeader(status)
		w.Write([]byte(ladder))
	}))
	t.Cleanup(srv.Close)
	out := t.TempDir()
	s := NewSource(conf.ZttsConfig{URL: "https://example.com/ztts", APIURL: srv.URL}, out, collect.NewHTTPFetch(), dash, nil)
	s.now = func() time.Time { return time.Date(2025, 1, 22, 10, 0, 0, 0, market.Shanghai) }
	return s, out
}

func TestCollect(t *testing.T) {
	snap := snapshot(t, `{"date":"20250121","crawlTime":"2025-01-22T02:00:00Z","analysis":"",
		"marketSense":0.6512,"todayStat":{"lu":58,"lufb":0.72,"luop":"22","ld":3,"ldfb":0.5,"ldop":1},
		"yesterdayStat":{"lu":40,"lufb":65.5},"maxBan":5,"lbNum":12,"zrb":46,"cjzt":80,
		"todayWad":{"num":58,"rank100":35,"avg5":50.2,"type":1,"days":2}}`)
	s, out := newSource(t, &fakeDashboard{snap: snap}, ladderBody, http.StatusOK)

	batch, err := s.Collect(context.Background(), "2025-01-21")
	require.NoError(t, err)
	require.Empty(t, batch.Failures)
	require.Len(t, batch.Records, 1)

	r := batch.Records[0]
	info := r["报告信息"].(map[string]interface{})
	assert.Equal(t, "2025-01-21", info["数据日期"])
	analysis := r["市场分析"].(map[string]interface{})
	assert.Equal(t, "解读：01月21日涨停数量58，在过去100个交易日中排名35位，涨停数量连续2个交易日上升；\n\n市场中线赚钱效应较强，赚钱效应有上升趋势。",
		analysis["完整解读"])
	core := r["核心指标"].(map[string]interface{})
	assert.Equal(t, 58.0, core["涨停数量"])
	assert.Equal(t, 0.72, core["封板率"])
	assert.Equal(t, "上升", r["趋势分析"].(map[string]interface{})["趋势描述"])
	assert.Nil(t, r["前日数据"].(map[string]interface{})["涨停打开"])

	boards := r["板数分布"].(map[string]interface{})
	assert.Equal(t, 1.0, boards["3板"])
	assert.Equal(t, 2.0, boards["1板"])
	markets := r["市场分布"].(map[string]interface{})
	assert.Equal(t, 1.0, markets["创业板"])
	ladder := r["涨停梯队"].(map[string]interface{})
	first := ladder["3板"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "3天3板", first["board_label"])
	assert.Equal(t, 10.02, first["change_rate"])
	assert.Equal(t, 3.21, first["turnover_rate"])
	assert.Equal(t, "深市主板", first["market"])

	files := r["files"].(map[string]interface{})
	assert.Equal(t, "dzh_ztts/2025-01/2025-01-21.txt", files["txt"])
	txt, err := os.ReadFile(filepath.Join(out, "dzh_ztts", "2025-01", "2025-01-21.txt"))
	require.NoError(t, err)
	text := string(txt)
	assert.Contains(t, text, "大智慧涨停透视 - 2025年01月21日")
	assert.Contains(t, text, "活跃资金情绪：65.12%")
	assert.Contains(t, text, "  前一日：65.50%")
	assert.Contains(t, text, "【当日vs前一日对比】")
	assert.Less(t, strings.Index(text, "3板 (1只)"), strings.Index(text, "1板 (2只)"))
	assert.Contains(t, text, "1. 巨轮智能 (SZ002031) - 深市主板")
}

func TestCollect_DashboardAndLadderFailures(t *testing.T) {
	s, _ := newSource(t, &fakeDashboard{err: collect.Fail(Name, collect.KindTimeout, "vue app not ready")}, ladderBody, http.StatusOK)
	_, err := s.Collect(context.Background(), "2025-01-21")
	assert.Equal(t, collect.KindTimeout, collect.KindOf(err))

	s, _ = newSource(t, &fakeDashboard{snap: &Snapshot{Date: "20250120"}}, ladderBody, http.StatusOK)
	_, err = s.Collect(context.Background(), "2025-01-21")
	assert.Equal(t, collect.KindNotFound, collect.KindOf(err))

	s, _ = newSource(t, &fakeDashboard{snap: &Snapshot{Date: "20250121", Analysis: "今日情绪回暖"}}, `{"code":1,"msg":"busy"}`, http.StatusOK)
	batch, err := s.Collect(context.Background(), "2025-01-21")
	require.NoError(t, err)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, collect.KindUpstream, collect.KindOf(batch.Failures[0]))
	require.Len(t, batch.Records, 1)
	assert.Equal(t, "今日情绪回暖", batch.Records[0]["市场分析"].(map[string]interface{})["完整解读"])
}

func TestFallbackAnalysis(t *testing.T) {
	now := time.Date(2025, 1, 21, 16, 0, 0, 0, market.Shanghai)
	assert.Equal(t, "暂无分析数据", FallbackAnalysis("2025-01-21", now, nil))

	tests := []struct {
		rank float64
		want string
	}{
		{rank: 5, want: "很强"},
		{rank: 40, want: "较强"},
		{rank: 41, want: "一般"},
		{rank: 80, want: "较弱"},
		{rank: 99, want: "很弱"},
	}
	for _, tt := range tests {
		got := FallbackAnalysis("2025-01-21", now, &Wad{Num: number(30), Rank100: number(tt.rank), Days: number(1)})
		assert.True(t, strings.HasPrefix(got, "解读：今日涨停数量30"), got)
		assert.Contains(t, got, "赚钱效应"+tt.want)
		assert.Contains(t, got, "下降趋势")
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "暂无数据", FormatPercent(nil))
	assert.Equal(t, "72.00%", FormatPercent(number(0.72)))
	assert.Equal(t, "65.50%", FormatPercent(number(65.5)))
	assert.Equal(t, "12", FormatNumber(number(12.9)))
	assert.Equal(t, "暂无数据", FormatNumber(nil))
}

func TestSummary(t *testing.T) {
	long := strings.Repeat("涨", 250)
	snap := &Snapshot{Date: "20250121", Analysis: long, MarketSense: number(0.65), Today: &Stat{LU: number(58), LUFB: number(0.72)}, MaxBan: number(5)}
	s, _ := newSource(t, &fakeDashboard{snap: snap}, ladderBody, http.StatusOK)
	batch, err := s.Collect(context.Background(), "2025-01-21")
	require.NoError(t, err)

	idx := index.New(Name)
	_, err = idx.Merge("2025-01-21", batch.Records, index.ByDate("2025-01-21"))
	require.NoError(t, err)

	got := Summary(idx.Bucket("2025-01-21")).(map[string]interface{})
	assert.Equal(t, "2025-01-21", got["date"])
	assert.Equal(t, sourceName, got["source"])
	core := got["core_data"].(map[string]interface{})
	assert.Equal(t, 58.0, core["涨停数量"])
	assert.Equal(t, 5.0, core["最高板数"])
	text := got["market_analysis"].(string)
	assert.Equal(t, strings.Repeat("涨", 200)+"...", text)

	assert.Nil(t, Summary(&index.Bucket{Date: "2025-01-22", Items: map[string]index.Record{}}))
}
