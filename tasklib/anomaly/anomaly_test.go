package anomaly

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	assert.Equal(t, "9da4854d96d989deb642e5b27829a97b", Token("1737446400000"))
}

func newSource(t *testing.T, body string) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "1737446400000", r.Header.Get("timestamp"))
		assert.Equal(t, "9da4854d96d989deb642e5b27829a97b", r.Header.Get("token"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "2025-01-21", req["date"])
		assert.Equal(t, 1.0, req["pc"])
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	s := NewSource(conf.AnomalyConfig{URL: srv.URL, Timeout: 2000}, collect.NewHTTPFetch(), nil)
	s.now = func() time.Time { return time.UnixMilli(1737446400000) }
	return s
}

func TestCollect(t *testing.T) {
	s := newSource(t, `{"errCode":"0","msg":"","data":[
		{"name":"简图","list":[]},
		{"name":" 机器人 ","reason":"特斯拉发布会","list":[
			{"code":"sz002031","name":"巨轮智能","article":{"action_info":{"time":"09:25:00","expound":" 人形机器人减速器 "}}},
			{"code":"sh603728","name":"鸣志电器","article":{"action_info":{"time":"10:01:12","expound":"空心杯电机"}}}
		]},
		{"name":"AI","reason":"","list":[{"code":"sz300033","name":"同花顺","article":{}}]}
	]}`)

	batch, err := s.Collect(context.Background(), "2025-01-21")
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)

	r := batch.Records[0]
	assert.Equal(t, "2025-01-21", r["date"])
	assert.Equal(t, "2025-01-21 16:00:00", r["update_time"])
	assert.Equal(t, 2.0, r["category_count"])
	assert.Equal(t, 3.0, r["total_stocks"])

	cats := r["categories"].([]interface{})
	robot := cats[0].(map[string]interface{})
	assert.Equal(t, "机器人", robot["name"])
	assert.Equal(t, "特斯拉发布会", robot["reason"])
	first := robot["stocks"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "sz002031", first["code"])
	assert.Equal(t, "09:25:00", first["limit_time"])
	assert.Equal(t, "人形机器人减速器", first["analysis"])
}

func TestCollect_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind collect.FailureKind
	}{
		{name: "upstream", body: `{"errCode":"1","msg":"token invalid"}`, kind: collect.KindUpstream},
		{name: "empty day", body: `{"errCode":"0","data":[{"name":"简图","list":[]}]}`, kind: collect.KindNotFound},
		{name: "bad json", body: `{"errCode":`, kind: collect.KindShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSource(t, tt.body).Collect(context.Background(), "2025-01-21")
			assert.Equal(t, tt.kind, collect.KindOf(err))
		})
	}
}
