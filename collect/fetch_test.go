package collect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestHTTPFetch_Get(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("<html><head><meta charset=\"gbk\"></head><body>涨停</body></html>")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/utf8", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stockdaily-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		io.WriteString(w, `{"code":200,"msg":"成功"}`)
	})
	mux.HandleFunc("/gbk", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		io.WriteString(w, gbk)
	})
	mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	})
	mux.HandleFunc("/500", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetch(WithUserAgent("stockdaily-test"), WithTimeout(time.Second))
	ctx := context.Background()

	data, err := f.Get(ctx, &Request{Source: "t", URL: srv.URL + "/utf8", Query: url.Values{"page": {"1"}}})
	require.NoError(t, err)
	assert.Contains(t, string(data), "成功")

	data, err = f.Get(ctx, &Request{Source: "t", URL: srv.URL + "/gbk"})
	require.NoError(t, err)
	assert.Contains(t, string(data), "涨停")

	data, err = f.Get(ctx, &Request{Source: "t", URL: srv.URL + "/post", Method: http.MethodPost, Body: []byte(`{"date":"2025-01-21"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-01-21"}`, string(data))

	_, err = f.Get(ctx, &Request{Source: "t", URL: srv.URL + "/500"})
	assert.Equal(t, KindStatus, KindOf(err))

	_, err = f.Get(ctx, &Request{Source: "t", URL: srv.URL + "/slow", Timeout: 50 * time.Millisecond})
	assert.Equal(t, KindTimeout, KindOf(err))

	_, err = f.Get(ctx, &Request{Source: "t", URL: "http://127.0.0.1:1/closed"})
	assert.True(t, IsFailure(err))
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			io.WriteString(w, "<html>登录</html>")
			return
		}
		io.WriteString(w, `{"code":200,"data":{"up_num":57}}`)
	}))
	defer srv.Close()

	f := NewHTTPFetch()
	var out struct {
		Code int `json:"code"`
		Data struct {
			UpNum int `json:"up_num"`
		} `json:"data"`
	}
	require.NoError(t, GetJSON(context.Background(), f, &Request{Source: "t", URL: srv.URL}, &out))
	assert.Equal(t, 57, out.Data.UpNum)

	err := GetJSON(context.Background(), f, &Request{Source: "t", URL: srv.URL + "/bad"}, &out)
	assert.Equal(t, KindShape, KindOf(err))
}

func TestGetJSON_ChineseAfterASCIIHead(t *testing.T) {
	pad := strings.Repeat("a", 1100)
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(`{"pad":"` + pad + `","name":"浦发银行"}`)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"pad":"`+pad+`","name":"平安银行"}`)
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, `{"pad":"`+pad+`","name":"宁德时代"}`)
	})
	mux.HandleFunc("/gbk", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=GBK")
		io.WriteString(w, gbk)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tests := []struct {
		path string
		want string
	}{
		{path: "/json", want: "平安银行"},
		{path: "/text", want: "宁德时代"},
		{path: "/gbk", want: "浦发银行"},
	}
	f := NewHTTPFetch()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var out struct {
				Name string `json:"name"`
			}
			require.NoError(t, GetJSON(context.Background(), f, &Request{Source: "t", URL: srv.URL + tt.path}, &out))
			assert.Equal(t, tt.want, out.Name)
		})
	}
}

func TestHTTPFetch_NonPositiveTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	for _, d := range []time.Duration{0, -time.Second} {
		f := NewHTTPFetch(WithTimeout(d))
		assert.Equal(t, defaultOptions.timeout, f.timeout)
		body, err := f.Get(context.Background(), &Request{Source: "t", URL: srv.URL, Timeout: d})
		require.NoError(t, err, d)
		assert.Equal(t, "ok", string(body))
	}
}

func TestDeclaredEncoding(t *testing.T) {
	_, ok := DeclaredEncoding("application/json")
	assert.False(t, ok)
	_, ok = DeclaredEncoding("text/html; charset=x-unknown")
	assert.False(t, ok)
	e, ok := DeclaredEncoding("text/html; charset=gb2312")
	require.True(t, ok)
	assert.NotNil(t, e)
}

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(int) error {
		calls++
		if calls < 3 {
			return errors.New("short page")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(context.Background(), 2, time.Millisecond, func(int) error {
		calls++
		return Fail("t", KindNotFound, "no article")
	})
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, 2, calls)
}

func TestRequest_Unique(t *testing.T) {
	a := &Request{URL: "https://example.com/a", Query: url.Values{"x": {"1"}}}
	b := &Request{URL: "https://example.com/a?x=1"}
	c := &Request{URL: "https://example.com/a?x=1", Method: http.MethodPost}
	assert.Equal(t, a.Unique(), b.Unique())
	assert.NotEqual(t, b.Unique(), c.Unique())
}

func TestNumber(t *testing.T) {
	var v struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
		E Number `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1.5,"b":"2.25","c":null,"d":"","e":"9.98%"}`), &v))
	assert.Equal(t, 1.5, v.A.Float())
	assert.Equal(t, 2.25, v.B.Float())
	assert.Equal(t, 0.0, v.C.Float())
	assert.Equal(t, 0.0, v.D.Float())
	assert.Equal(t, 9.98, v.E.Float())
	assert.Error(t, json.Unmarshal([]byte(`{"a":"abc"}`), &v))
}
