package collect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Fetcher 负责把一个请求变成响应体，所有失败都以*FetchFailure返回
type Fetcher interface {
	Get(ctx context.Context, req *Request) ([]byte, error)
}

// HTTPFetch 是模拟浏览器访问的Fetcher：限速、随机休眠、代理轮询、编码检测
type HTTPFetch struct {
	client *http.Client
	options
}

func NewHTTPFetch(opts ...Option) *HTTPFetch {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if options.proxy != nil {
		transport.Proxy = options.proxy
	}
	return &HTTPFetch{
		client:  &http.Client{Transport: transport},
		options: options,
	}
}

/*
输入上下文和请求，输出转为UTF-8的响应体

请求前先经过限速器并随机休眠，超时取请求自身的Timeout或默认值；非2xx状态码返回status类失败，
超时返回timeout类失败，其余网络错误返回network类失败
*/
func (f *HTTPFetch) Get(ctx context.Context, r *Request) ([]byte, error) {
	if f.limit != nil {
		if err := f.limit.Wait(ctx); err != nil {
			return nil, classify(r.Source, err)
		}
	}
	if f.waitTime > 0 {
		sleep := time.Duration(rand.Int63n(int64(f.waitTime)))
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, classify(r.Source, ctx.Err())
		}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full, err := r.FullURL()
	if err != nil {
		return nil, Fail(r.Source, KindNetwork, "bad url %q: %w", r.URL, err)
	}
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method(), full, body)
	if err != nil {
		return nil, Fail(r.Source, KindNetwork, "new request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		ua := f.userAgent
		if ua == "" {
			ua = RandomUA()
		}
		req.Header.Set("User-Agent", ua)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(r.Source, err)
	}
	defer resp.Body.Close()

	f.logger.Debug("fetch",
		zap.String("source", r.Source),
		zap.String("method", r.method()),
		zap.String("url", full),
		zap.Int("status", resp.StatusCode),
		zap.Duration("cost", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, Fail(r.Source, KindStatus, "%s: status %d", full, resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if !r.Raw {
		br := bufio.NewReader(resp.Body)
		ct := resp.Header.Get("Content-Type")
		var e encoding.Encoding = unicode.UTF8
		if declared, ok := DeclaredEncoding(ct); ok {
			e = declared
		} else if !r.JSON && !isJSON(ct) {
			e = DetermineEncoding(br, ct)
		}
		reader = transform.NewReader(br, e.NewDecoder())
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, classify(r.Source, err)
	}
	return data, nil
}

// DetermineEncoding 根据响应头和前1024字节推断编码，无法判断时按UTF-8处理
func DetermineEncoding(r *bufio.Reader, contentType string) encoding.Encoding {
	head, err := r.Peek(1024)
	if err != nil && len(head) == 0 {
		return unicode.UTF8
	}
	e, _, _ := charset.DetermineEncoding(head, contentType)
	return e
}

// DeclaredEncoding 返回Content-Type中charset参数指明的编码，没有或无法识别时ok为false
func DeclaredEncoding(contentType string) (e encoding.Encoding, ok bool) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["charset"] == "" {
		return nil, false
	}
	e, _ = charset.Lookup(params["charset"])
	return e, e != nil
}

// JSON没有声明charset时一律是UTF-8，不能按前1024字节猜测
func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// GetJSON 请求并把响应解码到v，解码失败返回shape类失败
func GetJSON(ctx context.Context, f Fetcher, r *Request, v interface{}) error {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "application/json, text/plain, */*")
	}
	r.JSON = true
	data, err := f.Get(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return Fail(r.Source, KindShape, "decode json: %w", err)
	}
	return nil
}

// Retry 最多尝试attempts次，每次失败后等待 backoff*第几次，ctx结束时立即返回
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(backoff * time.Duration(i+1)):
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		}
	}
	return err
}
