package collect

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/url"
	"time"
)

// Request 描述一次对上游的请求
type Request struct {
	Source  string // 所属的数据源，写入日志和FetchFailure
	URL     string
	Method  string
	Header  http.Header
	Query   url.Values
	Body    []byte
	Timeout time.Duration // 为0时使用Fetcher的默认超时

	// Raw 为true时不做字符集转换，用于下载图片等二进制内容
	Raw bool
	// JSON 为true时只按Content-Type声明的charset转码，未声明时按UTF-8读取
	JSON bool
}

func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// FullURL 返回拼接了Query之后的地址
func (r *Request) FullURL() (string, error) {
	if len(r.Query) == 0 {
		return r.URL, nil
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range r.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Unique 返回请求的指纹，用于在一次运行内去重
func (r *Request) Unique() string {
	full, err := r.FullURL()
	if err != nil {
		full = r.URL
	}
	block := md5.Sum(append([]byte(full+r.method()), r.Body...))
	return hex.EncodeToString(block[:])
}
