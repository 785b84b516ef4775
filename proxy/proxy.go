package proxy

import (
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
)

// ProxyFunc 可以直接赋给 http.Transport.Proxy
type ProxyFunc func(*http.Request) (*url.URL, error)

type roundRobinSwitcher struct {
	proxyURLs []*url.URL
	index     uint32
}

// GetProxy 每次调用依次返回下一个代理地址，并发安全
func (r *roundRobinSwitcher) GetProxy(*http.Request) (*url.URL, error) {
	if len(r.proxyURLs) == 0 {
		return nil, errors.New("proxy: empty proxy urls")
	}
	index := atomic.AddUint32(&r.index, 1) - 1
	return r.proxyURLs[index%uint32(len(r.proxyURLs))], nil
}

/*
输入代理地址列表，输出轮询选择代理的函数

地址无法解析时返回错误；列表为空时返回错误，调用方应当据此不设置代理
*/
func RoundRobinProxySwitcher(proxyURLs ...string) (ProxyFunc, error) {
	if len(proxyURLs) < 1 {
		return nil, errors.New("proxy: url list is empty")
	}
	urls := make([]*url.URL, len(proxyURLs))
	for i, u := range proxyURLs {
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, err
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return nil, errors.New("proxy: invalid url " + u)
		}
		urls[i] = parsed
	}
	return (&roundRobinSwitcher{proxyURLs: urls}).GetProxy, nil
}
