package jiuyan

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/robertkrimen/otto"
	"go.uber.org/zap"
)

// 文章正文以JS字符串字面量的形式内嵌在页面的初始状态里
var contentRe = regexp.MustCompile(`(?s)content:"(.*?)",url:`)

type listItem struct {
	Title       string
	URL         string
	PublishTime string
}

type page struct {
	Title string
	HTML  string
}

func pageHeader() http.Header {
	return http.Header{
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"},
		"Accept-Language": {"zh-CN,zh;q=0.9,en;q=0.8"},
		"Cache-Control":   {"max-age=0"},
	}
}

/*
输入作者和日期，输出作者主页上当天发布的第一篇文章

请求失败或页面过短时按递增间隔重试；页面正常但没有当天的文章时直接返回not_found，不再重试
*/
func (s *Source) findArticle(ctx context.Context, a conf.AuthorConfig, date string) (*listItem, error) {
	var item *listItem
	err := collect.Retry(ctx, s.cfg.Retries, s.backoff, func(attempt int) error {
		body, err := s.fetcher.Get(ctx, &collect.Request{
			Source:  Name,
			URL:     a.URL,
			Header:  pageHeader(),
			Timeout: s.timeout(),
		})
		if err != nil {
			s.logger.Debug("list page failed", zap.String("author", a.Name), zap.Int("attempt", attempt+1), zap.Error(err))
			return err
		}
		if len(body) < minPageSize {
			return collect.Fail(Name, collect.KindShape, "%s: list page too short (%d bytes)", a.Name, len(body))
		}
		item, err = parseList(body, a.URL, date)
		return err
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, collect.Fail(Name, collect.KindNotFound, "%s: no article on %s", a.Name, date)
	}
	return item, nil
}

func parseList(body []byte, base, date string) (*listItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "parse list page: %w", err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "bad author url %q: %w", base, err)
	}

	var item *listItem
	doc.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		title := li.Find(".book-title span").First()
		pub := li.Find(".fs13-ash").First()
		if title.Length() == 0 || pub.Length() == 0 {
			return true
		}
		pubTime := strings.TrimSpace(pub.Text())
		if !strings.HasPrefix(pubTime, date) {
			return true
		}
		href, ok := li.Find(`a[href^="/a/"]`).First().Attr("href")
		if !ok {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		item = &listItem{
			Title:       strings.TrimSpace(title.Text()),
			URL:         baseURL.ResolveReference(ref).String(),
			PublishTime: pubTime,
		}
		return false
	})
	return item, nil
}

// fetchArticle 取出文章页内嵌的正文HTML
func (s *Source) fetchArticle(ctx context.Context, articleURL string) (*page, error) {
	body, err := s.fetcher.Get(ctx, &collect.Request{
		Source:  Name,
		URL:     articleURL,
		Header:  pageHeader(),
		Timeout: s.timeout(),
	})
	if err != nil {
		return nil, err
	}
	m := contentRe.FindSubmatch(body)
	if m == nil {
		return nil, collect.Fail(Name, collect.KindShape, "%s: article content not found", articleURL)
	}
	content, err := DecodeJSString(string(m[1]))
	if err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "%s: decode content: %w", articleURL, err)
	}
	return &page{Title: pageTitle(body), HTML: content}, nil
}

var (
	errUnescapedQuote = errors.New("unescaped quote in string literal")
	errDecodeTimeout  = errors.New("string literal evaluation timed out")
)

// 单个字符串字面量求值的上限
var decodeTimeout = time.Second

// DecodeJSString 把JS源码中双引号字符串的内容还原为实际文本
func DecodeJSString(raw string) (s string, err error) {
	// 页面里的 \u 有时被多转义了一次
	raw = strings.ReplaceAll(raw, `\\u`, `\u`)
	raw = strings.NewReplacer("\r", `\r`, "\n", `\n`, "\u2028", `\u2028`, "\u2029", `\u2029`).Replace(raw)
	// 未转义的双引号会让内容跳出字面量，交给解释器之前拒绝
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case '"':
			return "", errUnescapedQuote
		}
	}

	vm := otto.New()
	vm.Interrupt = make(chan func(), 1)
	timer := time.AfterFunc(decodeTimeout, func() {
		vm.Interrupt <- func() { panic(errDecodeTimeout) }
	})
	defer timer.Stop()
	defer func() {
		if caught := recover(); caught != nil {
			if caught != errDecodeTimeout {
				panic(caught)
			}
			s, err = "", errDecodeTimeout
		}
	}()

	v, err := vm.Run(`"` + raw + `"`)
	if err != nil {
		return "", err
	}
	return v.ToString()
}

func pageTitle(body []byte) string {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, expr := range []string{"//h1", "//title"} {
		if n := htmlquery.FindOne(doc, expr); n != nil {
			if t := strings.TrimSpace(htmlquery.InnerText(n)); t != "" {
				return t
			}
		}
	}
	return ""
}
