// Package jiuyan 抓取韭研公社指定作者在某一天发布的文章，正文、图片和导出文件落盘，元数据按作者合并进索引
package jiuyan

import (
	"context"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/dszqbsm/stockdaily/market"
	"github.com/dszqbsm/stockdaily/spider"
	"go.uber.org/zap"
)

const (
	Name = "jiuyan"
	Dir  = "articles"

	// 小于这个长度的列表页通常是风控返回的错误页
	minPageSize = 1000
	previewSize = 200
)

type Image struct {
	Placeholder string `json:"placeholder"`
	Filename    string `json:"filename"`
	Src         string `json:"src"`
	Alt         string `json:"alt"`
	Caption     string `json:"caption"`

	// 原始图片地址，只在本次抓取内用于去重，不进入索引
	Origin string `json:"_src,omitempty"`
}

type Stats struct {
	WordCount  int `json:"word_count"`
	ImageCount int `json:"image_count"`
}

type Files struct {
	Txt string `json:"txt"`
	Md  string `json:"md"`
}

// Article 是一篇文章的元数据，正文全文也保存在content中
type Article struct {
	Title          string  `json:"title"`
	Author         string  `json:"author"`
	Date           string  `json:"date"`
	URL            string  `json:"url"`
	PublishTime    string  `json:"publish_time"`
	CrawlTime      string  `json:"crawl_time"`
	Mode           string  `json:"mode"`
	Content        string  `json:"content"`
	ContentPreview string  `json:"content_preview"`
	ContentHTML    string  `json:"content_html"`
	Stats          Stats   `json:"stats"`
	WordCount      int     `json:"word_count"`
	ImageCount     int     `json:"image_count"`
	Files          Files   `json:"files"`
	Images         []Image `json:"images"`
}

type Source struct {
	cfg     conf.ArticlesConfig
	outDir  string
	fetcher collect.Fetcher
	logger  *zap.Logger
	now     func() time.Time
	backoff time.Duration
}

func NewSource(cfg conf.ArticlesConfig, outDir string, f collect.Fetcher, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		cfg:     cfg,
		outDir:  outDir,
		fetcher: f,
		logger:  logger,
		now:     time.Now,
		backoff: 2 * time.Second,
	}
}

// New 返回文章任务，同一天内以作者为身份键
func New(cfg conf.ArticlesConfig, outDir string, f collect.Fetcher, logger *zap.Logger) (*spider.Task, error) {
	s := NewSource(cfg, outDir, f, logger)
	return spider.NewTask(
		spider.WithName(Name),
		spider.WithTitle("韭研公社"),
		spider.WithDir(Dir),
		spider.WithIdentity(spider.FieldIdentity("author")),
		spider.WithView(spider.ListView("articles")),
		spider.WithCollector(s.Collect),
		spider.WithLogger(s.logger),
	)
}

/*
输入日期，输出每位作者当天的文章

作者之间相互独立，某位作者没有文章或抓取失败只记入Failures，不影响其他作者
*/
func (s *Source) Collect(ctx context.Context, date string) (*spider.Batch, error) {
	batch := &spider.Batch{}
	for _, a := range s.cfg.Authors {
		if err := ctx.Err(); err != nil {
			batch.Fail(collect.Fail(Name, collect.KindTimeout, "%s: %w", a.Name, err))
			continue
		}
		art, err := s.crawl(ctx, a, date)
		if err != nil {
			s.logger.Warn("article not collected",
				zap.String("author", a.Name),
				zap.String("date", date),
				zap.Error(err))
			batch.Fail(err)
			continue
		}
		if err := batch.Add(art); err != nil {
			batch.Fail(collect.Fail(Name, collect.KindShape, "%s: %w", a.Name, err))
			continue
		}
		s.logger.Info("article collected",
			zap.String("author", a.Name),
			zap.String("title", art.Title),
			zap.Int("words", art.WordCount),
			zap.Int("images", art.ImageCount))
	}
	return batch, nil
}

func (s *Source) crawl(ctx context.Context, a conf.AuthorConfig, date string) (*Article, error) {
	item, err := s.findArticle(ctx, a, date)
	if err != nil {
		return nil, err
	}
	page, err := s.fetchArticle(ctx, item.URL)
	if err != nil {
		return nil, err
	}
	title := item.Title
	if title == "" {
		title = page.Title
	}

	body, err := s.render(ctx, a, date, item.URL, page)
	if err != nil {
		return nil, err
	}

	return &Article{
		Title:          title,
		Author:         a.Name,
		Date:           date,
		URL:            item.URL,
		PublishTime:    item.PublishTime,
		CrawlTime:      s.now().In(market.Shanghai).Format("2006-01-02 15:04:05"),
		Mode:           a.Mode,
		Content:        body.Text,
		ContentPreview: Preview(body.Text, previewSize),
		ContentHTML:    body.HTML,
		Stats:          Stats{WordCount: WordCount(body.Text), ImageCount: len(body.Images)},
		WordCount:      WordCount(body.Text),
		ImageCount:     len(body.Images),
		Files:          body.Files,
		Images:         body.Images,
	}, nil
}

func (s *Source) timeout() time.Duration {
	return time.Duration(s.cfg.Timeout) * time.Millisecond
}
