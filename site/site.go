// Package site 根据各集合的索引生成静态站点：每天一个视图文件、日期列表，以及首页和JSON查看页。
// 站点只读取索引，从不修改它
package site

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"path/filepath"
	"time"

	"github.com/dszqbsm/stockdaily/engine"
	"github.com/dszqbsm/stockdaily/index"
	"github.com/dszqbsm/stockdaily/market"
	"github.com/dszqbsm/stockdaily/spider"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	DatesFile   = "dates.json"
	SummaryFile = "summary.json"

	// 首页每个集合最多展示的日期按钮数
	maxDateButtons = 30
)

//go:embed templates
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// 原样复制到站点根目录的静态文件
var assets = []string{"style.css", "script.js"}

// Collection 是首页上的一个标签页
type Collection struct {
	Name   string   `json:"name"`
	Title  string   `json:"title"`
	Dir    string   `json:"dir"`
	Months bool     `json:"months"`
	Dates  []string `json:"dates"`
	Latest string   `json:"latest"`
	Recent []string `json:"-"`
	Views  int      `json:"-"`
}

type Renderer struct {
	options
}

func New(opts ...Option) *Renderer {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Renderer{options: options}
}

/*
输入任务列表，输出首页上的集合信息

逐个集合加载索引并写出视图文件，某个集合的索引损坏时跳过它并记录错误，其余集合照常生成；
首页总是会写出，返回的error汇总了所有跳过的集合
*/
func (r *Renderer) Render(tasks ...*spider.Task) ([]Collection, error) {
	var (
		errs        error
		collections []Collection
	)
	for _, t := range tasks {
		c, err := r.collection(t)
		if err != nil {
			r.Logger.Error("collection skipped", zap.String("collection", t.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("site %s: %w", t.Name, err))
			continue
		}
		collections = append(collections, c)
	}
	if err := r.pages(collections); err != nil {
		return collections, multierr.Append(errs, err)
	}
	return collections, errs
}

func (r *Renderer) collection(t *spider.Task) (Collection, error) {
	logger := r.Logger.With(zap.String("collection", t.Name))
	st := index.NewFileStore(engine.StorePath(r.OutDir, t), t.Name, index.WithLogger(logger))
	idx, err := st.Load()
	if err != nil {
		return Collection{}, err
	}

	c := Collection{Name: t.Name, Title: t.Title, Dir: t.Dir, Months: t.Months, Dates: []string{}}
	if c.Title == "" {
		c.Title = t.Name
	}
	summary := make(map[string]interface{})

	for _, date := range idx.Dates() {
		b := idx.Bucket(date)
		if len(b.Items) == 0 {
			continue
		}
		if err := r.writeJSON(ViewPath(t, date), t.View(b)); err != nil {
			return c, err
		}
		c.Dates = append(c.Dates, date)
		c.Views++
		if t.Summary != nil {
			if s := t.Summary(b); s != nil {
				summary[date] = s
			}
		}
	}
	if len(c.Dates) > 0 {
		c.Latest = c.Dates[0]
	}
	c.Recent = c.Dates
	if len(c.Recent) > maxDateButtons {
		c.Recent = c.Recent[:maxDateButtons]
	}

	if err := r.writeJSON(path.Join(t.Dir, DatesFile), c.Dates); err != nil {
		return c, err
	}
	if t.Summary != nil {
		if err := r.writeJSON(path.Join(t.Dir, SummaryFile), map[string]interface{}{
			"update_time": r.clock().In(market.Shanghai).Format("2006-01-02 15:04:05"),
			"dates":       c.Dates,
			"data":        summary,
		}); err != nil {
			return c, err
		}
	}
	logger.Info("collection rendered", zap.Int("views", c.Views), zap.String("latest", c.Latest))
	return c, nil
}

// ViewPath 返回某天视图文件相对站点根目录的路径，按月归档的集合多一层 YYYY-MM 目录
func ViewPath(t *spider.Task, date string) string {
	if t.Months {
		return path.Join(t.Dir, market.Month(date), date+".json")
	}
	return path.Join(t.Dir, date+".json")
}

type pageData struct {
	Title       string
	GeneratedAt string
	Collections []Collection
}

func (r *Renderer) pages(collections []Collection) error {
	data := pageData{
		Title:       r.Title,
		GeneratedAt: r.clock().In(market.Shanghai).Format("2006-01-02 15:04:05"),
		Collections: collections,
	}
	for _, name := range []string{"index.html", "json_viewer.html"} {
		var buf bytes.Buffer
		if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
			return fmt.Errorf("site: render %s: %w", name, err)
		}
		if err := index.WriteFile(filepath.Join(r.OutDir, name), buf.Bytes()); err != nil {
			return err
		}
	}
	for _, name := range assets {
		content, err := fs.ReadFile(templateFS, "templates/"+name)
		if err != nil {
			return err
		}
		if err := index.WriteFile(filepath.Join(r.OutDir, name), content); err != nil {
			return err
		}
	}
	r.Logger.Info("site pages written", zap.String("dir", r.OutDir), zap.Int("collections", len(collections)))
	return nil
}

// writeJSON 以缩进、不转义HTML的形式原子地写出rel
func (r *Renderer) writeJSON(rel string, v interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("site: encode %s: %w", rel, err)
	}
	return index.WriteFile(filepath.Join(r.OutDir, filepath.FromSlash(rel)), buf.Bytes())
}

type options struct {
	OutDir string
	Title  string
	Logger *zap.Logger
	clock  func() time.Time
}

var defaultOptions = options{
	OutDir: ".",
	Title:  "股市每日数据",
	Logger: zap.NewNop(),
	clock:  time.Now,
}

type Option func(opts *options)

func WithOutDir(dir string) Option {
	return func(opts *options) {
		opts.OutDir = dir
	}
}

func WithTitle(title string) Option {
	return func(opts *options) {
		opts.Title = title
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithClock(clock func() time.Time) Option {
	return func(opts *options) {
		opts.clock = clock
	}
}
