package jiuyan

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	xhtml "golang.org/x/net/html"
)

const utf8BOM = "\ufeff"

var (
	sanitizer = bluemonday.UGCPolicy()
	mdConv    = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

type rendered struct {
	Text   string
	HTML   string
	Images []Image
	Files  Files
}

/*
输入作者、日期和文章正文HTML，输出整理后的正文

full模式下载图片并用占位符替换<img>，按 p、div、li 分行；simple模式只取 p 段落，段落间空一行。
txt和md文件写在 <outDir>/articles/<前缀>/<日期>/ 下，返回值中的路径相对outDir
*/
func (s *Source) render(ctx context.Context, a conf.AuthorConfig, date, articleURL string, p *page) (*rendered, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "parse article: %w", err)
	}

	rel := path.Join(Dir, a.DirPrefix, date)
	dir := filepath.Join(s.outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jiuyan: %w", err)
	}

	out := &rendered{}
	var text string
	if a.Mode == conf.ModeFull {
		out.Images = s.replaceImages(ctx, doc, articleURL, rel, dir)
		text = blockText(doc, "p, div, li", "\n")
	} else {
		text = blockText(doc, "p", "\n\n")
	}
	out.Text = CollapsePlaceholders(text)

	body, err := doc.Find("body").Html()
	if err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "render article: %w", err)
	}
	out.HTML = sanitizer.Sanitize(body)

	baseName := a.Name + "_" + date
	if err := os.WriteFile(filepath.Join(dir, baseName+".txt"), []byte(utf8BOM+out.Text), 0o644); err != nil {
		return nil, fmt.Errorf("jiuyan: write txt: %w", err)
	}
	out.Files.Txt = path.Join(rel, baseName+".txt")

	md, err := mdConv.ConvertString(out.HTML)
	if err != nil || strings.TrimSpace(md) == "" {
		s.logger.Warn("markdown conversion failed, fall back to text", zap.String("author", a.Name), zap.Error(err))
		md = out.Text
	}
	if err := os.WriteFile(filepath.Join(dir, baseName+".md"), []byte(md), 0o644); err != nil {
		return nil, fmt.Errorf("jiuyan: write md: %w", err)
	}
	out.Files.Md = path.Join(rel, baseName+".md")
	return out, nil
}

/*
下载正文中的图片并替换为 [图片:imgN.ext] 占位符

同一篇文章里重复出现的图片地址只下载一次，复用同一个占位符；下载或校验失败的图片保持原样
*/
func (s *Source) replaceImages(ctx context.Context, doc *goquery.Document, articleURL, rel, dir string) []Image {
	var images []Image
	seen := make(map[string]string)
	base, _ := url.Parse(articleURL)

	imgDir := filepath.Join(dir, "images")
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", img.AttrOr("data-src", "")))
		if src == "" {
			return
		}
		if u, err := url.Parse(src); err == nil && base != nil {
			src = base.ResolveReference(u).String()
		}
		if ph, ok := seen[src]; ok {
			img.ReplaceWithHtml(html.EscapeString(ph))
			return
		}

		n := len(images) + 1
		fname := fmt.Sprintf("img%d%s", n, imageExt(src))
		if err := s.download(ctx, src, articleURL, imgDir, fname); err != nil {
			s.logger.Warn("image skipped", zap.String("src", src), zap.Error(err))
			return
		}
		ph := "[图片:" + fname + "]"
		seen[src] = ph
		images = append(images, Image{
			Placeholder: ph,
			Filename:    fname,
			Src:         path.Join(rel, "images", fname),
			Alt:         fmt.Sprintf("图片%d", n),
			Origin:      src,
		})
		img.ReplaceWithHtml(html.EscapeString(ph))
	})
	return images
}

func (s *Source) download(ctx context.Context, src, referer, dir, fname string) error {
	data, err := s.fetcher.Get(ctx, &collect.Request{
		Source:  Name,
		URL:     src,
		Header:  http.Header{"Referer": {referer}, "Accept": {"image/avif,image/webp,image/*,*/*;q=0.8"}},
		Timeout: s.timeout(),
		Raw:     true,
	})
	if err != nil {
		return err
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("not an image: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fname), data, 0o644)
}

// imageExt 从地址路径中取扩展名，取不到或过长时用.jpg
func imageExt(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ".jpg"
	}
	ext := path.Ext(u.Path)
	if ext == "" || len(ext) > 5 {
		return ".jpg"
	}
	return ext
}

// blockText 按选择器取出每个块去掉首尾空白后的文字，空块跳过
func blockText(doc *goquery.Document, selector, sep string) string {
	var lines []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if t := strippedText(sel); t != "" {
			lines = append(lines, t)
		}
	})
	return strings.Join(lines, sep)
}

func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
