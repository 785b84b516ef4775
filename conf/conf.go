// Package conf 从config.toml加载运行配置。配置是一个普通的值，由cmd层创建后显式传给各个任务
package conf

import (
	"errors"
	"fmt"
	"os"

	"github.com/dszqbsm/stockdaily/limiter"
	"github.com/go-micro/plugins/v4/config/encoder/toml"
	"go-micro.dev/v4/config"
	"go-micro.dev/v4/config/reader"
	"go-micro.dev/v4/config/reader/json"
	"go-micro.dev/v4/config/source"
	"go-micro.dev/v4/config/source/file"
)

type Config struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile"`
	OutDir   string `json:"outDir"`

	Fetcher  FetcherConfig    `json:"fetcher"`
	Limits   []limiter.Config `json:"limits"`
	Sources  SourcesConfig    `json:"sources"`
	Articles ArticlesConfig   `json:"articles"`
	Storage  StorageConfig    `json:"storage"`
}

type FetcherConfig struct {
	Timeout   int      `json:"timeout"`  // 毫秒
	WaitTime  int      `json:"waitTime"` // 每次请求前的随机等待上限，毫秒
	Proxy     []string `json:"proxy"`
	UserAgent string   `json:"userAgent"`
}

type SourcesConfig struct {
	LimitUp     LimitUpConfig     `json:"limitup"`
	Anomaly     AnomalyConfig     `json:"anomaly"`
	DragonTiger DragonTigerConfig `json:"dragontiger"`
	Ztts        ZttsConfig        `json:"ztts"`
}

type LimitUpConfig struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout"`
}

type AnomalyConfig struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout"`
}

type DragonTigerConfig struct {
	URL      string `json:"url"`
	PageSize int    `json:"pageSize"`
	Workers  int    `json:"workers"`
	Delay    int    `json:"delay"` // 每个详情请求之间的间隔，毫秒
	Timeout  int    `json:"timeout"`
}

type ZttsConfig struct {
	URL      string `json:"url"`
	APIURL   string `json:"apiURL"`
	Remote   string `json:"remote"` // 已启动浏览器的DevTools地址，为空时由rod自行启动
	Wait     int    `json:"wait"`   // 页面加载等待，秒
	MaxSteps int    `json:"maxSteps"`
	Timeout  int    `json:"timeout"`
}

type AuthorConfig struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	DirPrefix string `json:"dirPrefix"`
	Mode      string `json:"mode"` // full 或 simple
}

type ArticlesConfig struct {
	BaseURL string         `json:"baseURL"`
	Authors []AuthorConfig `json:"authors"`
	Retries int            `json:"retries"`
	Timeout int            `json:"timeout"`
}

type StorageConfig struct {
	SQLURL     string `json:"sqlURL"`
	BatchCount int    `json:"batchCount"`
}

const (
	ModeFull   = "full"
	ModeSimple = "simple"
)

// Default 返回内置默认值，配置文件中出现的字段会覆盖它们
func Default() Config {
	return Config{
		LogLevel: "INFO",
		OutDir:   ".",
		Fetcher: FetcherConfig{
			Timeout:  15000,
			WaitTime: 500,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
				"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Limits: []limiter.Config{
			{EventCount: 1, EventDur: 1, Bucket: 2},
		},
		Sources: SourcesConfig{
			LimitUp: LimitUpConfig{
				URL:     "https://x-quote.cls.cn/quote/index/up_down_analysis",
				Timeout: 10000,
			},
			Anomaly: AnomalyConfig{
				URL:     "https://app.jiuyangongshe.com/jystock-app/api/v1/action/field",
				Timeout: 15000,
			},
			DragonTiger: DragonTigerConfig{
				URL:      "https://datacenter-web.eastmoney.com/api/data/v1/get",
				PageSize: 500,
				Workers:  3,
				Delay:    300,
				Timeout:  10000,
			},
			Ztts: ZttsConfig{
				URL:      "https://webrelease.dzh.com.cn/htmlweb/ztts/index.php",
				APIURL:   "https://webrelease.dzh.com.cn/htmlweb/ztts/api.php",
				Wait:     10,
				MaxSteps: 30,
				Timeout:  60000,
			},
		},
		Articles: ArticlesConfig{
			BaseURL: "https://www.jiuyangongshe.com",
			Authors: []AuthorConfig{
				{Name: "盘前纪要", URL: "https://www.jiuyangongshe.com/u/4df747be1bf143a998171ef03559b517", DirPrefix: "韭研公社_盘前纪要", Mode: ModeFull},
				{Name: "盘前解读", URL: "https://www.jiuyangongshe.com/u/97fc2a020e644adb89570e69ae35ec02", DirPrefix: "韭研公社_盘前解读", Mode: ModeFull},
				{Name: "优秀阿呆", URL: "https://www.jiuyangongshe.com/u/88cf268bc56c423c985b87d1b1ff5de4", DirPrefix: "韭研公社_优秀阿呆", Mode: ModeSimple},
			},
			Retries: 3,
			Timeout: 15000,
		},
		Storage: StorageConfig{
			BatchCount: 50,
		},
	}
}

/*
输入配置文件路径，输出合并了默认值的配置

与worker节点相同的加载方式：json读取器配合toml编码器。文件不存在时直接使用默认值
*/
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return c, nil
	}

	enc := toml.NewEncoder()
	cfg, err := config.NewConfig(config.WithReader(json.NewReader(reader.WithEncoder(enc))))
	if err != nil {
		return c, fmt.Errorf("conf: new config: %w", err)
	}
	defer cfg.Close()

	if err := cfg.Load(file.NewSource(
		file.WithPath(path),
		source.WithEncoder(enc),
	)); err != nil {
		return c, fmt.Errorf("conf: load %s: %w", path, err)
	}
	if err := cfg.Scan(&c); err != nil {
		return c, fmt.Errorf("conf: scan %s: %w", path, err)
	}
	return c, c.Validate()
}

// Validate 检查会导致运行期才暴露的配置错误
func (c Config) Validate() error {
	if c.OutDir == "" {
		return errors.New("conf: outDir is empty")
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("conf: fetcher.timeout must be positive, got %d", c.Fetcher.Timeout)
	}
	// 各数据源的timeout为0时沿用fetcher.timeout
	for name, ms := range map[string]int{
		"sources.limitup":     c.Sources.LimitUp.Timeout,
		"sources.anomaly":     c.Sources.Anomaly.Timeout,
		"sources.dragontiger": c.Sources.DragonTiger.Timeout,
		"sources.ztts":        c.Sources.Ztts.Timeout,
		"articles":            c.Articles.Timeout,
	} {
		if ms < 0 {
			return fmt.Errorf("conf: %s.timeout must not be negative, got %d", name, ms)
		}
	}
	for _, a := range c.Articles.Authors {
		if a.Name == "" || a.URL == "" {
			return fmt.Errorf("conf: author %q needs name and url", a.Name)
		}
		if a.Mode != ModeFull && a.Mode != ModeSimple {
			return fmt.Errorf("conf: author %q has unknown mode %q", a.Name, a.Mode)
		}
	}
	if c.Sources.DragonTiger.Workers < 1 {
		return errors.New("conf: sources.dragontiger.workers must be at least 1")
	}
	return nil
}
