package ztts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dszqbsm/stockdaily/collect"
	"github.com/dszqbsm/stockdaily/conf"
	"github.com/dszqbsm/stockdaily/market"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// Stat 是页面上某一天的涨跌停统计
type Stat struct {
	LU   *collect.Number `json:"lu"`
	LUFB *collect.Number `json:"lufb"`
	LUOP *collect.Number `json:"luop"`
	LD   *collect.Number `json:"ld"`
	LDFB *collect.Number `json:"ldfb"`
	LDOP *collect.Number `json:"ldop"`
}

// Wad 是涨停数量的趋势数据
type Wad struct {
	Num     *collect.Number `json:"num"`
	Rank100 *collect.Number `json:"rank100"`
	Avg5    *collect.Number `json:"avg5"`
	Type    *collect.Number `json:"type"`
	Days    *collect.Number `json:"days"`
}

// Snapshot 是从页面Vue实例和DOM中读出的原始数据
type Snapshot struct {
	Date        string          `json:"date"`
	CrawlTime   string          `json:"crawlTime"`
	Analysis    string          `json:"analysis"`
	MarketSense *collect.Number `json:"marketSense"`
	Today       *Stat           `json:"todayStat"`
	Yesterday   *Stat           `json:"yesterdayStat"`
	MaxBan      *collect.Number `json:"maxBan"`
	LbNum       *collect.Number `json:"lbNum"`
	Zrb         *collect.Number `json:"zrb"`
	Cjzt        *collect.Number `json:"cjzt"`
	Wad         *Wad            `json:"todayWad"`
	ZrztRate    interface{}     `json:"zrztRate"`
	ShRate      interface{}     `json:"shRate"`
}

// Dashboard 读取涨停透视页面在指定日期的数据
type Dashboard interface {
	Snapshot(ctx context.Context, date string) (*Snapshot, error)
}

const (
	readyScript = `() => {
		const el = document.querySelector('#app');
		return !!(el && el.__vue__ && (el.__vue__.today || el.__vue__.thisDay));
	}`
	dateScript = `() => {
		try {
			const app = document.querySelector('#app').__vue__;
			return String(app.today || app.thisDay || '');
		} catch (e) {
			return '';
		}
	}`
	changedScript = `(prev) => {
		try {
			const app = document.querySelector('#app').__vue__;
			return String(app.today || app.thisDay || '') !== prev;
		} catch (e) {
			return false;
		}
	}`
	extractScript = `() => {
		const app = document.querySelector('#app').__vue__;
		const intro = document.querySelector('.mod-introduction');
		const text = intro ? intro.innerText.trim() : '';
		return {
			date: String(app.thisDay || app.today || ''),
			crawlTime: new Date().toISOString(),
			analysis: text.split('\n').filter(l => l.trim()).join('\n\n'),
			marketSense: app.todayMarketSense,
			todayStat: app.todayStat || null,
			yesterdayStat: app.yesterdayStat || null,
			maxBan: app.todayMaxban,
			lbNum: app.todayLbnum,
			zrb: app.todayZrb,
			cjzt: app.todayCjzt,
			todayWad: app.todayWad || null,
			zrztRate: app.zrztRate || null,
			shRate: app.shRate || null
		};
	}`
)

// RodDashboard 用rod驱动一个带stealth的无头浏览器读取页面
type RodDashboard struct {
	cfg    conf.ZttsConfig
	logger *zap.Logger
}

func NewRodDashboard(cfg conf.ZttsConfig, logger *zap.Logger) *RodDashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RodDashboard{cfg: cfg, logger: logger}
}

func (d *RodDashboard) connect(ctx context.Context) (*rod.Browser, func(), error) {
	controlURL := d.cfg.Remote
	var l *launcher.Launcher
	if controlURL == "" {
		l = launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}
	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}
	return b, func() {
		if err := b.Close(); err != nil {
			d.logger.Debug("close browser", zap.Error(err))
		}
		if l != nil {
			l.Kill()
		}
	}, nil
}

/*
输入日期，输出页面在该日期下的数据

页面默认展示最近一个交易日，通过点击 .prev/.next 翻到目标日期，最多翻MaxSteps次；
翻不到目标日期时返回not_found，不会把其他日期的数据当作目标日期返回
*/
func (d *RodDashboard) Snapshot(ctx context.Context, date string) (*Snapshot, error) {
	timeout := time.Duration(d.cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b, closeFn, err := d.connect(ctx)
	if err != nil {
		return nil, collect.Fail(Name, collect.KindNetwork, "%w", err)
	}
	defer closeFn()

	page, err := stealth.Page(b)
	if err != nil {
		return nil, collect.Fail(Name, collect.KindNetwork, "open page: %w", err)
	}
	page = page.Context(ctx)
	if err := page.Navigate(d.cfg.URL); err != nil {
		return nil, collect.Fail(Name, collect.KindNetwork, "navigate %s: %w", d.cfg.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		d.logger.Warn("wait load", zap.Error(err))
	}
	if err := page.Wait(rod.Eval(readyScript)); err != nil {
		return nil, collect.Fail(Name, collect.KindTimeout, "vue app not ready: %w", err)
	}
	if d.cfg.Wait > 0 {
		if err := page.WaitIdle(time.Duration(d.cfg.Wait) * time.Second); err != nil {
			d.logger.Debug("wait idle", zap.Error(err))
		}
	}

	if err := d.navigate(page, market.Compact(date)); err != nil {
		return nil, err
	}

	res, err := page.Eval(extractScript)
	if err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "extract: %w", err)
	}
	var snap Snapshot
	if err := res.Value.Unmarshal(&snap); err != nil {
		return nil, collect.Fail(Name, collect.KindShape, "decode snapshot: %w", err)
	}
	return &snap, nil
}

func currentDate(page *rod.Page) (string, error) {
	res, err := page.Eval(dateScript)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// navigate 把页面翻到target（YYYYMMDD）
func (d *RodDashboard) navigate(page *rod.Page, target string) error {
	cur, err := currentDate(page)
	if err != nil {
		return collect.Fail(Name, collect.KindShape, "read page date: %w", err)
	}
	for step := 0; cur != target; step++ {
		if step >= d.cfg.MaxSteps {
			return collect.Fail(Name, collect.KindNotFound, "page stops at %s after %d steps, want %s", cur, step, target)
		}
		sel := ".next"
		if cur > target {
			sel = ".prev"
		}
		btn, err := page.Element(sel)
		if err != nil {
			return collect.Fail(Name, collect.KindShape, "find %s: %w", sel, err)
		}
		if class, _ := btn.Attribute("class"); class != nil && strings.Contains(*class, "disable") {
			return collect.Fail(Name, collect.KindNotFound, "%s disabled at %s, want %s", sel, cur, target)
		}
		if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return collect.Fail(Name, collect.KindShape, "click %s: %w", sel, err)
		}
		if err := page.Wait(rod.Eval(changedScript, cur)); err != nil {
			return collect.Fail(Name, collect.KindTimeout, "page date unchanged after click: %w", err)
		}
		if cur, err = currentDate(page); err != nil {
			return collect.Fail(Name, collect.KindShape, "read page date: %w", err)
		}
		d.logger.Debug("dashboard moved", zap.String("date", cur), zap.Int("step", step+1))
	}
	return nil
}
