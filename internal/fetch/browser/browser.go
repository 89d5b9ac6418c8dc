package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/semaphore"

	"github.com/John-Robertt/moviecrawl/internal/fetch"
	"github.com/John-Robertt/moviecrawl/internal/logger"
)

const defaultTimeout = 30 * time.Second

// Options 是无头浏览器后端的配置。
type Options struct {
	UserAgent string
	Headless  bool
	Timeout   time.Duration // 单次导航超时；<=0 使用默认 30s
	ProxyURL  string
	// MaxSessions 是同时存在的浏览器上下文上限（与 worker 池大小一致）。
	MaxSessions int
}

// Fetcher 持有一个 playwright 进程和一个 Chromium 实例；
// 每个 Session 是独立的 BrowserContext + Page（cookie/存储互不干扰）。
//
// 约束：
// - Open 受加权信号量约束：同时打开的会话数不超过 MaxSessions
// - Session.Close 释放上下文并归还信号量（幂等）
// - Fetcher.Close 在所有会话关闭后调用
type Fetcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	sem     *semaphore.Weighted
	opts    Options
	log     *logger.Logger
}

// New 启动 playwright 与浏览器。浏览器驱动缺失时返回错误（不会自动安装）。
func New(opts Options, log *logger.Logger) (*Fetcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts = normalize(opts)

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("启动 playwright 失败：%w", err)
	}
	b, err := pw.Chromium.Launch(launchOptions(opts))
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("启动浏览器失败：%w", err)
	}
	log.Info().Bool("headless", opts.Headless).Int("max_sessions", opts.MaxSessions).Msg("浏览器已启动")

	return &Fetcher{
		pw:      pw,
		browser: b,
		sem:     semaphore.NewWeighted(int64(opts.MaxSessions)),
		opts:    opts,
		log:     log,
	}, nil
}

func normalize(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1
	}
	opts.UserAgent = strings.TrimSpace(opts.UserAgent)
	opts.ProxyURL = strings.TrimSpace(opts.ProxyURL)
	return opts
}

func launchOptions(opts Options) playwright.BrowserTypeLaunchOptions {
	lo := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-blink-features=AutomationControlled",
			"--no-first-run",
			"--disable-default-apps",
			"--disable-extensions",
		},
	}
	if opts.ProxyURL != "" {
		lo.Proxy = &playwright.Proxy{Server: opts.ProxyURL}
	}
	return lo
}

func contextOptions(opts Options) playwright.BrowserNewContextOptions {
	co := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
	}
	if opts.UserAgent != "" {
		co.UserAgent = playwright.String(opts.UserAgent)
	}
	return co
}

func gotoOptions(opts Options) playwright.PageGotoOptions {
	return playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(opts.Timeout.Milliseconds())),
	}
}

// Open 获取一个会话配额，然后创建新的浏览器上下文与页面。
func (f *Fetcher) Open(ctx context.Context) (fetch.Session, error) {
	if f == nil || f.browser == nil {
		return nil, errors.New("浏览器未启动")
	}
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	bctx, err := f.browser.NewContext(contextOptions(f.opts))
	if err != nil {
		f.sem.Release(1)
		return nil, fmt.Errorf("创建浏览器上下文失败：%w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		f.sem.Release(1)
		return nil, fmt.Errorf("创建页面失败：%w", err)
	}
	return &session{f: f, bctx: bctx, page: page}, nil
}

// Close 关闭浏览器并停止 playwright。
func (f *Fetcher) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	if f.browser != nil {
		errs = append(errs, f.browser.Close())
	}
	if f.pw != nil {
		errs = append(errs, f.pw.Stop())
	}
	return errors.Join(errs...)
}

type session struct {
	f    *Fetcher
	bctx playwright.BrowserContext
	page playwright.Page

	once sync.Once
	err  error
}

func (s *session) Fetch(ctx context.Context, url string) (fetch.Page, error) {
	if err := ctx.Err(); err != nil {
		return fetch.Page{}, err
	}
	resp, err := s.page.Goto(url, gotoOptions(s.f.opts))
	if err != nil {
		return fetch.Page{}, fmt.Errorf("导航失败：%w", err)
	}
	// 同文档导航时 resp 可能为 nil。
	if resp != nil {
		if st := resp.Status(); st < 200 || st >= 300 {
			return fetch.Page{}, &fetch.HTTPStatusError{URL: url, StatusCode: st}
		}
	}
	html, err := s.page.Content()
	if err != nil {
		return fetch.Page{}, fmt.Errorf("读取页面内容失败：%w", err)
	}
	return fetch.Page{URL: url, HTML: []byte(html)}, nil
}

func (s *session) Close() error {
	s.once.Do(func() {
		s.err = s.bctx.Close()
		s.f.sem.Release(1)
	})
	return s.err
}
