package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/moviecrawl/internal/fetch"
)

const defaultTimeout = 30 * time.Second

// maxBodyBytes 是单个页面的读取上限；测试里会调小。
var maxBodyBytes int64 = 16 << 20

// ErrBodyTooLarge 表示响应体超过读取上限；页面不会被截断后交给解析。
var ErrBodyTooLarge = errors.New("响应体超过读取上限")

// Options 是纯 HTTP 后端的配置。
type Options struct {
	UserAgent string        // 为空时每个请求从内置 UA 池随机选择
	ProxyURL  string        // 非空时所有请求走代理，且禁用 keep-alive
	Timeout   time.Duration // <=0 使用默认 30s
}

// Fetcher 用普通 HTTP GET 获取页面（不执行 JS）。
// 适用于服务端直出的详情页；需要渲染时使用 browser 后端。
//
// 约束：
// - 不做重试（失败直接返回，由上层记为 fetch_failed）
// - 非 2xx 一律返回 *fetch.HTTPStatusError
type Fetcher struct {
	Client *http.Client
}

func New(opts Options) (*Fetcher, error) {
	c, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	return &Fetcher{Client: c}, nil
}

// Open 返回一个轻量会话；所有会话共享同一个 http.Client（连接池）。
func (f *Fetcher) Open(ctx context.Context) (fetch.Session, error) {
	if f == nil || f.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return session{c: f.Client}, nil
}

type session struct{ c *http.Client }

func (s session) Fetch(ctx context.Context, u string) (fetch.Page, error) {
	if strings.TrimSpace(u) == "" {
		return fetch.Page{}, errors.New("url 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fetch.Page{}, err
	}
	resp, err := s.c.Do(req)
	if err != nil {
		return fetch.Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fetch.Page{}, &fetch.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	// 多读 1 字节用来区分“恰好到上限”和“超出上限”。
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return fetch.Page{}, err
	}
	if int64(len(b)) > maxBodyBytes {
		return fetch.Page{}, fmt.Errorf("%w：limit=%d url=%s", ErrBodyTooLarge, maxBodyBytes, u)
	}
	return fetch.Page{URL: u, HTML: b}, nil
}

func (session) Close() error { return nil }

// Transport 给每个请求补上 User-Agent，并在代理模式下强制每请求新连接。
type Transport struct {
	Base *http.Transport

	// UserAgent 非空时固定使用；为空时从 ua 池随机。
	UserAgent string
	ua        *uaPool

	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}
	// Clone 会复制 Header，避免在 RoundTripper 内部修改调用方的 request。
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		ua := t.UserAgent
		if ua == "" {
			ua = t.ua.random()
		}
		r.Header.Set("User-Agent", ua)
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

func newClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
	}

	disableKeepAlives := false
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		// 代理模式每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Transport: &Transport{
			Base:              base,
			UserAgent:         strings.TrimSpace(opts.UserAgent),
			ua:                globalUA,
			DisableKeepAlives: disableKeepAlives,
		},
		Timeout: timeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
