package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/moviecrawl/internal/app/run"
	"github.com/John-Robertt/moviecrawl/internal/config"
	"github.com/John-Robertt/moviecrawl/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的简洁进度输出。
//
// 约束：
// - 只写到 stderr（或 fallback 到 stdout），不污染 stdout 的报告 JSON
// - 长时间没有条目完成时，ticker 定期输出一行 keepalive
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total  int
	done   int
	ok     int
	fail   int
	active int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] moviecrawl run\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  input: %s\n", eff.InputPath)
	if eff.Limit > 0 {
		fmt.Fprintf(p.w, "  limit: %d\n", eff.Limit)
	}
	fmt.Fprintf(p.w, "  fetcher: %s\n", formatFetcher(eff))
	fmt.Fprintf(p.w, "  workers: %d\n", eff.WorkerPoolSize)
	fmt.Fprintf(p.w, "  rate_limit: %s\n", formatShortDuration(eff.RateLimit))
	fmt.Fprintf(p.w, "  timeout: %s\n", formatShortDuration(eff.Timeout))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  cache: %s\n", formatCache(eff.Cache))
	if ua := strings.TrimSpace(eff.UserAgent); ua != "" {
		fmt.Fprintf(p.w, "  user_agent: %s\n", truncate(ua, 80))
	}

	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  output: %s\n", eff.OutputPath)
	if eff.ReportPath != "" {
		fmt.Fprintf(p.w, "  report: %s\n", eff.ReportPath)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "load":
		fmt.Fprintf(p.w, "读取: links=%d (%s)\n", intField(fields, "links"), formatShortDuration(dur))
	case "crawl":
		fmt.Fprintf(p.w, "\n抓取: ok=%d fail=%d skip=%d (%s)\n",
			intField(fields, "succeeded"), intField(fields, "failed"), intField(fields, "skipped"), formatElapsed(dur),
		)
		p.stopTickerLocked()
	case "write":
		fmt.Fprintf(p.w, "写出: records=%d errors=%d (%s)\n",
			intField(fields, "records"), intField(fields, "errors"), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemStart(domain.WorkUnit) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active++
	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnItemDone(done, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.total = total
	if p.active > 0 {
		p.active--
	}

	switch res.Status {
	case domain.StatusSucceeded:
		p.ok++
		cached := ""
		if res.Cached {
			cached = " (cache)"
		}
		fmt.Fprintf(p.w, "[%d/%d] OK %s %s%s (%s)\n",
			done, total, truncate(res.URL, 100), truncate(res.Title, 60), cached, formatShortDuration(dur),
		)
	default:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s %s: %s (%s)\n",
			done, total, truncate(res.URL, 100), res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	}

	p.lastPrinted = time.Now()
	if p.done >= p.total {
		p.stopTickerLocked()
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stopCh := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > threshold {
					p.printProgressLocked()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

func (p *progressUI) printProgressLocked() {
	fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d active=%d elapsed=%s\n",
		p.done, p.total, p.ok, p.fail, p.active, formatElapsed(time.Since(p.startedAt)),
	)
	p.lastPrinted = time.Now()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatFetcher(eff config.EffectiveConfig) string {
	if eff.Fetcher == config.FetcherHTTP {
		return "http"
	}
	return "browser (headless=" + onOff(eff.Headless) + ")"
}

func formatCache(c config.Cache) string {
	switch {
	case c.RedisAddr != "":
		return "redis (" + c.RedisAddr + ")"
	case c.Dir != "":
		return "dir (" + truncate(c.Dir, 120) + ")"
	default:
		return "off"
	}
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
