package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/John-Robertt/moviecrawl/internal/domain"
	"github.com/John-Robertt/moviecrawl/internal/fetch"
)

// stubFetcher 按 URL 返回预设页面；统计会话的打开/关闭与同时在用的最大数量。
type stubFetcher struct {
	pages   map[string]string
	fail    map[string]error
	openErr error
	cached  bool
	delay   func(url string) time.Duration

	opened   atomic.Int64
	closed   atomic.Int64
	active   atomic.Int64
	maxInUse atomic.Int64
}

func (f *stubFetcher) Open(ctx context.Context) (fetch.Session, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened.Add(1)
	n := f.active.Add(1)
	for {
		cur := f.maxInUse.Load()
		if n <= cur || f.maxInUse.CompareAndSwap(cur, n) {
			break
		}
	}
	return &stubSession{f: f}, nil
}

type stubSession struct {
	f    *stubFetcher
	once sync.Once
}

func (s *stubSession) Fetch(ctx context.Context, url string) (fetch.Page, error) {
	if s.f.delay != nil {
		time.Sleep(s.f.delay(url))
	}
	if err, ok := s.f.fail[url]; ok {
		return fetch.Page{}, err
	}
	html, ok := s.f.pages[url]
	if !ok {
		html = pageFor(url)
	}
	return fetch.Page{URL: url, HTML: []byte(html), Cached: s.f.cached}, nil
}

func (s *stubSession) Close() error {
	s.once.Do(func() {
		s.f.active.Add(-1)
		s.f.closed.Add(1)
	})
	return nil
}

func pageFor(url string) string {
	return fmt.Sprintf(`<html><body><span data-testid="hero__primary-text">%s</span></body></html>`, url)
}

// titleParser 把整个 HTML 当作标题；panicOn 中的内容会触发 panic。
type titleParser struct {
	panicOn string
}

func (p titleParser) Parse(html []byte) (domain.MovieRecord, error) {
	s := string(html)
	if s == "" {
		return domain.MovieRecord{}, errors.New("html 为空")
	}
	if p.panicOn != "" && strings.Contains(s, p.panicOn) {
		panic("boom")
	}
	rec := domain.EmptyRecord()
	rec.Title = s
	return rec, nil
}

func recordSleep(calls *atomic.Int64) func(context.Context, time.Duration) error {
	return func(context.Context, time.Duration) error {
		calls.Add(1)
		return nil
	}
}

func TestWorker_Success(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"u1": "T1"}}
	var sleeps atomic.Int64
	w := &Worker{Fetcher: f, Parser: titleParser{}, RateLimit: time.Second, sleep: recordSleep(&sleeps)}

	rec, out, err := w.Process(context.Background(), domain.WorkUnit{Index: 0, URL: "u1"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rec.Title != "T1" || out.Cached {
		t.Fatalf("结果不正确：%+v %+v", rec, out)
	}
	if f.opened.Load() != 1 || f.closed.Load() != 1 {
		t.Fatalf("会话应开关各一次：open=%d close=%d", f.opened.Load(), f.closed.Load())
	}
	if sleeps.Load() != 1 {
		t.Fatalf("未命中缓存时应停顿一次：%d", sleeps.Load())
	}
}

func TestWorker_CachedPageSkipsPause(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"u1": "T1"}, cached: true}
	var sleeps atomic.Int64
	w := &Worker{Fetcher: f, Parser: titleParser{}, RateLimit: time.Second, sleep: recordSleep(&sleeps)}

	_, out, err := w.Process(context.Background(), domain.WorkUnit{URL: "u1"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !out.Cached || sleeps.Load() != 0 {
		t.Fatalf("缓存命中不应停顿：cached=%v sleeps=%d", out.Cached, sleeps.Load())
	}
}

func TestWorker_ZeroRateLimitSkipsPause(t *testing.T) {
	f := &stubFetcher{}
	var sleeps atomic.Int64
	w := &Worker{Fetcher: f, Parser: titleParser{}, sleep: recordSleep(&sleeps)}
	if _, _, err := w.Process(context.Background(), domain.WorkUnit{URL: "u1"}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if sleeps.Load() != 0 {
		t.Fatalf("RateLimit=0 不应停顿：%d", sleeps.Load())
	}
}

func TestWorker_FetchErrorClosesSession(t *testing.T) {
	f := &stubFetcher{fail: map[string]error{"u1": errors.New("timeout")}}
	var sleeps atomic.Int64
	w := &Worker{Fetcher: f, Parser: titleParser{}, RateLimit: time.Second, sleep: recordSleep(&sleeps)}

	_, _, err := w.Process(context.Background(), domain.WorkUnit{URL: "u1"})
	var fe *fetch.Error
	if !errors.As(err, &fe) || fe.Stage != fetch.StageFetch || fe.URL != "u1" {
		t.Fatalf("期望 fetch 阶段错误，实际 %v", err)
	}
	if ErrorCode(err) != domain.ErrCodeFetchFailed {
		t.Fatalf("错误码不正确：%s", ErrorCode(err))
	}
	if f.closed.Load() != 1 || sleeps.Load() != 0 {
		t.Fatalf("失败时也应关闭会话且不停顿：close=%d sleeps=%d", f.closed.Load(), sleeps.Load())
	}
}

func TestWorker_OpenError(t *testing.T) {
	f := &stubFetcher{openErr: errors.New("no browser")}
	w := &Worker{Fetcher: f, Parser: titleParser{}}

	_, _, err := w.Process(context.Background(), domain.WorkUnit{URL: "u1"})
	var fe *fetch.Error
	if !errors.As(err, &fe) || fe.Stage != fetch.StageOpen {
		t.Fatalf("期望 open 阶段错误，实际 %v", err)
	}
}

func TestWorker_ParseErrorAndPanic(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"empty": "", "bad": "explode"}}
	w := &Worker{Fetcher: f, Parser: titleParser{panicOn: "explode"}}

	for _, u := range []string{"empty", "bad"} {
		_, _, err := w.Process(context.Background(), domain.WorkUnit{URL: u})
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s：期望 ParseError，实际 %v", u, err)
		}
		if ErrorCode(err) != domain.ErrCodeParseFailed {
			t.Fatalf("%s：错误码不正确：%s", u, ErrorCode(err))
		}
	}
	if f.opened.Load() != 2 || f.closed.Load() != 2 {
		t.Fatalf("解析失败/panic 时会话也应关闭：open=%d close=%d", f.opened.Load(), f.closed.Load())
	}
}

func TestWorker_DefaultSleepHonorsContext(t *testing.T) {
	w := &Worker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := time.Now()
	if err := w.doSleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际 %v", err)
	}
	if time.Since(started) > time.Second {
		t.Fatalf("取消后不应继续等待")
	}
}
