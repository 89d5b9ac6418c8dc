package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/moviecrawl/internal/fetch"
)

func TestFetcher_SendsConfiguredUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html><title>ok</title></html>"))
	}))
	defer srv.Close()

	f, err := New(Options{UserAgent: "moviecrawl-test/1.0"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	sess, err := f.Open(context.Background())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	defer sess.Close()

	p, err := sess.Fetch(context.Background(), srv.URL+"/title/tt1/")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if gotUA != "moviecrawl-test/1.0" {
		t.Fatalf("UA 不符合预期：%q", gotUA)
	}
	if string(p.HTML) != "<html><title>ok</title></html>" || p.Cached {
		t.Fatalf("页面内容不符合预期：%+v", p)
	}
}

func TestFetcher_EmptyUserAgentUsesPool(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	f, _ := New(Options{})
	sess, _ := f.Open(context.Background())
	if _, err := sess.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	found := false
	for _, ua := range globalUA.uas {
		if ua == gotUA {
			found = true
		}
	}
	if !found {
		t.Fatalf("UA 应来自内置池：%q", gotUA)
	}
}

func TestFetcher_Non2xxIsHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/captcha")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f, _ := New(Options{})
	sess, _ := f.Open(context.Background())
	_, err := sess.Fetch(context.Background(), srv.URL)

	var hs *fetch.HTTPStatusError
	if !errors.As(err, &hs) {
		t.Fatalf("期望 *fetch.HTTPStatusError，实际：%v", err)
	}
	if hs.StatusCode != http.StatusForbidden || hs.Location != "/captcha" {
		t.Fatalf("状态码/Location 不符合预期：%+v", hs)
	}
}

func TestFetcher_BodyOverLimitIsError(t *testing.T) {
	old := maxBodyBytes
	maxBodyBytes = 64
	t.Cleanup(func() { maxBodyBytes = old })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/exact":
			_, _ = w.Write([]byte(strings.Repeat("a", 64)))
		default:
			_, _ = w.Write([]byte(strings.Repeat("a", 65)))
		}
	}))
	defer srv.Close()

	f, _ := New(Options{})
	sess, _ := f.Open(context.Background())

	p, err := sess.Fetch(context.Background(), srv.URL+"/exact")
	if err != nil {
		t.Fatalf("恰好到上限不应报错：%v", err)
	}
	if len(p.HTML) != 64 {
		t.Fatalf("页面长度不正确：%d", len(p.HTML))
	}

	p, err = sess.Fetch(context.Background(), srv.URL+"/big")
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("期望 ErrBodyTooLarge，实际：%v", err)
	}
	if len(p.HTML) != 0 {
		t.Fatalf("超限时不应返回截断的页面：%d 字节", len(p.HTML))
	}
}

func TestFetcher_OpenCanceledContext(t *testing.T) {
	f, _ := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际：%v", err)
	}
}

func TestNew_ProxyDisablesKeepAlive(t *testing.T) {
	f, err := New(Options{ProxyURL: "http://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := f.Client.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", f.Client.Transport)
	}
	if tr.Base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !tr.Base.DisableKeepAlives || !tr.DisableKeepAlives {
		t.Fatalf("代理模式应禁用 keep-alive")
	}
}

func TestNew_NoProxyKeepsDefault(t *testing.T) {
	f, err := New(Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := f.Client.Transport.(*Transport)
	if tr.Base.Proxy != nil || tr.Base.DisableKeepAlives {
		t.Fatalf("无代理时不应改变默认连接策略")
	}
	if f.Client.Timeout != defaultTimeout {
		t.Fatalf("默认超时不正确：%v", f.Client.Timeout)
	}
}

func TestNew_InvalidProxyURL(t *testing.T) {
	if _, err := New(Options{ProxyURL: "http://[::1"}); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}
