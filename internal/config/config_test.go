package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/John-Robertt/moviecrawl/internal/extract"
)

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

func TestLoadEffective_NoConfigUsesDefaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("没有配置文件时 ConfigPath 应为空：%q", eff.ConfigPath)
	}
	if eff.InputPath != filepath.Join(cwd, DefaultInputPath) || eff.OutputPath != filepath.Join(cwd, DefaultOutputPath) {
		t.Fatalf("默认路径不正确：in=%q out=%q", eff.InputPath, eff.OutputPath)
	}
	if eff.RateLimit != 2*time.Second || eff.WorkerPoolSize != DefaultWorkerPoolSize {
		t.Fatalf("默认限速/并发不正确：%v %d", eff.RateLimit, eff.WorkerPoolSize)
	}
	if !eff.Headless || eff.Fetcher != FetcherBrowser || eff.Timeout != 30*time.Second {
		t.Fatalf("默认浏览器配置不正确：%+v", eff)
	}
	if eff.Cache.Enabled() || eff.ReportPath != "" || eff.Limit != 0 {
		t.Fatalf("默认不应启用缓存/报告/limit：%+v", eff)
	}
	if eff.Selectors != extract.DefaultSelectors() {
		t.Fatalf("默认选择器不正确")
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.yaml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_YAMLDiscovered(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "moviecrawl.yaml"), []byte(`
input_path: data/links.xlsx
output_path: data/out.csv
report_path: data/report.json
limit: 5
rate_limit_seconds: 0.5
worker_pool_size: 8
user_agent: "Mozilla/5.0 test"
headless: false
fetcher: http
timeout_seconds: 10
proxy_url: http://127.0.0.1:7890
cache:
  dir: .cache
  ttl_seconds: 3600
  read_only: true
selectors:
  title: h1.title
log_level: debug
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != filepath.Join(cwd, "moviecrawl.yaml") {
		t.Fatalf("ConfigPath 不正确：%q", eff.ConfigPath)
	}
	if eff.InputPath != filepath.Join(cwd, "data", "links.xlsx") || eff.ReportPath != filepath.Join(cwd, "data", "report.json") {
		t.Fatalf("路径未按 cwd 解析：%+v", eff)
	}
	if eff.Limit != 5 || eff.RateLimit != 500*time.Millisecond || eff.WorkerPoolSize != 8 {
		t.Fatalf("数值字段不正确：%+v", eff)
	}
	if eff.Headless || eff.Fetcher != FetcherHTTP || eff.Timeout != 10*time.Second {
		t.Fatalf("抓取配置不正确：%+v", eff)
	}
	if eff.UserAgent != "Mozilla/5.0 test" || eff.ProxyURL != "http://127.0.0.1:7890" || eff.LogLevel != "debug" {
		t.Fatalf("字符串字段不正确：%+v", eff)
	}
	if eff.Cache.Dir != filepath.Join(cwd, ".cache") || eff.Cache.TTL != time.Hour || !eff.Cache.ReadOnly || !eff.Cache.Enabled() {
		t.Fatalf("缓存配置不正确：%+v", eff.Cache)
	}
	if eff.Selectors.Title != "h1.title" || eff.Selectors.Year != extract.DefaultSelectors().Year {
		t.Fatalf("选择器应部分覆盖：%+v", eff.Selectors)
	}
}

func TestLoadEffective_JSONConfigAndCLIOverride(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "crawl.json"), []byte(`{"input_path":"a.csv","output_path":"b.csv","worker_pool_size":2,"headless":true,"limit":3,"fetcher":"browser"}`))

	eff, err := LoadEffective(cwd, CLIArgs{
		ConfigPath:  "crawl.json",
		Input:       "c.csv",
		Limit:       0,
		LimitSet:    true,
		Workers:     6,
		WorkersSet:  true,
		Fetcher:     "HTTP",
		Headless:    false,
		HeadlessSet: true, // --headless=false
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.InputPath != filepath.Join(cwd, "c.csv") || eff.OutputPath != filepath.Join(cwd, "b.csv") {
		t.Fatalf("CLI 路径覆盖不正确：%+v", eff)
	}
	if eff.Limit != 0 || eff.WorkerPoolSize != 6 || eff.Headless || eff.Fetcher != FetcherHTTP {
		t.Fatalf("CLI 覆盖不正确：%+v", eff)
	}
}

func TestLoadEffective_WorkersClamped(t *testing.T) {
	cwd := t.TempDir()
	eff, err := LoadEffective(cwd, CLIArgs{Workers: 100, WorkersSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.WorkerPoolSize != MaxWorkerPoolSize {
		t.Fatalf("期望截断到 %d，实际 %d", MaxWorkerPoolSize, eff.WorkerPoolSize)
	}
	eff, err = LoadEffective(cwd, CLIArgs{Workers: -3, WorkersSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.WorkerPoolSize != MinWorkerPoolSize {
		t.Fatalf("期望截断到 %d，实际 %d", MinWorkerPoolSize, eff.WorkerPoolSize)
	}
}

func TestLoadEffective_RateLimitZeroAllowed(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "moviecrawl.yml"), []byte("rate_limit_seconds: 0\n"))
	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.RateLimit != 0 {
		t.Fatalf("显式 0 不应被默认值覆盖：%v", eff.RateLimit)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":      "input_path: [",
		"bad fetcher":   "fetcher: curl",
		"neg limit":     "limit: -1",
		"neg rate":      "rate_limit_seconds: -2",
		"bad proxy":     "proxy_url: '::nope'",
		"same in/out":   "input_path: x.csv\noutput_path: x.csv",
		"neg cache ttl": "cache:\n  dir: c\n  ttl_seconds: -1",
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, "moviecrawl.yaml"), []byte(body))
		_, err := LoadEffective(cwd, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v", name, ErrCodeInvalid, err)
		}
	}
}

func TestLoadEffective_InvalidJSON(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "moviecrawl.json"), []byte(`{"limit":`))
	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalid, err)
	}
}
