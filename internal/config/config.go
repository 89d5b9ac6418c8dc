package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/moviecrawl/internal/extract"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultInputPath        = "movie_links.csv"
	DefaultOutputPath       = "movies_dataset.csv"
	DefaultRateLimitSeconds = 2.0
	DefaultWorkerPoolSize   = 4
	DefaultTimeoutSeconds   = 30
	DefaultFetcher          = FetcherBrowser

	MinWorkerPoolSize = 1
	MaxWorkerPoolSize = 32
)

const (
	FetcherBrowser = "browser"
	FetcherHTTP    = "http"
)

// DiscoveryNames 是未指定 --config 时在 cwd 下按顺序查找的文件名（均为可选）。
var DiscoveryNames = []string{"moviecrawl.yaml", "moviecrawl.yml", "moviecrawl.json"}

// CLIArgs 是 CLI 暴露的覆盖项，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --headless=false 必须能覆盖 headless: true。
type CLIArgs struct {
	ConfigPath string

	Input  string
	Output string

	Limit    int
	LimitSet bool

	Workers    int
	WorkersSet bool

	Fetcher string

	Headless    bool
	HeadlessSet bool
}

// FileConfig 对应 moviecrawl.yaml / moviecrawl.json 的解析结构。
type FileConfig struct {
	InputPath  string `yaml:"input_path" json:"input_path"`
	OutputPath string `yaml:"output_path" json:"output_path"`
	ReportPath string `yaml:"report_path" json:"report_path"`
	Limit      int    `yaml:"limit" json:"limit"`

	RateLimitSeconds *float64 `yaml:"rate_limit_seconds" json:"rate_limit_seconds"`
	WorkerPoolSize   int      `yaml:"worker_pool_size" json:"worker_pool_size"`

	UserAgent      string `yaml:"user_agent" json:"user_agent"`
	Headless       *bool  `yaml:"headless" json:"headless"`
	Fetcher        string `yaml:"fetcher" json:"fetcher"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	ProxyURL       string `yaml:"proxy_url" json:"proxy_url"`

	Cache *CacheConfig `yaml:"cache" json:"cache"`

	Selectors extract.Selectors `yaml:"selectors" json:"selectors"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

type CacheConfig struct {
	Dir           string `yaml:"dir" json:"dir"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	TTLSeconds    int    `yaml:"ttl_seconds" json:"ttl_seconds"`
	// ReadOnly 只对本地目录缓存生效：只读取已缓存页面，不写入新页面。
	ReadOnly bool `yaml:"read_only" json:"read_only"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；为空表示只用了默认值 + CLI。
	ConfigPath string

	InputPath  string
	OutputPath string
	ReportPath string // 为空表示不写报告
	Limit      int    // 0 表示全部

	RateLimit      time.Duration
	WorkerPoolSize int

	UserAgent string
	Headless  bool
	Fetcher   string
	Timeout   time.Duration
	ProxyURL  string

	Cache Cache

	// Selectors 已与内置默认值合并。
	Selectors extract.Selectors

	LogLevel string
}

// Cache 是规范化后的缓存配置：RedisAddr 优先于 Dir；两者都为空表示不缓存。
type Cache struct {
	Dir           string
	RedisAddr     string
	RedisPassword string
	TTL           time.Duration
	ReadOnly      bool
}

func (c Cache) Enabled() bool { return c.Dir != "" || c.RedisAddr != "" }

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，否则 config_not_found
// 2) 否则按 DiscoveryNames 顺序在 cwd 下查找，找不到就只用默认值
//
// 覆盖优先级（固定）：CLI > 配置文件 > 内置默认值。
// 相对路径一律以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)

	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		return merge(cwdAbs, cli, fc, cfgPath)
	}

	for _, name := range DiscoveryNames {
		p := filepath.Join(cwdAbs, name)
		got, exists, err := readFileConfig(p)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		if exists {
			return merge(cwdAbs, cli, got, p)
		}
	}
	return merge(cwdAbs, cli, FileConfig{}, "")
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...interface{}) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	input := firstNonEmpty(cli.Input, fc.InputPath, DefaultInputPath)
	output := firstNonEmpty(cli.Output, fc.OutputPath, DefaultOutputPath)
	report := strings.TrimSpace(fc.ReportPath)

	limit := fc.Limit
	if cli.LimitSet {
		limit = cli.Limit
	}
	if limit < 0 {
		return EffectiveConfig{}, invalid("limit 不能为负数：%d", limit)
	}

	rate := DefaultRateLimitSeconds
	if fc.RateLimitSeconds != nil {
		rate = *fc.RateLimitSeconds
	}
	if rate < 0 {
		return EffectiveConfig{}, invalid("rate_limit_seconds 不能为负数：%v", rate)
	}

	// worker_pool_size：CLI > config > 默认；范围 [1, 32]，超出截断。
	workers := fc.WorkerPoolSize
	if cli.WorkersSet {
		workers = cli.Workers
	}
	if workers == 0 {
		workers = DefaultWorkerPoolSize
	}
	workers = ClampWorkers(workers)

	headless := true
	if cli.HeadlessSet {
		headless = cli.Headless
	} else if fc.Headless != nil {
		headless = *fc.Headless
	}

	fetcher := strings.ToLower(firstNonEmpty(cli.Fetcher, fc.Fetcher, DefaultFetcher))
	if err := validateFetcher(fetcher); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	timeout := fc.TimeoutSeconds
	if timeout == 0 {
		timeout = DefaultTimeoutSeconds
	}
	if timeout < 0 {
		return EffectiveConfig{}, invalid("timeout_seconds 不能为负数：%d", timeout)
	}

	proxyURL := strings.TrimSpace(fc.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("proxy_url 无效：%q", proxyURL)
		}
	}

	var cache Cache
	if fc.Cache != nil {
		if fc.Cache.TTLSeconds < 0 {
			return EffectiveConfig{}, invalid("cache.ttl_seconds 不能为负数：%d", fc.Cache.TTLSeconds)
		}
		cache = Cache{
			Dir:           absCleanFrom(cwdAbs, fc.Cache.Dir),
			RedisAddr:     strings.TrimSpace(fc.Cache.RedisAddr),
			RedisPassword: fc.Cache.RedisPassword,
			TTL:           time.Duration(fc.Cache.TTLSeconds) * time.Second,
			ReadOnly:      fc.Cache.ReadOnly,
		}
	}

	eff := EffectiveConfig{
		ConfigPath:     cfgPath,
		InputPath:      absCleanFrom(cwdAbs, input),
		OutputPath:     absCleanFrom(cwdAbs, output),
		ReportPath:     absCleanFrom(cwdAbs, report),
		Limit:          limit,
		RateLimit:      time.Duration(rate * float64(time.Second)),
		WorkerPoolSize: workers,
		UserAgent:      strings.TrimSpace(fc.UserAgent),
		Headless:       headless,
		Fetcher:        fetcher,
		Timeout:        time.Duration(timeout) * time.Second,
		ProxyURL:       proxyURL,
		Cache:          cache,
		Selectors:      extract.DefaultSelectors().Merge(fc.Selectors),
		LogLevel:       strings.TrimSpace(fc.LogLevel),
	}
	if eff.InputPath == eff.OutputPath {
		return EffectiveConfig{}, invalid("input_path 与 output_path 不能相同：%q", eff.InputPath)
	}
	return eff, nil
}

// ClampWorkers 把 worker 数截断到 [1, 32]。
func ClampWorkers(n int) int {
	if n < MinWorkerPoolSize {
		return MinWorkerPoolSize
	}
	if n > MaxWorkerPoolSize {
		return MaxWorkerPoolSize
	}
	return n
}

func validateFetcher(f string) error {
	switch f {
	case FetcherBrowser, FetcherHTTP:
		return nil
	default:
		return fmt.Errorf("fetcher 只能是 browser 或 http，实际是 %q", f)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 为空：返回空串
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 按扩展名读取 YAML 或 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return FileConfig{}, true, fmt.Errorf("解析 json 失败：%w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return FileConfig{}, true, fmt.Errorf("解析 yaml 失败：%w", err)
		}
	}
	return fc, true, nil
}
