package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/John-Robertt/moviecrawl/internal/config"
	"github.com/John-Robertt/moviecrawl/internal/domain"
	"github.com/John-Robertt/moviecrawl/internal/extract"
	"github.com/John-Robertt/moviecrawl/internal/fetch"
	"github.com/John-Robertt/moviecrawl/internal/fetch/browser"
	"github.com/John-Robertt/moviecrawl/internal/fetch/httpfetch"
	"github.com/John-Robertt/moviecrawl/internal/infra/cache"
	"github.com/John-Robertt/moviecrawl/internal/infra/fsx"
	"github.com/John-Robertt/moviecrawl/internal/logger"
	"github.com/John-Robertt/moviecrawl/internal/table"
)

const (
	OpReadLinks   = "read_links"
	OpWriteOutput = "write_output"
	OpWriteReport = "write_report"
)

// IOError 是批次级的读写失败（输入表格不可读、输出不可写）。
// 与单个 URL 的失败不同，它会让进程以非 0 退出。
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s path=%s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Execute 读取链接表、并发抓取解析、按输入顺序写出数据集（以及可选的运行报告）。
//
// 约束：
// - 输入读取失败：返回 *IOError，不做任何抓取
// - 链接为空：记录警告，不写任何文件，返回空结果
// - 输出写入失败：仍返回内存中的 BatchResult（调用方可据此汇报）
// - 单个 URL 失败只体现在 BatchResult.Items 中，不作为 error 返回
func Execute(ctx context.Context, eff config.EffectiveConfig, fetcher fetch.Fetcher, obs Observer, log *logger.Logger) (domain.BatchResult, error) {
	if log == nil {
		log = logger.Nop()
	}
	if obs != nil {
		obs.OnStart(eff)
	}

	loadStarted := time.Now()
	links, err := table.ReadLinks(eff.InputPath, eff.Limit)
	if err != nil {
		log.Error().Err(err).Str("path", eff.InputPath).Msg("读取链接失败")
		return emptyResult(), &IOError{Op: OpReadLinks, Path: eff.InputPath, Err: err}
	}
	if obs != nil {
		obs.OnPhaseDone("load", map[string]any{"links": len(links)}, time.Since(loadStarted))
	}
	if len(links) == 0 {
		log.Warn().Str("path", eff.InputPath).Msg("未找到任何链接")
		return emptyResult(), nil
	}
	log.Info().Int("links", len(links)).Str("path", eff.InputPath).Msg("已读取链接")

	crawlStarted := time.Now()
	orch := &Orchestrator{
		Concurrency: eff.WorkerPoolSize,
		Processor: &Worker{
			Fetcher:   fetcher,
			Parser:    extract.Extractor{Selectors: eff.Selectors},
			RateLimit: eff.RateLimit,
			Log:       log,
		},
		Observer: obs,
		Log:      log,
	}
	br := orch.Run(ctx, links)
	if obs != nil {
		obs.OnPhaseDone("crawl", map[string]any{
			"workers":   config.ClampWorkers(eff.WorkerPoolSize),
			"total":     len(links),
			"succeeded": br.Summary.Succeeded,
			"failed":    br.Summary.Failed,
			"skipped":   br.Summary.Skipped,
		}, time.Since(crawlStarted))
	}

	writeStarted := time.Now()
	var errs []error
	if err := table.WriteRecords(eff.OutputPath, br.Records); err != nil {
		log.Error().Err(err).Str("path", eff.OutputPath).Msg("写出数据集失败")
		errs = append(errs, &IOError{Op: OpWriteOutput, Path: eff.OutputPath, Err: err})
	} else {
		log.Info().Int("records", len(br.Records)).Str("path", eff.OutputPath).Msg("数据集已写出")
	}
	if eff.ReportPath != "" {
		if err := writeReport(eff.ReportPath, br); err != nil {
			log.Error().Err(err).Str("path", eff.ReportPath).Msg("写出运行报告失败")
			errs = append(errs, &IOError{Op: OpWriteReport, Path: eff.ReportPath, Err: err})
		}
	}
	if obs != nil {
		obs.OnPhaseDone("write", map[string]any{
			"records": len(br.Records),
			"errors":  len(errs),
		}, time.Since(writeStarted))
	}
	return br, errors.Join(errs...)
}

func writeReport(path string, br domain.BatchResult) error {
	b, err := json.MarshalIndent(br, "", "  ")
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, append(b, '\n'))
}

func emptyResult() domain.BatchResult {
	now := time.Now()
	br := domain.BatchResult{StartedAt: now, FinishedAt: now, Items: []domain.ItemResult{}}
	br.Finalize()
	return br
}

// NewFetcher 按配置组装抓取后端：browser/http，外面可选地包一层页面缓存。
// 返回的 closer 释放浏览器进程与缓存连接；调用方必须在所有会话结束后调用。
func NewFetcher(ctx context.Context, eff config.EffectiveConfig, log *logger.Logger) (fetch.Fetcher, func() error, error) {
	if log == nil {
		log = logger.Nop()
	}
	var (
		inner   fetch.Fetcher
		closers []func() error
	)

	switch eff.Fetcher {
	case config.FetcherHTTP:
		f, err := httpfetch.New(httpfetch.Options{
			UserAgent: eff.UserAgent,
			ProxyURL:  eff.ProxyURL,
			Timeout:   eff.Timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("初始化 http 抓取器失败：%w", err)
		}
		inner = f
	default:
		f, err := browser.New(browser.Options{
			UserAgent:   eff.UserAgent,
			Headless:    eff.Headless,
			Timeout:     eff.Timeout,
			ProxyURL:    eff.ProxyURL,
			MaxSessions: config.ClampWorkers(eff.WorkerPoolSize),
		}, log.Component("browser"))
		if err != nil {
			return nil, nil, err
		}
		inner = f
		closers = append(closers, f.Close)
	}

	var store fetch.Store
	switch {
	case eff.Cache.RedisAddr != "":
		rs, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     eff.Cache.RedisAddr,
			Password: eff.Cache.RedisPassword,
			TTL:      eff.Cache.TTL,
		})
		if err != nil {
			_ = closeAll(closers)
			return nil, nil, fmt.Errorf("连接页面缓存失败：%w", err)
		}
		store = rs
		closers = append(closers, rs.Close)
		log.Info().Str("addr", eff.Cache.RedisAddr).Msg("页面缓存：redis")
	case eff.Cache.Dir != "":
		store = cache.NewFileStore(eff.Cache.Dir, eff.Cache.TTL, eff.Cache.ReadOnly)
		log.Info().Str("dir", eff.Cache.Dir).Bool("read_only", eff.Cache.ReadOnly).Msg("页面缓存：本地目录")
	}

	return fetch.Cached(inner, store, log.Component("cache")), func() error { return closeAll(closers) }, nil
}

func closeAll(closers []func() error) error {
	var errs []error
	// 后打开的先关闭。
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
