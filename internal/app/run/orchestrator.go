package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/moviecrawl/internal/config"
	"github.com/John-Robertt/moviecrawl/internal/domain"
	"github.com/John-Robertt/moviecrawl/internal/logger"
)

// Processor 是单个 WorkUnit 的处理能力（*Worker 实现了它）。
type Processor interface {
	Process(ctx context.Context, unit domain.WorkUnit) (domain.MovieRecord, Outcome, error)
}

// Orchestrator 在有界 worker 池上跑完整个 URL 列表。
//
// 约束：
// - 同时在处理的 WorkUnit 不超过 Concurrency（截断到 [1, 32]）
// - 每个 WorkUnit 至多分发一次，不重试
// - 单个失败只记录为 failed，不中断其它条目
// - Records 顺序与输入顺序一致（按原始下标缓冲）
// - ctx 取消后不再分发新条目；已在处理的条目在脱离取消的 ctx 上跑完并释放会话；
//   未分发的条目记为 skipped/canceled
type Orchestrator struct {
	Concurrency int
	Processor   Processor
	Observer    Observer
	Log         *logger.Logger
}

type unitResult struct {
	item   domain.ItemResult
	record domain.MovieRecord
	dur    time.Duration
}

func (o *Orchestrator) Run(ctx context.Context, urls []string) domain.BatchResult {
	log := o.Log
	if log == nil {
		log = logger.Nop()
	}

	br := domain.BatchResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	units := domain.NewWorkUnits(urls)
	total := len(units)

	workers := config.ClampWorkers(o.Concurrency)
	if workers > total && total > 0 {
		workers = total
	}
	log.Info().Str("run_id", br.RunID).Int("workers", workers).Int("total", total).Msg("开始抓取")

	// 已分发的条目不受取消影响：保证会话释放与结果完整。
	inflight := context.WithoutCancel(ctx)

	jobs := make(chan domain.WorkUnit)
	results := make(chan unitResult, total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				if o.Observer != nil {
					o.Observer.OnItemStart(u)
				}
				results <- o.runOne(inflight, u, log)
			}
		}()
	}

	go func() {
		defer func() {
			close(jobs)
			wg.Wait()
			close(results)
		}()
		for _, u := range units {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	// 单一收集者：只有这里写 items/records。
	items := make([]*domain.ItemResult, total)
	records := make([]*domain.MovieRecord, total)
	done := 0
	for r := range results {
		done++
		it := r.item
		items[it.Index] = &it
		if it.Status == domain.StatusSucceeded {
			rec := r.record
			records[it.Index] = &rec
		}
		if o.Observer != nil {
			o.Observer.OnItemDone(done, total, it, r.dur)
		}
	}

	br.Items = make([]domain.ItemResult, 0, total)
	br.Records = make([]domain.MovieRecord, 0, total)
	for i, u := range units {
		if items[i] == nil {
			br.Items = append(br.Items, domain.ItemResult{
				Index:     u.Index,
				URL:       u.URL,
				Status:    domain.StatusSkipped,
				ErrorCode: domain.ErrCodeCanceled,
				ErrorMsg:  "批次已取消，未分发",
			})
			continue
		}
		br.Items = append(br.Items, *items[i])
		if records[i] != nil {
			br.Records = append(br.Records, *records[i])
		}
	}

	br.FinishedAt = time.Now()
	br.Finalize()

	log.Info().
		Str("run_id", br.RunID).
		Int("attempted", br.Summary.Attempted).
		Int("succeeded", br.Summary.Succeeded).
		Int("failed", br.Summary.Failed).
		Int("skipped", br.Summary.Skipped).
		Msg("抓取结束")
	return br
}

func (o *Orchestrator) runOne(ctx context.Context, u domain.WorkUnit, log *logger.Logger) (res unitResult) {
	started := time.Now()
	res.item = domain.ItemResult{Index: u.Index, URL: u.URL}

	defer func() {
		if r := recover(); r != nil {
			res.item.Status = domain.StatusFailed
			res.item.ErrorCode = domain.ErrCodeFetchFailed
			res.item.ErrorMsg = fmt.Sprintf("panic: %v", r)
			res.record = domain.MovieRecord{}
			log.Error().Int("index", u.Index).Str("url", u.URL).Interface("panic", r).Msg("处理条目时发生 panic")
		}
		res.dur = time.Since(started)
		res.item.DurationMs = res.dur.Milliseconds()
	}()

	log.Debug().Int("index", u.Index).Str("url", u.URL).Msg("开始处理")
	rec, out, err := o.Processor.Process(ctx, u)
	res.item.Cached = out.Cached
	if err != nil {
		res.item.Status = domain.StatusFailed
		res.item.ErrorCode = ErrorCode(err)
		res.item.ErrorMsg = err.Error()
		log.Warn().Err(err).Int("index", u.Index).Str("url", u.URL).Str("error_code", res.item.ErrorCode).Msg("处理失败")
		return res
	}

	res.item.Status = domain.StatusSucceeded
	res.item.Title = rec.Title
	res.record = rec
	log.Info().Int("index", u.Index).Str("url", u.URL).Bool("cached", out.Cached).Msgf("已抓取：%s", rec.Title)
	return res
}
