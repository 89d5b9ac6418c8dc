package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/John-Robertt/moviecrawl/internal/domain"
	"github.com/John-Robertt/moviecrawl/internal/fetch"
	"github.com/John-Robertt/moviecrawl/internal/logger"
)

// Parser 把渲染后的 HTML 变成一条记录（extract.Extractor 实现了它）。
type Parser interface {
	Parse(html []byte) (domain.MovieRecord, error)
}

// ParseError 表示文档无法构建，或解析过程中发生 panic。
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse url=%s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorCode 把单个 URL 的失败归类为 report 中的 error_code。
func ErrorCode(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return domain.ErrCodeParseFailed
	}
	return domain.ErrCodeFetchFailed
}

// Outcome 是一次成功处理的附加信息（写入 ItemResult）。
type Outcome struct {
	Cached bool
}

// Worker 处理一个 URL：开会话 -> 抓取 -> 固定停顿 -> 解析 -> 释放会话。
//
// 约束：
// - 会话在所有退出路径上都会 Close（包括抓取失败、解析失败、解析 panic）
// - 固定停顿只在真正访问了站点时执行（缓存命中不停顿），且发生在释放会话之前
// - 不做重试
type Worker struct {
	Fetcher   fetch.Fetcher
	Parser    Parser
	RateLimit time.Duration
	Log       *logger.Logger

	// sleep 可在测试中替换；默认是可被 ctx 打断的 time.Timer。
	sleep func(ctx context.Context, d time.Duration) error
}

func (w *Worker) Process(ctx context.Context, unit domain.WorkUnit) (rec domain.MovieRecord, out Outcome, err error) {
	log := w.log()

	sess, err := w.Fetcher.Open(ctx)
	if err != nil {
		return domain.MovieRecord{}, Outcome{}, &fetch.Error{URL: unit.URL, Stage: fetch.StageOpen, Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn().Err(cerr).Int("index", unit.Index).Str("url", unit.URL).Msg("释放抓取会话失败")
		}
	}()

	page, err := sess.Fetch(ctx, unit.URL)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) {
			return domain.MovieRecord{}, Outcome{}, err
		}
		return domain.MovieRecord{}, Outcome{}, &fetch.Error{URL: unit.URL, Stage: fetch.StageFetch, Err: err}
	}
	out.Cached = page.Cached

	if !page.Cached && w.RateLimit > 0 {
		// 停顿被打断不影响已抓到的内容。
		_ = w.doSleep(ctx, w.RateLimit)
	}

	rec, err = w.parse(unit.URL, page.HTML)
	if err != nil {
		return domain.MovieRecord{}, out, err
	}
	return rec, out, nil
}

func (w *Worker) parse(url string, html []byte) (rec domain.MovieRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = domain.MovieRecord{}
			err = &ParseError{URL: url, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	rec, err = w.Parser.Parse(html)
	if err != nil {
		return domain.MovieRecord{}, &ParseError{URL: url, Err: err}
	}
	return rec, nil
}

func (w *Worker) doSleep(ctx context.Context, d time.Duration) error {
	if w.sleep != nil {
		return w.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) log() *logger.Logger {
	if w.Log == nil {
		return logger.Nop()
	}
	return w.Log
}
