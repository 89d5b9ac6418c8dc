package fetch

import (
	"context"
	"fmt"
	"strings"
)

// Page 是一次抓取得到的完整渲染内容。
// HTML 只归抓取它的 worker 所有，组装完成后即丢弃。
type Page struct {
	URL    string
	HTML   []byte
	Cached bool // true 表示来自页面缓存（未访问站点）
}

// Session 是一个抓取会话（例如一个浏览器上下文）。
//
// 约束：
// - 同一 Session 只被一个 worker 使用（不要求并发安全）
// - 调用方必须在所有路径上 Close（worker 用 defer 保证）
type Session interface {
	Fetch(ctx context.Context, url string) (Page, error)
	Close() error
}

// Fetcher 负责开启会话。实现需要并发安全：多个 worker 会同时 Open。
type Fetcher interface {
	Open(ctx context.Context) (Session, error)
}

const (
	StageOpen  = "open"
	StageFetch = "fetch"
)

// Error 是单个 URL 的抓取失败（网络、超时、浏览器崩溃、非 2xx）。
// 上层据此把条目归类为 fetch_failed，批次继续。
type Error struct {
	URL   string
	Stage string // "open" 或 "fetch"
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch url=%s stage=%s: %v", e.URL, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码（两种后端都会返回该错误）。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}
