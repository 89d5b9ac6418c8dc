package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

const (
	ErrCodeFetchFailed = "fetch_failed"
	ErrCodeParseFailed = "parse_failed"
	ErrCodeCanceled    = "canceled"
)

// BatchResult 是一次批量运行的最终产物（内存中的数据集 + 可序列化的运行报告）。
//
// 约束：
// - Records 只包含成功条目，顺序与输入顺序一致
// - Items 每个输入 URL 恰好一条，按 Index 排序
type BatchResult struct {
	RunID string `json:"run_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary Summary      `json:"summary"`
	Items   []ItemResult `json:"items"`

	Records []MovieRecord `json:"-"`
}

type Summary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

type ItemResult struct {
	Index int    `json:"index"`
	URL   string `json:"url"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Title      string `json:"title"`
	Cached     bool   `json:"cached"`
	DurationMs int64  `json:"duration_ms"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 按输入下标稳定排序
// 3) summary 由 items 计算得出（attempted = succeeded + failed）
func (r *BatchResult) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool { return r.Items[i].Index < r.Items[j].Index })

	var s Summary
	for _, it := range r.Items {
		switch it.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	s.Attempted = s.Succeeded + s.Failed
	r.Summary = s
}

// FailedCount 返回失败 URL 数。
func (r BatchResult) FailedCount() int { return r.Summary.Failed }

// MarshalJSON 集中约束报告输出：Records 不进入报告（数据集另行写表格）。
func (r BatchResult) MarshalJSON() ([]byte, error) {
	type Alias BatchResult
	a := Alias(r)
	if a.Items == nil {
		a.Items = []ItemResult{}
	}
	return json.Marshal(a)
}
