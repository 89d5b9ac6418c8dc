package domain

// WorkUnit 是并发分发的最小单元：一个 URL + 它在输入中的位置。
// 每个 WorkUnit 只会被一个 worker 消费一次（不重试）。
type WorkUnit struct {
	Index int
	URL   string
}

// NewWorkUnits 按输入顺序为 urls 编号。
func NewWorkUnits(urls []string) []WorkUnit {
	units := make([]WorkUnit, 0, len(urls))
	for i, u := range urls {
		units = append(units, WorkUnit{Index: i, URL: u})
	}
	return units
}
