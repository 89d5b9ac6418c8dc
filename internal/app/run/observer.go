package run

import (
	"time"

	"github.com/John-Robertt/moviecrawl/internal/config"
	"github.com/John-Robertt/moviecrawl/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出
// - Observer 的实现必须并发安全：OnItemStart 来自多个 worker goroutine
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用：load / crawl / write。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemStart 在 WorkUnit 进入 InFlight 时调用。
	OnItemStart(unit domain.WorkUnit)
	// OnItemDone 在 WorkUnit 完成（Succeeded/Failed）时调用；done 为已完成数。
	OnItemDone(done, total int, res domain.ItemResult, dur time.Duration)
}
