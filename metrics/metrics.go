// Package metrics 定义切分与负采样的运行指标收集接口及其实现。
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector 收集数据集构建过程中的运行指标。
//
// 实现：
//   - Noop：丢弃所有指标
//   - Basic：进程内原子计数，便于调试与测试
//   - Prometheus：注册到 prometheus.Registerer
//
// 所有方法都可能被并发调用。
type Collector interface {
	// UsersSplit 在一次完整切分后调用，kept 为满足最小规模的用户数。
	UsersSplit(kept, dropped int)

	// ComponentsExtracted 记录一次 SplitOnce 中抽取的连通分量数。
	ComponentsExtracted(n int)

	// NegativesGenerated 记录某阶段某用户实际产生的负样本数。
	NegativesGenerated(phase string, n int)

	// NegativeShortfall 记录某阶段某用户缺少的负样本数。
	NegativeShortfall(phase string, missing int)

	// StageDuration 记录一个 pipeline 阶段的耗时。
	StageDuration(stage string, d time.Duration)
}

// Noop 丢弃所有指标。
type Noop struct{}

func (Noop) UsersSplit(int, int)                 {}
func (Noop) ComponentsExtracted(int)             {}
func (Noop) NegativesGenerated(string, int)      {}
func (Noop) NegativeShortfall(string, int)       {}
func (Noop) StageDuration(string, time.Duration) {}

var _ Collector = Noop{}

// OrNoop 在 c 为 nil 时返回 Noop。
func OrNoop(c Collector) Collector {
	if c == nil {
		return Noop{}
	}
	return c
}

// Basic 提供不依赖外部系统的进程内计数。
type Basic struct {
	UsersKept     atomic.Int64
	UsersDropped  atomic.Int64
	Components    atomic.Int64
	NegativeTotal atomic.Int64
	ShortfallSum  atomic.Int64

	mu     sync.Mutex
	stages map[string]time.Duration
}

var _ Collector = (*Basic)(nil)

func (b *Basic) UsersSplit(kept, dropped int) {
	b.UsersKept.Add(int64(kept))
	b.UsersDropped.Add(int64(dropped))
}

func (b *Basic) ComponentsExtracted(n int) { b.Components.Add(int64(n)) }

func (b *Basic) NegativesGenerated(_ string, n int) { b.NegativeTotal.Add(int64(n)) }

func (b *Basic) NegativeShortfall(_ string, missing int) { b.ShortfallSum.Add(int64(missing)) }

func (b *Basic) StageDuration(stage string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stages == nil {
		b.stages = make(map[string]time.Duration)
	}
	b.stages[stage] += d
}

// Stages 返回各阶段累计耗时的副本。
func (b *Basic) Stages() map[string]time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]time.Duration, len(b.stages))
	for k, v := range b.stages {
		out[k] = v
	}
	return out
}
