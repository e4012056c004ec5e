// Package pipeline 把数据集构建拆成可组合的 Node 链：读取 -> 过滤 -> 切分 -> 采样 -> 持久化。
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/dataset"
	"github.com/rushteam/outfitkit/metrics"
	"github.com/rushteam/outfitkit/split"
)

// State 是节点之间传递的共享状态。
type State struct {
	Categories []string

	// Users 是读取并过滤后的用户（切分输入）
	Users []core.UserOutfits
	// Filtered 是被过滤器移除的用户数
	Filtered int

	// Result 是切分结果；HoldOut 节点运行后只包含保留的用户
	Result *split.Result
	// HeldOut 是随机留出的用户，未留出时为 nil
	HeldOut *split.Result

	Dataset *dataset.Dataset
}

// NewState 创建以 categories 为类目的空状态。
func NewState(categories []string) *State {
	return &State{Categories: append([]string(nil), categories...)}
}

// Pipeline 按顺序执行节点，并通过 metrics 记录每个节点的耗时。
type Pipeline struct {
	Nodes   []Node
	Logger  *slog.Logger
	Metrics metrics.Collector
}

func (p *Pipeline) Run(ctx context.Context, st *State) error {
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	m := metrics.OrNoop(p.Metrics)
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := node.Process(ctx, st)
		elapsed := time.Since(start)
		m.StageDuration(node.Name(), elapsed)
		if err != nil {
			log.ErrorContext(ctx, "node failed", "node", node.Name(), "kind", string(node.Kind()), "error", err)
			return fmt.Errorf("%s: %w", node.Name(), err)
		}
		log.DebugContext(ctx, "node done", "node", node.Name(), "kind", string(node.Kind()), "elapsed", elapsed)
	}
	return nil
}
