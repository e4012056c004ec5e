package pipeline

import (
	"context"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindIngest  Kind = "ingest"  // 读取阶段：加载按用户分组的正样本
	KindFilter  Kind = "filter"  // 过滤阶段：剔除不参与切分的用户
	KindSplit   Kind = "split"   // 切分阶段：无泄漏地划分 train / val / test
	KindSample  Kind = "sample"  // 采样阶段：为每个阶段生成负样本
	KindPersist Kind = "persist" // 持久化阶段：写出样本表与物品列表
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"读写共享 State"的形态，每个节点只关心自己负责的字段。
type Node interface {
	Name() string
	Kind() Kind

	Process(ctx context.Context, st *State) error
}
