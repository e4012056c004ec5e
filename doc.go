// Package outfitkit 从"用户 -> 搭配元组"数据构建无泄漏的 train/val/test 数据集，并为每个阶段生成负样本。
//
// 设计要点：
// - Leakage-free: 共享任意物品的搭配（传递闭包）总在同一阶段，阶段之间物品不相交
// - Pipeline-first: 读取、过滤、切分、采样、持久化通过 Node 串联，可由配置编排
// - Deterministic: 固定种子时结果与并发度无关
package outfitkit

import "github.com/rushteam/outfitkit/pipeline"

// 轻量 facade：便于用户直接 import "outfitkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind
type State = pipeline.State

const (
	KindIngest  = pipeline.KindIngest
	KindFilter  = pipeline.KindFilter
	KindSplit   = pipeline.KindSplit
	KindSample  = pipeline.KindSample
	KindPersist = pipeline.KindPersist
)
