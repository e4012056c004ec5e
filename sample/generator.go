package sample

import (
	"math/rand/v2"

	"github.com/rushteam/outfitkit/core"
)

// Generator 产生负样本候选。候选可能与正样本碰撞，由 Acceptor 负责拒绝。
type Generator interface {
	// Name 返回生成策略名称（用于日志）
	Name() string

	// Generate 基于 positives 产生候选；n 是请求数量，
	// 由正样本决定数量的策略（CategoryFixed）忽略 n。
	Generate(rng *rand.Rand, positives []core.IDTuple, n int) []core.IDTuple
}

// CategoryFixed 是类目固定替换策略：每条正样本产生一条候选，
// 候选在均匀随机选中的一个类目上保留正样本的物品，其余类目在各自 id 范围内均匀随机。
//
// 等价于先为每个类目各造一条"固定该类目"的候选、再均匀地挑一条保留，但不构造被丢弃的 K-1 条。
type CategoryFixed struct {
	Sizes []int // 每个类目的 id 范围
}

func (g CategoryFixed) Name() string { return "category_fixed" }

func (g CategoryFixed) Generate(rng *rand.Rand, positives []core.IDTuple, _ int) []core.IDTuple {
	if !validSizes(g.Sizes) {
		return nil
	}
	k := len(g.Sizes)
	out := make([]core.IDTuple, len(positives))
	for i, pos := range positives {
		fixed := rng.IntN(k)
		t := make(core.IDTuple, k)
		for n := 0; n < k; n++ {
			if n == fixed {
				t[n] = pos[n]
				continue
			}
			t[n] = uint32(rng.IntN(g.Sizes[n]))
		}
		out[i] = t
	}
	return out
}

// FullyRandom 是完全随机策略：各类目独立均匀地抽取 id。
type FullyRandom struct {
	Sizes []int
}

func (g FullyRandom) Name() string { return "fully_random" }

func (g FullyRandom) Generate(rng *rand.Rand, _ []core.IDTuple, n int) []core.IDTuple {
	if !validSizes(g.Sizes) || n <= 0 {
		return nil
	}
	out := make([]core.IDTuple, n)
	for i := range out {
		t := make(core.IDTuple, len(g.Sizes))
		for c, size := range g.Sizes {
			t[c] = uint32(rng.IntN(size))
		}
		out[i] = t
	}
	return out
}

func validSizes(sizes []int) bool {
	if len(sizes) == 0 {
		return false
	}
	for _, s := range sizes {
		if s <= 0 {
			return false
		}
	}
	return true
}
