// Package partition 在单个用户的搭配集合上做连通分量抽取。
//
// 搭配是超图的超边，物品是节点：两条搭配只要在任一类目共享物品即相连。
// 抽取出的分量与剩余搭配在任何类目上都不共享物品。
package partition

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/rushteam/outfitkit/core"
)

// Index 是 物品 -> 搭配位置 的倒排索引，并记录尚未被抽走的搭配。
// 一个 Index 在同一用户上可以被反复 Extract，直到耗尽。
type Index struct {
	outfits   []core.Outfit
	postings  []map[string]*roaring.Bitmap // 每个类目：物品 -> 包含它的搭配位置
	remaining *roaring.Bitmap
}

// NewIndex 为 outfits 建立倒排索引。outfits 应已去重。
func NewIndex(outfits []core.Outfit) *Index {
	k := 0
	for _, o := range outfits {
		if len(o) > k {
			k = len(o)
		}
	}
	postings := make([]map[string]*roaring.Bitmap, k)
	for n := range postings {
		postings[n] = make(map[string]*roaring.Bitmap)
	}
	for pos, o := range outfits {
		for n, it := range o {
			bm, ok := postings[n][it]
			if !ok {
				bm = roaring.New()
				postings[n][it] = bm
			}
			bm.Add(uint32(pos))
		}
	}
	remaining := roaring.New()
	remaining.AddRange(0, uint64(len(outfits)))
	return &Index{
		outfits:   outfits,
		postings:  postings,
		remaining: remaining,
	}
}

// Len 返回尚未被抽取的搭配数。
func (ix *Index) Len() int { return int(ix.remaining.GetCardinality()) }

// Extract 以剩余搭配中位置最小的一条为种子，抽取它所在的整个连通分量并从索引中移除。
// 索引为空时返回 nil。
func (ix *Index) Extract() []core.Outfit {
	if ix.remaining.IsEmpty() {
		return nil
	}
	seed := ix.remaining.Minimum()
	ix.remaining.Remove(seed)

	expanded := make([]map[string]struct{}, len(ix.postings))
	for n := range expanded {
		expanded[n] = make(map[string]struct{})
	}
	queue := []uint32{seed}
	for qi := 0; qi < len(queue); qi++ {
		o := ix.outfits[queue[qi]]
		for n, it := range o {
			if _, ok := expanded[n][it]; ok {
				continue
			}
			expanded[n][it] = struct{}{}
			linked := roaring.And(ix.postings[n][it], ix.remaining)
			iter := linked.Iterator()
			for iter.HasNext() {
				pos := iter.Next()
				ix.remaining.Remove(pos)
				queue = append(queue, pos)
			}
		}
	}

	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })
	part := make([]core.Outfit, len(queue))
	for i, pos := range queue {
		part[i] = ix.outfits[pos]
	}
	return part
}

// Remaining 按原始顺序返回尚未被抽取的搭配。
func (ix *Index) Remaining() []core.Outfit {
	rest := make([]core.Outfit, 0, ix.remaining.GetCardinality())
	iter := ix.remaining.Iterator()
	for iter.HasNext() {
		rest = append(rest, ix.outfits[iter.Next()])
	}
	return rest
}

// Extract 抽取 outfits 中第一条搭配所在的连通分量，返回 (分量, 剩余)。
// 空输入返回 (nil, 空)。
func Extract(outfits []core.Outfit) (part, rest []core.Outfit) {
	ix := NewIndex(outfits)
	part = ix.Extract()
	return part, ix.Remaining()
}

// Components 返回全部连通分量，按种子位置排序。
func Components(outfits []core.Outfit) [][]core.Outfit {
	ix := NewIndex(outfits)
	var comps [][]core.Outfit
	for ix.Len() > 0 {
		comps = append(comps, ix.Extract())
	}
	return comps
}

// Disjoint 报告 a 与 b 在所有类目上是否都不共享物品。
func Disjoint(a, b []core.Outfit) bool {
	var seen []map[string]struct{}
	for _, o := range a {
		for len(seen) < len(o) {
			seen = append(seen, make(map[string]struct{}))
		}
		for n, it := range o {
			seen[n][it] = struct{}{}
		}
	}
	for _, o := range b {
		for n, it := range o {
			if n >= len(seen) {
				continue
			}
			if _, ok := seen[n][it]; ok {
				return false
			}
		}
	}
	return true
}
