package sample

import (
	"github.com/bits-and-blooms/bloom/v3"

	"github.com/rushteam/outfitkit/core"
)

// falsePositiveRate 是布隆过滤器的期望误判率。误判只会触发一次精确查找，不影响结果。
const falsePositiveRate = 0.01

// Acceptor 是拒绝过滤器：候选只有在不属于正样本全集时才被接受。
// 布隆过滤器给出"一定不在"时直接接受，否则回落到精确集合。
// 构建后只读，可被多个 goroutine 并发使用。
type Acceptor struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

// NewAcceptor 由整个阶段（所有用户）的正样本构建 Acceptor。
func NewAcceptor(positives []core.IDTuple) *Acceptor {
	n := uint(len(positives))
	if n == 0 {
		n = 1
	}
	a := &Acceptor{
		filter: bloom.NewWithEstimates(n, falsePositiveRate),
		exact:  make(map[string]struct{}, len(positives)),
	}
	for _, t := range positives {
		key := t.Key()
		a.filter.AddString(key)
		a.exact[key] = struct{}{}
	}
	return a
}

// Contains 报告 t 是否为正样本。
func (a *Acceptor) Contains(t core.IDTuple) bool {
	key := t.Key()
	if !a.filter.TestString(key) {
		return false
	}
	_, ok := a.exact[key]
	return ok
}

// Len 返回正样本数。
func (a *Acceptor) Len() int { return len(a.exact) }

// Accept 按顺序遍历候选，保留不是正样本的候选，收集满 required 条即停止。
func (a *Acceptor) Accept(candidates []core.IDTuple, required int) []core.IDTuple {
	if required <= 0 {
		return nil
	}
	capacity := required
	if len(candidates) < capacity {
		capacity = len(candidates)
	}
	kept := make([]core.IDTuple, 0, capacity)
	for _, c := range candidates {
		if len(kept) == required {
			break
		}
		if a.Contains(c) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
