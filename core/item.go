package core

import (
	"encoding/binary"
	"strconv"
	"strings"
	"sync"
)

// Outfit 是一条正样本搭配：每个类目恰好一个原始物品标识（例如图片文件名）。
// 第 n 个元素属于第 n 个类目，不同类目的标识互不相通。
type Outfit []string

// NewOutfit 从各类目的物品标识构造 Outfit。
func NewOutfit(items ...string) Outfit {
	return Outfit(items)
}

// Key 返回用于集合判重的无歧义字符串（长度前缀拼接）。
func (o Outfit) Key() string {
	var b strings.Builder
	for _, it := range o {
		b.WriteString(strconv.Itoa(len(it)))
		b.WriteByte(':')
		b.WriteString(it)
	}
	return b.String()
}

// Equal 逐类目比较两条搭配。
func (o Outfit) Equal(other Outfit) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// IDTuple 是 Outfit 的紧凑表示：每个类目一个 [0, n) 内的整数 id。
type IDTuple []uint32

// Key 以小端序打包各 id，供集合判重与布隆过滤器使用。
func (t IDTuple) Key() string {
	buf := make([]byte, 0, 4*len(t))
	for _, id := range t {
		buf = binary.LittleEndian.AppendUint32(buf, id)
	}
	return string(buf)
}

// Equal 逐类目比较两个 id 元组。
func (t IDTuple) Equal(other IDTuple) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// UserOutfits 是单个用户的正样本集合。
// 不变量：集合内不存在两条相同的 Outfit。
type UserOutfits struct {
	User    string
	Outfits []Outfit
}

// NewUserOutfits 去除重复搭配，保留首次出现的顺序。
func NewUserOutfits(user string, outfits []Outfit) UserOutfits {
	return UserOutfits{User: user, Outfits: Dedup(outfits)}
}

// Dedup 按 Key 去重，保持原有顺序。
func Dedup(outfits []Outfit) []Outfit {
	seen := make(map[string]struct{}, len(outfits))
	out := make([]Outfit, 0, len(outfits))
	for _, o := range outfits {
		k := o.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, o)
	}
	return out
}

// DistinctItems 返回每个类目出现过的不同物品数。
func (u *UserOutfits) DistinctItems(numCategories int) []int {
	sets := make([]map[string]struct{}, numCategories)
	for n := range sets {
		sets[n] = make(map[string]struct{})
	}
	for _, o := range u.Outfits {
		for n := 0; n < numCategories && n < len(o); n++ {
			sets[n][o[n]] = struct{}{}
		}
	}
	counts := make([]int, numCategories)
	for n, s := range sets {
		counts[n] = len(s)
	}
	return counts
}

// Row 是落盘表格的一行：用户下标 + 各类目物品标识。
type Row struct {
	User  int
	Items []string
}

// Progress 是长循环在处理完每个用户后回调的进度函数，nil 表示不汇报。
type Progress func(stage string, done, total int)

// Report 在 p 非 nil 时调用它。
func (p Progress) Report(stage string, done, total int) {
	if p != nil {
		p(stage, done, total)
	}
}

// Serialized 返回用同一把锁保护 p 的回调，多个并发阶段共享它时回调不会重叠。
// p 为 nil 时返回 nil。
func (p Progress) Serialized() Progress {
	if p == nil {
		return nil
	}
	var mu sync.Mutex
	return func(stage string, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		p(stage, done, total)
	}
}
