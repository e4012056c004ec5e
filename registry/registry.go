// Package registry 为每个类目分配紧凑的从 0 开始的整数 id，并支持双向翻译。
//
// Registry 构建后只读，可被任意数量的读者并发共享。
package registry

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rushteam/outfitkit/core"
)

// Registry 维护每个类目 {标识 -> id} 与 [id -> 标识] 的双射。
type Registry struct {
	categories []string
	ids        []map[string]uint32
	items      [][]string
}

// ValidateIdentifier 检查原始标识能否原样写入物品列表并读回：非空，且不含 \n 与 \r。
func ValidateIdentifier(raw string) error {
	if raw == "" {
		return core.NewDomainError(core.ModuleRegistry, core.ErrorCodeInvalidInput, "empty item identifier")
	}
	if strings.ContainsAny(raw, "\r\n") {
		return core.NewDomainError(core.ModuleRegistry, core.ErrorCodeInvalidInput,
			fmt.Sprintf("item identifier %q contains a line break", raw))
	}
	return nil
}

// Build 收集 sets 中所有用户所有搭配在各类目列出现过的不同标识，按字典序分配 id。
// sets 可以是多个阶段（train/val/test）或单个阶段的按用户分组数据。
func Build(categories []string, sets ...[][]core.Outfit) (*Registry, error) {
	k := len(categories)
	if k < 2 {
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeInvalidConfiguration,
			fmt.Sprintf("need at least 2 categories, got %d", k))
	}
	seen := make([]map[string]struct{}, k)
	for n := range seen {
		seen[n] = make(map[string]struct{})
	}
	for _, users := range sets {
		for _, outfits := range users {
			for _, o := range outfits {
				if len(o) != k {
					return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeInvalidInput,
						fmt.Sprintf("outfit %v has %d items, want %d", o, len(o), k))
				}
				for n, it := range o {
					if _, ok := seen[n][it]; ok {
						continue
					}
					if err := ValidateIdentifier(it); err != nil {
						return nil, err
					}
					seen[n][it] = struct{}{}
				}
			}
		}
	}
	lists := make([][]string, k)
	for n, s := range seen {
		list := make([]string, 0, len(s))
		for it := range s {
			list = append(list, it)
		}
		sort.Strings(list)
		lists[n] = list
	}
	return newRegistry(categories, lists), nil
}

// FromLists 从已保存的物品列表（id 即行号）重建 Registry。
func FromLists(categories []string, lists [][]string) (*Registry, error) {
	if len(categories) != len(lists) {
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeInvalidInput,
			fmt.Sprintf("%d categories but %d item lists", len(categories), len(lists)))
	}
	for n, list := range lists {
		seen := make(map[string]struct{}, len(list))
		for _, it := range list {
			if err := ValidateIdentifier(it); err != nil {
				return nil, err
			}
			if _, ok := seen[it]; ok {
				return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeInvalidInput,
					fmt.Sprintf("duplicate item %q in category %s", it, categories[n]))
			}
			seen[it] = struct{}{}
		}
	}
	copied := make([][]string, len(lists))
	for n, list := range lists {
		copied[n] = append([]string(nil), list...)
	}
	return newRegistry(categories, copied), nil
}

func newRegistry(categories []string, lists [][]string) *Registry {
	ids := make([]map[string]uint32, len(lists))
	for n, list := range lists {
		m := make(map[string]uint32, len(list))
		for id, it := range list {
			m[it] = uint32(id)
		}
		ids[n] = m
	}
	return &Registry{
		categories: append([]string(nil), categories...),
		ids:        ids,
		items:      lists,
	}
}

func (r *Registry) NumCategories() int { return len(r.categories) }

func (r *Registry) Categories() []string { return append([]string(nil), r.categories...) }

// Size 返回第 cat 个类目的物品数，即 id 取值范围 [0, Size)。
func (r *Registry) Size(cat int) int { return len(r.items[cat]) }

// Sizes 返回所有类目的物品数。
func (r *Registry) Sizes() []int {
	sizes := make([]int, len(r.items))
	for n := range r.items {
		sizes[n] = len(r.items[n])
	}
	return sizes
}

// Items 返回第 cat 个类目按 id 排列的标识列表副本。
func (r *Registry) Items(cat int) []string { return append([]string(nil), r.items[cat]...) }

// ID 将原始标识翻译为紧凑 id。
func (r *Registry) ID(cat int, raw string) (uint32, error) {
	id, ok := r.ids[cat][raw]
	if !ok {
		return 0, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeUnknownIdentifier,
			fmt.Sprintf("unknown %s item %q", r.categories[cat], raw))
	}
	return id, nil
}

// Raw 将紧凑 id 翻译回原始标识。
func (r *Registry) Raw(cat int, id uint32) (string, error) {
	if int(id) >= len(r.items[cat]) {
		return "", core.NewDomainError(core.ModuleRegistry, core.ErrorCodeUnknownIdentifier,
			fmt.Sprintf("unknown %s id %d", r.categories[cat], id))
	}
	return r.items[cat][id], nil
}

// Encode 将原始搭配翻译为紧凑 id 元组。
func (r *Registry) Encode(o core.Outfit) (core.IDTuple, error) {
	if len(o) != len(r.categories) {
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeInvalidInput,
			fmt.Sprintf("outfit %v has %d items, want %d", o, len(o), len(r.categories)))
	}
	t := make(core.IDTuple, len(o))
	for n, it := range o {
		id, err := r.ID(n, it)
		if err != nil {
			return nil, err
		}
		t[n] = id
	}
	return t, nil
}

// Decode 将紧凑 id 元组翻译回原始搭配。
func (r *Registry) Decode(t core.IDTuple) (core.Outfit, error) {
	if len(t) != len(r.categories) {
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeInvalidInput,
			fmt.Sprintf("tuple %v has %d ids, want %d", t, len(t), len(r.categories)))
	}
	o := make(core.Outfit, len(t))
	for n, id := range t {
		raw, err := r.Raw(n, id)
		if err != nil {
			return nil, err
		}
		o[n] = raw
	}
	return o, nil
}

// WriteList 按 id 顺序写出第 cat 个类目的标识，每行一个。
func (r *Registry) WriteList(w io.Writer, cat int) error {
	bw := bufio.NewWriter(w)
	for _, it := range r.items[cat] {
		if _, err := bw.WriteString(it + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadList 读取 WriteList 写出的列表，忽略行尾的 \r 与末尾空行。
func ReadList(r io.Reader) ([]string, error) {
	var list []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		list = append(list, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for len(list) > 0 && list[len(list)-1] == "" {
		list = list[:len(list)-1]
	}
	return list, nil
}
