package persist

import (
	"context"
	"fmt"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/registry"
)

// 产物名称
const (
	UserListName = "user_list"
	ManifestName = "manifest.json"
)

// TupleTableName 返回阶段正/负样本表的名字，如 tuples_train_posi。
func TupleTableName(phase core.Phase, positive bool) string {
	kind := "nega"
	if positive {
		kind = "posi"
	}
	return fmt.Sprintf("tuples_%s_%s", phase, kind)
}

// ItemListName 返回类目物品列表的名字，如 image_list_top。
func ItemListName(category string) string {
	return "image_list_" + category
}

// LoadTuples 读取阶段的正负样本表，返回行与重复倍数 ratio = |负样本| / |正样本|。
// repeated 为 true 时每条正样本连续重复 ratio 次，使正负样本逐行对齐。
func LoadTuples(ctx context.Context, src Source, phase core.Phase, repeated bool) (posi, nega []core.Row, ratio int, err error) {
	posi, err = loadRows(ctx, src, TupleTableName(phase, true))
	if err != nil {
		return nil, nil, 0, err
	}
	nega, err = loadRows(ctx, src, TupleTableName(phase, false))
	if err != nil {
		return nil, nil, 0, err
	}
	if len(posi) > 0 {
		ratio = len(nega) / len(posi)
	}
	if repeated {
		out := make([]core.Row, 0, len(posi)*ratio)
		for _, r := range posi {
			for i := 0; i < ratio; i++ {
				out = append(out, r)
			}
		}
		posi = out
	}
	return posi, nega, ratio, nil
}

func loadRows(ctx context.Context, src Source, name string) ([]core.Row, error) {
	t, err := src.GetTable(ctx, name)
	if err != nil {
		return nil, err
	}
	return t.ToRows()
}

// LoadRegistry 由各类目的物品列表重建 Registry。
func LoadRegistry(ctx context.Context, src Source, categories []string) (*registry.Registry, error) {
	lists := make([][]string, len(categories))
	for n, c := range categories {
		list, err := src.GetList(ctx, ItemListName(c))
		if err != nil {
			return nil, err
		}
		lists[n] = list
	}
	return registry.FromLists(categories, lists)
}
