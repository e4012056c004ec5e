package filter

import (
	"context"

	"github.com/rushteam/outfitkit/core"
)

// MinOutfitsFilter 过滤掉去重后正样本少于 Min 条的用户。
type MinOutfitsFilter struct {
	Min int
}

func (f *MinOutfitsFilter) Name() string {
	return "filter.min_outfits"
}

func (f *MinOutfitsFilter) ShouldFilter(_ context.Context, u *core.UserOutfits) (bool, error) {
	if u == nil {
		return true, nil
	}
	return len(u.Outfits) < f.Min, nil
}
