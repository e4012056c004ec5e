// Package filter 在切分之前筛选用户。
package filter

import (
	"context"

	"github.com/rushteam/outfitkit/core"
)

// Filter 是用户过滤器的抽象接口，用于判断一个用户是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断用户是否应该被过滤
	ShouldFilter(ctx context.Context, u *core.UserOutfits) (bool, error)
}

// Apply 依次用 filters 检查每个用户，任何一个过滤器返回 true 即移除该用户。
// 保留的用户保持原有顺序；过滤器出错时立即返回错误。
func Apply(ctx context.Context, users []core.UserOutfits, filters ...Filter) (kept []core.UserOutfits, dropped int, err error) {
	if len(filters) == 0 {
		return users, 0, nil
	}
	kept = make([]core.UserOutfits, 0, len(users))
	for i := range users {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		remove := false
		for _, f := range filters {
			ok, err := f.ShouldFilter(ctx, &users[i])
			if err != nil {
				return nil, 0, core.WrapDomainError(core.ModuleFilter, core.ErrorCodeInvalidInput, f.Name(), err)
			}
			if ok {
				remove = true
				break
			}
		}
		if remove {
			dropped++
			continue
		}
		kept = append(kept, users[i])
	}
	return kept, dropped, nil
}
