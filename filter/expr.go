package filter

import (
	"context"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/pkg/dsl"
)

// ExprFilter 用 CEL 表达式筛选用户：表达式为 true 时保留，false 时过滤。
//
// 示例：
//   - `user.outfits >= 10`
//   - `user.items[2] > 1`
type ExprFilter struct {
	eval          *dsl.Eval
	numCategories int
}

// NewExprFilter 编译表达式；表达式非法时返回 INVALID_CONFIGURATION。
func NewExprFilter(expr string, numCategories int) (*ExprFilter, error) {
	e, err := dsl.NewEval(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{eval: e, numCategories: numCategories}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(_ context.Context, u *core.UserOutfits) (bool, error) {
	if u == nil {
		return true, nil
	}
	keep, err := f.eval.Evaluate(u, f.numCategories)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
