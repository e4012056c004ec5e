package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/outfitkit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("user", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Eval 是用户筛选 DSL 解释器，使用 CEL (Common Expression Language) 实现。
// 表达式在 NewEval 时编译一次，之后可以被多个 goroutine 并发求值。
//
// 可用变量：
//   - user.name：用户标识
//   - user.outfits：去重后的正样本数
//   - user.items：每个类目出现过的不同物品数（列表，按类目顺序）
//
// 示例：
//   - `user.outfits >= 10` → 至少 10 条搭配
//   - `user.items[0] > 3 && !user.name.startsWith("bot_")` → 上衣多于 3 件且不是机器人账号
type Eval struct {
	expr string
	prg  cel.Program
}

// NewEval 编译表达式。空表达式总是返回 true。
func NewEval(expr string) (*Eval, error) {
	e := &Eval{expr: expr}
	if expr == "" {
		return e, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, err
	}

	// 编译表达式
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.WrapDomainError(core.ModuleFilter, core.ErrorCodeInvalidConfiguration,
			fmt.Sprintf("compile %q", expr), issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, core.NewDomainError(core.ModuleFilter, core.ErrorCodeInvalidConfiguration,
			fmt.Sprintf("expression %q must return bool, got %s", expr, out))
	}

	// 创建程序
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFilter, core.ErrorCodeInvalidConfiguration,
			fmt.Sprintf("program %q", expr), err)
	}
	e.prg = prg
	return e, nil
}

// String 返回原始表达式。
func (e *Eval) String() string { return e.expr }

// Evaluate 对一个用户求值。
func (e *Eval) Evaluate(u *core.UserOutfits, numCategories int) (bool, error) {
	if e.prg == nil {
		return true, nil
	}

	out, _, err := e.prg.Eval(map[string]any{"user": buildInput(u, numCategories)})
	if err != nil {
		return false, fmt.Errorf("eval %q for user %s: %w", e.expr, u.User, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q must return boolean, got %T", e.expr, out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(u *core.UserOutfits, numCategories int) map[string]any {
	counts := u.DistinctItems(numCategories)
	items := make([]int64, len(counts))
	for n, c := range counts {
		items[n] = int64(c)
	}
	return map[string]any{
		"name":    u.User,
		"outfits": int64(len(u.Outfits)),
		"items":   items,
	}
}
