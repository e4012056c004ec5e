// Package split 将每个用户的正样本切分为 train / val / test 三个在物品上互不相交的阶段。
package split

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/metrics"
	"github.com/rushteam/outfitkit/partition"
)

// Order 是阶段的抽取顺序：先从全集抽 train，再从剩余中先抽 test，余下的全部作为 val。
// 这是沿用的固定策略，不从数据中推导。
var Order = [core.NumPhases]core.Phase{core.PhaseTrain, core.PhaseTest, core.PhaseVal}

// Splitter 是阶段切分器。
type Splitter struct {
	MinSizes [core.NumPhases]int // 按 core.Phase 下标：train / val / test
	Margin   int                 // 每个阶段截断到 MinSizes[p] + Margin

	Logger   *slog.Logger
	Metrics  metrics.Collector
	Progress core.Progress
}

// Option 配置 Splitter。
type Option func(*Splitter)

func WithMinSizes(train, val, test int) Option {
	return func(s *Splitter) { s.MinSizes = [core.NumPhases]int{train, val, test} }
}

func WithMargin(margin int) Option {
	return func(s *Splitter) { s.Margin = margin }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Splitter) { s.Logger = l }
}

func WithMetrics(c metrics.Collector) Option {
	return func(s *Splitter) { s.Metrics = c }
}

func WithProgress(p core.Progress) Option {
	return func(s *Splitter) { s.Progress = p }
}

// New 创建使用参考默认值（[250, 20, 20]，margin 10）的 Splitter。
func New(opts ...Option) *Splitter {
	s := &Splitter{
		MinSizes: core.DefaultMinSizes,
		Margin:   core.DefaultMargin,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate 在任何切分工作开始前检查配置。
func (s *Splitter) Validate() error {
	for _, p := range core.Phases {
		if s.MinSizes[p] < 1 {
			return core.NewDomainError(core.ModuleSplit, core.ErrorCodeInvalidConfiguration,
				fmt.Sprintf("min size for %s must be positive, got %d", p, s.MinSizes[p]))
		}
	}
	if s.Margin < 0 {
		return core.NewDomainError(core.ModuleSplit, core.ErrorCodeInvalidConfiguration,
			fmt.Sprintf("margin must not be negative, got %d", s.Margin))
	}
	return nil
}

func (s *Splitter) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// SplitOnce 为每个用户反复抽取整个连通分量并并入 part，
// 直到 len(part) >= minSize 或该用户的搭配耗尽。单个分量永不被拆开。
// 返回的 part[u] 与 rest[u] 在任何类目上都不共享物品。
func (s *Splitter) SplitOnce(ctx context.Context, sets [][]core.Outfit, minSize int) (part, rest [][]core.Outfit, err error) {
	part = make([][]core.Outfit, len(sets))
	rest = make([][]core.Outfit, len(sets))
	components := 0
	stage := fmt.Sprintf("split(min=%d)", minSize)
	for u, outfits := range sets {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		ix := partition.NewIndex(outfits)
		var p []core.Outfit
		for len(p) < minSize && ix.Len() > 0 {
			p = append(p, ix.Extract()...)
			components++
		}
		part[u] = p
		rest[u] = ix.Remaining()
		s.Progress.Report(stage, u+1, len(sets))
	}
	metrics.OrNoop(s.Metrics).ComponentsExtracted(components)
	return part, rest, nil
}

// Dropped 记录一个因某阶段规模不足被剔除的用户。
type Dropped struct {
	User     string
	Phase    core.Phase // 第一个不满足的阶段（按 train / val / test 检查）
	Size     int
	Required int
}

// Split 对所有用户执行完整切分：train -> test -> val，剔除不满足最小规模的用户，
// 并把每个阶段截断到 MinSizes[p] + Margin。
// 规模不足是数据策略结果而不是错误：被剔除的用户记录在 Result.Dropped 中。
func (s *Splitter) Split(ctx context.Context, users []core.UserOutfits) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	log := s.logger()

	raw := make([][]core.Outfit, len(users))
	for u := range users {
		raw[u] = users[u].Outfits
	}

	var phases [core.NumPhases][][]core.Outfit
	first, left, err := s.SplitOnce(ctx, raw, s.MinSizes[Order[0]])
	if err != nil {
		return nil, err
	}
	second, third, err := s.SplitOnce(ctx, left, s.MinSizes[Order[1]])
	if err != nil {
		return nil, err
	}
	phases[Order[0]], phases[Order[1]], phases[Order[2]] = first, second, third
	log.DebugContext(ctx, "coarse split done", "users", len(users))

	res := &Result{}
	for u := range users {
		if d, ok := s.shortOf(users[u].User, u, phases); ok {
			res.Dropped = append(res.Dropped, d)
			log.DebugContext(ctx, "user dropped", "user", d.User, "phase", d.Phase.String(),
				"size", d.Size, "required", d.Required, "code", core.ErrorCodeInsufficientData)
			continue
		}
		res.Users = append(res.Users, users[u].User)
		for _, p := range core.Phases {
			res.Phases[p] = append(res.Phases[p], capOutfits(phases[p][u], s.MinSizes[p]+s.Margin))
			res.Uncapped[p] = append(res.Uncapped[p], len(phases[p][u]))
		}
	}

	metrics.OrNoop(s.Metrics).UsersSplit(len(res.Users), len(res.Dropped))
	log.InfoContext(ctx, "split finished",
		"users_in", len(users),
		"users_kept", len(res.Users),
		"users_dropped", len(res.Dropped),
	)
	return res, nil
}

func (s *Splitter) shortOf(user string, u int, phases [core.NumPhases][][]core.Outfit) (Dropped, bool) {
	for _, p := range core.Phases {
		if n := len(phases[p][u]); n < s.MinSizes[p] {
			return Dropped{User: user, Phase: p, Size: n, Required: s.MinSizes[p]}, true
		}
	}
	return Dropped{}, false
}

func capOutfits(outfits []core.Outfit, limit int) []core.Outfit {
	if len(outfits) > limit {
		outfits = outfits[:limit]
	}
	return append([]core.Outfit(nil), outfits...)
}

// Result 是三个按用户对齐的阶段：Phases[p][u] 属于 Users[u]。
type Result struct {
	Users   []string
	Phases  [core.NumPhases][][]core.Outfit
	Dropped []Dropped

	// Uncapped[p][u] 是截断前用户 u 在阶段 p 的规模，用于诊断
	Uncapped [core.NumPhases][]int
}

// Phase 返回阶段 p 的按用户分组数据。
func (r *Result) Phase(p core.Phase) [][]core.Outfit { return r.Phases[p] }

func (r *Result) NumUsers() int { return len(r.Users) }

// Take 按 idxs 的顺序挑选用户，三个阶段保持对齐。
func (r *Result) Take(idxs []int) *Result {
	out := &Result{Users: make([]string, 0, len(idxs))}
	for _, p := range core.Phases {
		out.Phases[p] = make([][]core.Outfit, 0, len(idxs))
	}
	for _, u := range idxs {
		out.Users = append(out.Users, r.Users[u])
		for _, p := range core.Phases {
			out.Phases[p] = append(out.Phases[p], r.Phases[p][u])
			if len(r.Uncapped[p]) > u {
				out.Uncapped[p] = append(out.Uncapped[p], r.Uncapped[p][u])
			}
		}
	}
	return out
}

// HoldOut 随机留出 n 个用户：left 为留出的用户，kept 为其余用户（沿用 Dropped 记录）。
// 两侧都保持原有用户顺序；n 超过用户数时全部留出。
func (r *Result) HoldOut(n int, rng *rand.Rand) (left, kept *Result) {
	if n > r.NumUsers() {
		n = r.NumUsers()
	}
	if n < 0 {
		n = 0
	}
	perm := rng.Perm(r.NumUsers())
	leftIdx := append([]int(nil), perm[:n]...)
	keptIdx := append([]int(nil), perm[n:]...)
	sort.Ints(leftIdx)
	sort.Ints(keptIdx)
	kept = r.Take(keptIdx)
	kept.Dropped = append([]Dropped(nil), r.Dropped...)
	return r.Take(leftIdx), kept
}
