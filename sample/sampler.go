// Package sample 为一个阶段的按用户分组正样本合成负样本。
//
// 流水线：CategoryFixed 与 FullyRandom 两个生成器产生候选 -> Acceptor 拒绝与正样本碰撞的候选并在
// 收集满 ratio × |正样本| 后截断 -> 打乱。候选不足只记录诊断，不中断。
package sample

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/metrics"
	"github.com/rushteam/outfitkit/registry"
)

// Sampler 是单个阶段的负样本生成器。
//
// 正样本在构造时通过本阶段的 Registry 翻译为紧凑 id；Positive / Negative 在调用时
// 经同一个只读 Registry 翻译回原始标识。
type Sampler struct {
	phase    core.Phase
	reg      *registry.Registry
	users    [][]core.IDTuple
	acceptor *Acceptor

	seed     uint64
	workers  int
	logger   *slog.Logger
	metrics  metrics.Collector
	progress core.Progress

	negatives [][]core.IDTuple
	report    *Report
}

// Option 配置 Sampler。
type Option func(*Sampler)

// WithSeed 固定随机种子；0 表示随机选取。相同种子在任意并发度下产生相同结果。
func WithSeed(seed uint64) Option {
	return func(s *Sampler) { s.seed = seed }
}

// WithWorkers 设置并发处理用户的 goroutine 数，<=1 时顺序处理。
func WithWorkers(n int) Option {
	return func(s *Sampler) { s.workers = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

func WithMetrics(c metrics.Collector) Option {
	return func(s *Sampler) { s.metrics = c }
}

// WithProgress 设置进度回调；本 Sampler 内的回调会被串行化。多个 Sampler 共享同一回调时，
// 调用方应传入 core.Progress.Serialized 的结果。
func WithProgress(p core.Progress) Option {
	return func(s *Sampler) { s.progress = p }
}

// New 为阶段 phase 创建 Sampler。users[u] 是第 u 个用户在该阶段的正样本。
func New(phase core.Phase, users [][]core.Outfit, categories []string, opts ...Option) (*Sampler, error) {
	reg, err := registry.Build(categories, users)
	if err != nil {
		return nil, err
	}
	s := &Sampler{
		phase:   phase,
		reg:     reg,
		users:   make([][]core.IDTuple, len(users)),
		workers: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seed == 0 {
		s.seed = rand.Uint64()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.metrics = metrics.OrNoop(s.metrics)

	var all []core.IDTuple
	for u, outfits := range users {
		encoded := make([]core.IDTuple, len(outfits))
		for i, o := range outfits {
			t, err := reg.Encode(o)
			if err != nil {
				return nil, err
			}
			encoded[i] = t
		}
		s.users[u] = encoded
		all = append(all, encoded...)
	}
	s.acceptor = NewAcceptor(all)
	return s, nil
}

func (s *Sampler) Phase() core.Phase { return s.phase }

func (s *Sampler) NumUsers() int { return len(s.users) }

// Registry 返回本阶段的紧凑 id 映射。
func (s *Sampler) Registry() *registry.Registry { return s.reg }

// Seed 返回实际使用的随机种子。
func (s *Sampler) Seed() uint64 { return s.seed }

// Shortfall 记录一个候选池不足的用户。
type Shortfall struct {
	User     int
	Required int
	Got      int
}

// Report 汇总一次 Run 的结果。
type Report struct {
	Phase      core.Phase
	Ratio      int
	Factor     int
	Seed       uint64
	Users      int
	Positives  int
	Required   int
	Generated  int
	Shortfalls []Shortfall
}

// Err 在存在候选不足的用户时返回 INSUFFICIENT_NEGATIVES，否则返回 nil。
// Run 本身从不因此失败；需要精确数量的调用方可以据此提高 factor 重跑。
func (r *Report) Err() error {
	if r == nil || len(r.Shortfalls) == 0 {
		return nil
	}
	return core.NewDomainError(core.ModuleSample, core.ErrorCodeInsufficientNegatives,
		fmt.Sprintf("%s: %d users short of negatives (%d/%d generated), increase factor (now %d)",
			r.Phase, len(r.Shortfalls), r.Generated, r.Required, r.Factor))
}

// Run 为每个用户生成 ratio × |正样本| 条负样本。
// ratio 必须为正，factor 决定完全随机候选池的大小（factor × 所需数量），至少为 1。
func (s *Sampler) Run(ctx context.Context, ratio, factor int) (*Report, error) {
	if ratio <= 0 {
		return nil, core.NewDomainError(core.ModuleSample, core.ErrorCodeInvalidConfiguration,
			fmt.Sprintf("ratio must be positive, got %d", ratio))
	}
	if factor < 1 {
		return nil, core.NewDomainError(core.ModuleSample, core.ErrorCodeInvalidConfiguration,
			fmt.Sprintf("factor must be at least 1, got %d", factor))
	}

	sizes := s.reg.Sizes()
	fixed := CategoryFixed{Sizes: sizes}
	random := FullyRandom{Sizes: sizes}
	negatives := make([][]core.IDTuple, len(s.users))
	stage := "sample." + s.phase.String()

	var (
		mu   sync.Mutex
		done int
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(s.workers, 1))
	for u := range s.users {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			negatives[u] = s.sampleUser(u, ratio, factor, fixed, random)
			mu.Lock()
			done++
			s.progress.Report(stage, done, len(s.users))
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Phase:  s.phase,
		Ratio:  ratio,
		Factor: factor,
		Seed:   s.seed,
		Users:  len(s.users),
	}
	for u, neg := range negatives {
		required := ratio * len(s.users[u])
		report.Positives += len(s.users[u])
		report.Required += required
		report.Generated += len(neg)
		s.metrics.NegativesGenerated(s.phase.String(), len(neg))
		if len(neg) < required {
			report.Shortfalls = append(report.Shortfalls, Shortfall{User: u, Required: required, Got: len(neg)})
			s.metrics.NegativeShortfall(s.phase.String(), required-len(neg))
			s.logger.WarnContext(ctx, "not enough negative tuples, need to increase factor",
				"phase", s.phase.String(),
				"user", u,
				"required", required,
				"got", len(neg),
				"factor", factor,
			)
		}
	}
	s.negatives = negatives
	s.report = report
	s.logger.InfoContext(ctx, "negative sampling finished",
		"phase", s.phase.String(),
		"users", report.Users,
		"positives", report.Positives,
		"negatives", report.Generated,
		"shortfalls", len(report.Shortfalls),
	)
	return report, nil
}

// sampleUser 的随机源只由 (seed, phase, user) 决定，因此结果与并发度无关。
func (s *Sampler) sampleUser(u, ratio, factor int, fixed, random Generator) []core.IDTuple {
	rng := rand.New(rand.NewPCG(s.seed, uint64(s.phase)<<32|uint64(u)))
	pos := s.users[u]
	required := ratio * len(pos)
	candidates := fixed.Generate(rng, pos, len(pos))
	candidates = append(candidates, random.Generate(rng, pos, factor*required)...)
	neg := s.acceptor.Accept(candidates, required)
	rng.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })
	return neg
}

// Report 返回最近一次 Run 的报告，尚未运行时为 nil。
func (s *Sampler) Report() *Report { return s.report }

// Positives 返回按用户分组的紧凑正样本。
func (s *Sampler) Positives() [][]core.IDTuple { return s.users }

// Negatives 返回按用户分组的紧凑负样本，尚未运行时为 nil。
func (s *Sampler) Negatives() [][]core.IDTuple { return s.negatives }

// IsPositive 报告 t 是否属于本阶段的正样本全集。
func (s *Sampler) IsPositive(t core.IDTuple) bool { return s.acceptor.Contains(t) }

// Positive 返回翻译回原始标识的正样本行，用户优先、元组次之。
func (s *Sampler) Positive() ([]core.Row, error) { return s.rows(s.users) }

// Negative 返回翻译回原始标识的负样本行，尚未运行时为空。
func (s *Sampler) Negative() ([]core.Row, error) { return s.rows(s.negatives) }

func (s *Sampler) rows(byUser [][]core.IDTuple) ([]core.Row, error) {
	total := 0
	for _, ts := range byUser {
		total += len(ts)
	}
	rows := make([]core.Row, 0, total)
	for u, ts := range byUser {
		for _, t := range ts {
			o, err := s.reg.Decode(t)
			if err != nil {
				return nil, err
			}
			rows = append(rows, core.Row{User: u, Items: o})
		}
	}
	return rows, nil
}
