// Package dataset 把切分结果组装成三个阶段的正负样本，并写出全部产物。
package dataset

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/metrics"
	"github.com/rushteam/outfitkit/persist"
	"github.com/rushteam/outfitkit/registry"
	"github.com/rushteam/outfitkit/sample"
	"github.com/rushteam/outfitkit/split"
)

// Dataset 持有一次运行的三个阶段采样器与跨阶段的物品 Registry。
type Dataset struct {
	RunID      string
	CreatedAt  time.Time
	categories []string
	users      []string
	dropped    int
	reg        *registry.Registry
	samplers   [core.NumPhases]*sample.Sampler
	reports    [core.NumPhases]*sample.Report
	logger     *slog.Logger
	metrics    metrics.Collector
}

type options struct {
	seed     uint64
	workers  int
	logger   *slog.Logger
	metrics  metrics.Collector
	progress core.Progress
}

// Option 配置 Dataset。
type Option func(*options)

// WithSeed 设置基础种子；每个阶段的采样器在此基础上派生。0 表示随机。
func WithSeed(seed uint64) Option { return func(o *options) { o.seed = seed } }

func WithWorkers(n int) Option { return func(o *options) { o.workers = n } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func WithMetrics(c metrics.Collector) Option { return func(o *options) { o.metrics = c } }

// WithProgress 设置进度回调。三个阶段并发运行，回调由同一把锁串行化。
func WithProgress(p core.Progress) Option { return func(o *options) { o.progress = p } }

// New 为 result 的三个阶段创建采样器。result 必须包含至少一个用户。
func New(result *split.Result, categories []string, opts ...Option) (*Dataset, error) {
	o := &options{workers: 1}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if result == nil || result.NumUsers() == 0 {
		return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInsufficientData,
			"no user satisfies the minimum phase sizes")
	}

	reg, err := registry.Build(categories, result.Phases[:]...)
	if err != nil {
		return nil, err
	}
	d := &Dataset{
		RunID:      uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		categories: append([]string(nil), categories...),
		users:      append([]string(nil), result.Users...),
		dropped:    len(result.Dropped),
		reg:        reg,
		logger:     o.logger,
		metrics:    metrics.OrNoop(o.metrics),
	}
	progress := o.progress.Serialized()
	for _, p := range core.Phases {
		sopts := []sample.Option{
			sample.WithWorkers(o.workers),
			sample.WithLogger(o.logger),
			sample.WithMetrics(d.metrics),
			sample.WithProgress(progress),
		}
		if o.seed != 0 {
			sopts = append(sopts, sample.WithSeed(o.seed+uint64(p)))
		}
		s, err := sample.New(p, result.Phase(p), categories, sopts...)
		if err != nil {
			return nil, core.WrapDomainError(core.ModuleDataset, errorCode(err),
				"build "+p.String()+" sampler", err)
		}
		d.samplers[p] = s
	}
	return d, nil
}

func errorCode(err error) string {
	if de := core.GetDomainError(err); de != nil {
		return de.Code
	}
	return core.ErrorCodeInvalidInput
}

// Run 并发地为三个阶段生成负样本。候选不足只体现在报告中，不会返回错误。
func (d *Dataset) Run(ctx context.Context, ratio, factor int) error {
	var reports [core.NumPhases]*sample.Report
	eg, egCtx := errgroup.WithContext(ctx)
	for _, p := range core.Phases {
		eg.Go(func() error {
			r, err := d.samplers[p].Run(egCtx, ratio, factor)
			if err != nil {
				return err
			}
			reports[p] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	d.reports = reports
	return nil
}

// Reports 返回三个阶段的采样报告（按 train / val / test），Run 之前为 nil。
func (d *Dataset) Reports() [core.NumPhases]*sample.Report { return d.reports }

// Err 汇总三个阶段的候选不足错误。
func (d *Dataset) Err() error {
	for _, r := range d.reports {
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dataset) Sampler(p core.Phase) *sample.Sampler { return d.samplers[p] }

// Registry 返回跨三个阶段的物品 Registry，用于写出物品列表。
func (d *Dataset) Registry() *registry.Registry { return d.reg }

// Users 返回保留下来的用户，顺序即样本表中的用户序号。
func (d *Dataset) Users() []string { return append([]string(nil), d.users...) }

func (d *Dataset) Categories() []string { return append([]string(nil), d.categories...) }

// Manifest 描述一次运行的产物。
type Manifest struct {
	RunID        string          `json:"run_id"`
	CreatedAt    time.Time       `json:"created_at"`
	Categories   []string        `json:"categories"`
	Users        int             `json:"users"`
	DroppedUsers int             `json:"dropped_users"`
	ItemCounts   map[string]int  `json:"item_counts"`
	Phases       []PhaseManifest `json:"phases"`
}

// PhaseManifest 是单个阶段的统计。
type PhaseManifest struct {
	Phase      string `json:"phase"`
	Seed       uint64 `json:"seed"`
	Ratio      int    `json:"ratio,omitempty"`
	Factor     int    `json:"factor,omitempty"`
	Positives  int    `json:"positives"`
	Negatives  int    `json:"negatives"`
	Shortfalls int    `json:"shortfalls"`
	Missing    int    `json:"missing"`
}

// Manifest 返回当前状态的运行清单。
func (d *Dataset) Manifest() Manifest {
	m := Manifest{
		RunID:        d.RunID,
		CreatedAt:    d.CreatedAt,
		Categories:   d.Categories(),
		Users:        len(d.users),
		DroppedUsers: d.dropped,
		ItemCounts:   make(map[string]int, len(d.categories)),
	}
	for n, c := range d.categories {
		m.ItemCounts[c] = d.reg.Size(n)
	}
	for _, p := range core.Phases {
		s := d.samplers[p]
		pm := PhaseManifest{Phase: p.String(), Seed: s.Seed()}
		for _, ts := range s.Positives() {
			pm.Positives += len(ts)
		}
		if r := d.reports[p]; r != nil {
			pm.Ratio, pm.Factor = r.Ratio, r.Factor
			pm.Negatives = r.Generated
			pm.Shortfalls = len(r.Shortfalls)
			pm.Missing = r.Required - r.Generated
		}
		m.Phases = append(m.Phases, pm)
	}
	return m
}

// Save 写出全部产物：每个阶段的 tuples_<phase>_posi / tuples_<phase>_nega，
// 每个类目的 image_list_<category>，user_list 与 manifest.json。
func (d *Dataset) Save(ctx context.Context, sink persist.Sink) error {
	for _, p := range core.Phases {
		s := d.samplers[p]
		posi, err := s.Positive()
		if err != nil {
			return err
		}
		nega, err := s.Negative()
		if err != nil {
			return err
		}
		if err := sink.PutTable(ctx, persist.TupleTableName(p, true), persist.TableFromRows(d.categories, posi)); err != nil {
			return err
		}
		if err := sink.PutTable(ctx, persist.TupleTableName(p, false), persist.TableFromRows(d.categories, nega)); err != nil {
			return err
		}
	}
	for n, c := range d.categories {
		if err := sink.PutList(ctx, persist.ItemListName(c), d.reg.Items(n)); err != nil {
			return err
		}
	}
	if err := sink.PutList(ctx, persist.UserListName, d.users); err != nil {
		return err
	}
	manifest, err := json.MarshalIndent(d.Manifest(), "", "  ")
	if err != nil {
		return err
	}
	if err := sink.PutBlob(ctx, persist.ManifestName, manifest); err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "dataset saved", "run_id", d.RunID, "users", len(d.users))
	return nil
}
