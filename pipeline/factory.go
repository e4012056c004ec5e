package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/rushteam/outfitkit/config"
	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/dataset"
	"github.com/rushteam/outfitkit/filter"
	"github.com/rushteam/outfitkit/metrics"
	"github.com/rushteam/outfitkit/persist"
	"github.com/rushteam/outfitkit/pkg/conv"
	"github.com/rushteam/outfitkit/split"
)

// Env 是构建节点时共享的运行时依赖；节点参数缺省时回落到 Config 中的值。
type Env struct {
	Config   *config.Config
	Input    string
	Reader   io.Reader
	Store    core.Store
	Sinks    []persist.Sink
	Logger   *slog.Logger
	Metrics  metrics.Collector
	Progress core.Progress
}

// NodeBuilder 根据节点配置构建 Node。
type NodeBuilder func(env *Env, cfg map[string]any) (Node, error)

// NodeFactory 用于根据配置构建 Node 实例。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{builders: make(map[string]NodeBuilder)}
}

// Register 注册 Node 构建器。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, env *Env, cfg map[string]any) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidConfiguration,
			fmt.Sprintf("unsupported node type %q (supported: %v)", nodeType, f.Types()))
	}
	return builder(env, cfg)
}

// Types 返回已注册的节点类型（排序）。
func (f *NodeFactory) Types() []string {
	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
// 扩展节点可以在 init 中调用，例如：func init() { pipeline.Register("filter.custom", build) }
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序）。
func SupportedTypes() []string {
	return DefaultFactory().Types()
}

// DefaultFactory 返回基于当前注册表构建的 NodeFactory。
func DefaultFactory() *NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

func init() {
	Register("ingest.jsonl", BuildLoadNode)
	Register("filter", BuildFilterNode)
	Register("split", BuildSplitNode)
	Register("split.hold_out", BuildHoldOutNode)
	Register("sample", BuildSampleNode)
	Register("persist.save", BuildSaveNode)
}

// StandardChain 是未配置 pipeline 时使用的节点链。
var StandardChain = []string{"ingest.jsonl", "filter", "split", "split.hold_out", "sample", "persist.save"}

func BuildLoadNode(env *Env, cfg map[string]any) (Node, error) {
	path := conv.ConfigGet(cfg, "path", env.Input)
	n := &LoadNode{Path: path, Clip: conv.ConfigGetInt(cfg, "clip", 0)}
	if path == env.Input {
		n.Reader = env.Reader
	}
	return n, nil
}

func BuildFilterNode(env *Env, cfg map[string]any) (Node, error) {
	fc := env.Config.Filter
	if v, ok := cfg["ignore_users"]; ok {
		fc.IgnoreUsers = conv.SliceAnyToString(v)
	}
	if v, ok := cfg["watch_users"]; ok {
		fc.WatchUsers = conv.SliceAnyToString(v)
	}
	fc.IgnoreUsersKey = conv.ConfigGet(cfg, "ignore_users_key", fc.IgnoreUsersKey)
	fc.WatchUsersKey = conv.ConfigGet(cfg, "watch_users_key", fc.WatchUsersKey)
	fc.MinOutfits = conv.ConfigGetInt(cfg, "min_outfits", fc.MinOutfits)
	fc.Expr = conv.ConfigGet(cfg, "expr", fc.Expr)

	var adapter *filter.StoreAdapter
	if env.Store != nil {
		adapter = filter.NewStoreAdapter(env.Store)
	}
	var filters []filter.Filter
	if len(fc.IgnoreUsers) > 0 || (adapter != nil && fc.IgnoreUsersKey != "") {
		filters = append(filters, filter.NewBlacklistFilter(fc.IgnoreUsers, adapter, fc.IgnoreUsersKey))
	}
	if len(fc.WatchUsers) > 0 || (adapter != nil && fc.WatchUsersKey != "") {
		filters = append(filters, filter.NewWhitelistFilter(fc.WatchUsers, adapter, fc.WatchUsersKey))
	}
	if fc.MinOutfits > 0 {
		filters = append(filters, &filter.MinOutfitsFilter{Min: fc.MinOutfits})
	}
	if fc.Expr != "" {
		f, err := filter.NewExprFilter(fc.Expr, len(env.Config.Categories))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return &FilterNode{Filters: filters, Logger: env.Logger}, nil
}

func BuildSplitNode(env *Env, cfg map[string]any) (Node, error) {
	sizes := env.Config.MinSizes()
	if v, ok := cfg["min_sizes"]; ok {
		list := conv.SliceAnyToInt(v)
		if len(list) != core.NumPhases {
			return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidConfiguration,
				fmt.Sprintf("split.min_sizes needs %d values, got %v", core.NumPhases, v))
		}
		copy(sizes[:], list)
	}
	s := split.New(
		split.WithMinSizes(sizes[core.PhaseTrain], sizes[core.PhaseVal], sizes[core.PhaseTest]),
		split.WithMargin(conv.ConfigGetInt(cfg, "margin", env.Config.Split.Margin)),
		split.WithLogger(env.Logger),
		split.WithMetrics(env.Metrics),
		split.WithProgress(env.Progress),
	)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &SplitNode{Splitter: s}, nil
}

func BuildHoldOutNode(env *Env, cfg map[string]any) (Node, error) {
	return &HoldOutNode{
		N:    conv.ConfigGetInt(cfg, "n", env.Config.Split.HoldOutUsers),
		Seed: uint64(conv.ConfigGetInt(cfg, "seed", int(env.Config.Sample.Seed))),
	}, nil
}

func BuildSampleNode(env *Env, cfg map[string]any) (Node, error) {
	sc := env.Config.Sample
	n := &SampleNode{
		Ratio:  conv.ConfigGetInt(cfg, "ratio", sc.Ratio),
		Factor: conv.ConfigGetInt(cfg, "factor", sc.Factor),
		Logger: env.Logger,
	}
	if n.Ratio <= 0 || n.Factor < 1 {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidConfiguration,
			fmt.Sprintf("sample: ratio %d must be positive and factor %d at least 1", n.Ratio, n.Factor))
	}
	n.Options = []dataset.Option{
		dataset.WithSeed(uint64(conv.ConfigGetInt(cfg, "seed", int(sc.Seed)))),
		dataset.WithWorkers(conv.ConfigGetInt(cfg, "workers", sc.Workers)),
		dataset.WithLogger(env.Logger),
		dataset.WithMetrics(env.Metrics),
		dataset.WithProgress(env.Progress),
	}
	return n, nil
}

// BuildSaveNode 使用 Env.Sinks；节点配置了 dir 时额外写一个目录。
func BuildSaveNode(env *Env, cfg map[string]any) (Node, error) {
	sinks := append([]persist.Sink(nil), env.Sinks...)
	if dir := conv.ConfigGet(cfg, "dir", ""); dir != "" {
		comp, err := persist.ParseCompression(conv.ConfigGet(cfg, "compression", env.Config.Output.Compression))
		if err != nil {
			return nil, err
		}
		sink, err := persist.NewFileSink(dir, comp)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) == 0 {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidConfiguration, "no output configured")
	}
	return &SaveNode{Sinks: sinks}, nil
}
