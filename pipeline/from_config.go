package pipeline

import (
	"io"
	"log/slog"

	"github.com/rushteam/outfitkit/config"
	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/metrics"
	"github.com/rushteam/outfitkit/persist"
)

// Option 配置 FromConfig 的运行时依赖。
type Option func(*Env)

// WithInput 设置 JSONL 输入文件路径。
func WithInput(path string) Option { return func(e *Env) { e.Input = path } }

// WithReader 直接提供 JSONL 输入，优先于 WithInput 的路径。
func WithReader(r io.Reader) Option { return func(e *Env) { e.Reader = r } }

// WithStore 设置共享存储：过滤器从中读取名单，产物也会写入其中。
func WithStore(s core.Store) Option { return func(e *Env) { e.Store = s } }

// WithSinks 替换默认的输出目标。
func WithSinks(sinks ...persist.Sink) Option { return func(e *Env) { e.Sinks = sinks } }

func WithLogger(l *slog.Logger) Option { return func(e *Env) { e.Logger = l } }

func WithMetrics(c metrics.Collector) Option { return func(e *Env) { e.Metrics = c } }

func WithProgress(p core.Progress) Option { return func(e *Env) { e.Progress = p } }

// FromConfig 校验配置并构建 Pipeline。
// cfg.Pipeline 为空时使用 StandardChain；默认输出为 cfg.Output.Dir 目录，
// 设置了 WithStore 时还会写入该存储（key 前缀 cfg.Output.Redis.Prefix）。
func FromConfig(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	env := &Env{Config: cfg}
	for _, opt := range opts {
		opt(env)
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	if env.Sinks == nil {
		sinks, err := defaultSinks(cfg, env.Store)
		if err != nil {
			return nil, err
		}
		env.Sinks = sinks
	}

	nodes := cfg.Pipeline
	if len(nodes) == 0 {
		for _, t := range StandardChain {
			nodes = append(nodes, config.NodeConfig{Type: t})
		}
	}
	factory := DefaultFactory()
	p := &Pipeline{Logger: env.Logger, Metrics: env.Metrics}
	for _, nc := range nodes {
		node, err := factory.Build(nc.Type, env, nc.Config)
		if err != nil {
			return nil, err
		}
		p.Nodes = append(p.Nodes, node)
	}
	return p, nil
}

func defaultSinks(cfg *config.Config, store core.Store) ([]persist.Sink, error) {
	var sinks []persist.Sink
	if cfg.Output.Dir != "" {
		sink, err := persist.NewFileSink(cfg.Output.Dir, cfg.Compression())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if store != nil {
		r := cfg.Output.Redis
		sinks = append(sinks, persist.NewStoreSink(store, r.Prefix, cfg.Compression(), r.TTL))
	}
	return sinks, nil
}
