// Package config 定义数据集构建任务的配置（支持 YAML/JSON）。
//
// 所有校验在任何切分工作开始前完成，非法配置统一返回 INVALID_CONFIGURATION。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/persist"
)

// Config 是一次数据集构建任务的完整配置。
type Config struct {
	Categories []string     `yaml:"categories" json:"categories"`
	Split      SplitConfig  `yaml:"split" json:"split"`
	Sample     SampleConfig `yaml:"sample" json:"sample"`
	Filter     FilterConfig `yaml:"filter" json:"filter"`
	Output     OutputConfig `yaml:"output" json:"output"`

	// Pipeline 为空时使用标准节点链；否则按顺序构建这里列出的节点。
	Pipeline []NodeConfig `yaml:"pipeline,omitempty" json:"pipeline,omitempty"`
}

// SplitConfig 控制阶段切分。
type SplitConfig struct {
	MinSizes     []int `yaml:"min_sizes" json:"min_sizes"` // train, val, test
	Margin       int   `yaml:"margin" json:"margin"`
	HoldOutUsers int   `yaml:"hold_out_users" json:"hold_out_users"`
}

// SampleConfig 控制负采样。
type SampleConfig struct {
	Ratio   int    `yaml:"ratio" json:"ratio"`
	Factor  int    `yaml:"factor" json:"factor"`
	Workers int    `yaml:"workers" json:"workers"`
	Seed    uint64 `yaml:"seed" json:"seed"` // 0 表示随机
}

// FilterConfig 控制切分前的用户筛选。
type FilterConfig struct {
	IgnoreUsers    []string `yaml:"ignore_users" json:"ignore_users"`
	WatchUsers     []string `yaml:"watch_users" json:"watch_users"`
	IgnoreUsersKey string   `yaml:"ignore_users_key" json:"ignore_users_key"` // Store 中的黑名单 key
	WatchUsersKey  string   `yaml:"watch_users_key" json:"watch_users_key"`   // Store 中的白名单 key
	MinOutfits     int      `yaml:"min_outfits" json:"min_outfits"`
	Expr           string   `yaml:"expr" json:"expr"`
}

// OutputConfig 控制产物写到哪里。
type OutputConfig struct {
	Dir         string      `yaml:"dir" json:"dir"`
	Compression string      `yaml:"compression" json:"compression"`
	Redis       RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig 为空 Addr 时不写 Redis。
type RedisConfig struct {
	Addr   string `yaml:"addr" json:"addr"`
	DB     int    `yaml:"db" json:"db"`
	Prefix string `yaml:"prefix" json:"prefix"`
	TTL    int    `yaml:"ttl" json:"ttl"` // 秒，0 表示不过期
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `yaml:"type" json:"type"`     // ingest.jsonl / filter / split / sample 等
	Config map[string]any `yaml:"config" json:"config"` // Node 特定配置
}

// Default 返回参考实现的默认配置。
func Default() *Config {
	return &Config{
		Categories: core.Categories(),
		Split: SplitConfig{
			MinSizes: append([]int(nil), core.DefaultMinSizes[:]...),
			Margin:   core.DefaultMargin,
		},
		Sample: SampleConfig{
			Ratio:   core.DefaultRatio,
			Factor:  core.DefaultFactor,
			Workers: 4,
		},
		Output: OutputConfig{
			Dir:         "out",
			Compression: string(persist.CompressionNone),
			Redis:       RedisConfig{Prefix: "outfitkit"},
		},
	}
}

// Load 按扩展名选择 YAML 或 JSON 解析。
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadFromJSON(path)
	default:
		return LoadFromYAML(path)
	}
}

// LoadFromYAML 从 YAML 文件加载配置，未出现的字段保留默认值。
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML 解析 YAML 内容。
func ParseYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfiguration, "parse yaml", err)
	}
	return cfg, nil
}

// LoadFromJSON 从 JSON 文件加载配置，未出现的字段保留默认值。
func LoadFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseJSON(data)
}

// ParseJSON 解析 JSON 内容。
func ParseJSON(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfiguration, "parse json", err)
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfiguration, fmt.Sprintf(format, args...))
}

// Validate 校验配置，返回第一个发现的问题。
func (c *Config) Validate() error {
	if len(c.Categories) < 2 {
		return invalid("need at least 2 categories, got %d", len(c.Categories))
	}
	seen := make(map[string]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		if cat == "" {
			return invalid("empty category name")
		}
		if _, ok := seen[cat]; ok {
			return invalid("duplicate category %q", cat)
		}
		seen[cat] = struct{}{}
	}
	if len(c.Split.MinSizes) != core.NumPhases {
		return invalid("split.min_sizes needs %d values (train, val, test), got %d", core.NumPhases, len(c.Split.MinSizes))
	}
	for i, m := range c.Split.MinSizes {
		if m < 1 {
			return invalid("split.min_sizes[%s] must be at least 1, got %d", core.Phases[i], m)
		}
	}
	if c.Split.Margin < 0 {
		return invalid("split.margin must not be negative, got %d", c.Split.Margin)
	}
	if c.Split.HoldOutUsers < 0 {
		return invalid("split.hold_out_users must not be negative, got %d", c.Split.HoldOutUsers)
	}
	if c.Sample.Ratio <= 0 {
		return invalid("sample.ratio must be positive, got %d", c.Sample.Ratio)
	}
	if c.Sample.Factor < 1 {
		return invalid("sample.factor must be at least 1, got %d", c.Sample.Factor)
	}
	if c.Sample.Workers < 0 {
		return invalid("sample.workers must not be negative, got %d", c.Sample.Workers)
	}
	if c.Filter.MinOutfits < 0 {
		return invalid("filter.min_outfits must not be negative, got %d", c.Filter.MinOutfits)
	}
	if _, err := persist.ParseCompression(c.Output.Compression); err != nil {
		return core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfiguration, "output.compression", err)
	}
	for i, n := range c.Pipeline {
		if n.Type == "" {
			return invalid("pipeline[%d]: missing node type", i)
		}
	}
	return nil
}

// MinSizes 以 Phase 为下标返回各阶段最小规模。调用前应先 Validate。
func (c *Config) MinSizes() [core.NumPhases]int {
	var out [core.NumPhases]int
	copy(out[:], c.Split.MinSizes)
	return out
}

// Compression 返回解析后的压缩算法。调用前应先 Validate。
func (c *Config) Compression() persist.Compression {
	comp, _ := persist.ParseCompression(c.Output.Compression)
	return comp
}
