package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/persist"
)

const sampleYAML = `
categories: [top, bottom, shoe]
split:
  min_sizes: [30, 5, 5]
  margin: 2
  hold_out_users: 3
sample:
  ratio: 4
  factor: 3
  seed: 7
filter:
  ignore_users: [pretty-girl-xo]
  expr: 'user.outfits >= 10'
output:
  dir: ./data
  compression: zstd
pipeline:
  - type: ingest.jsonl
    config:
      clip: 10
  - type: split
`

func TestParseYAML(t *testing.T) {
	cfg, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, [core.NumPhases]int{30, 5, 5}, cfg.MinSizes())
	assert.Equal(t, 2, cfg.Split.Margin)
	assert.Equal(t, 3, cfg.Split.HoldOutUsers)
	assert.Equal(t, 4, cfg.Sample.Ratio)
	assert.Equal(t, 3, cfg.Sample.Factor)
	assert.Equal(t, uint64(7), cfg.Sample.Seed)
	assert.Equal(t, 4, cfg.Sample.Workers, "unset fields keep defaults")
	assert.Equal(t, []string{"pretty-girl-xo"}, cfg.Filter.IgnoreUsers)
	assert.Equal(t, persist.CompressionZstd, cfg.Compression())
	assert.Equal(t, "outfitkit", cfg.Output.Redis.Prefix)

	require.Len(t, cfg.Pipeline, 2)
	assert.Equal(t, "ingest.jsonl", cfg.Pipeline[0].Type)
	assert.Equal(t, 10, cfg.Pipeline[0].Config["clip"])
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o644))
	jsonPath := filepath.Join(dir, "job.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"sample":{"ratio":2},"split":{"min_sizes":[3,1,1]}}`), 0o644))

	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Sample.Ratio)

	cfg, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Sample.Ratio)
	assert.Equal(t, [core.NumPhases]int{3, 1, 1}, cfg.MinSizes())
	assert.Equal(t, core.DefaultMinSizes, Default().MinSizes(), "defaults are not shared with loaded configs")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	_, err := ParseYAML([]byte("split: [1, 2"))
	assert.True(t, core.IsInvalidConfiguration(err))
	_, err = ParseJSON([]byte("{"))
	assert.True(t, core.IsInvalidConfiguration(err))
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, core.DefaultMinSizes, cfg.MinSizes())
	assert.Equal(t, core.DefaultCategories, cfg.Categories)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "one category", mutate: func(c *Config) { c.Categories = []string{"top"} }},
		{name: "duplicate category", mutate: func(c *Config) { c.Categories = []string{"top", "top"} }},
		{name: "empty category", mutate: func(c *Config) { c.Categories = []string{"top", ""} }},
		{name: "two min sizes", mutate: func(c *Config) { c.Split.MinSizes = []int{1, 1} }},
		{name: "zero min size", mutate: func(c *Config) { c.Split.MinSizes = []int{1, 0, 1} }},
		{name: "negative margin", mutate: func(c *Config) { c.Split.Margin = -1 }},
		{name: "negative hold out", mutate: func(c *Config) { c.Split.HoldOutUsers = -1 }},
		{name: "zero ratio", mutate: func(c *Config) { c.Sample.Ratio = 0 }},
		{name: "zero factor", mutate: func(c *Config) { c.Sample.Factor = 0 }},
		{name: "negative workers", mutate: func(c *Config) { c.Sample.Workers = -2 }},
		{name: "negative min outfits", mutate: func(c *Config) { c.Filter.MinOutfits = -1 }},
		{name: "unknown compression", mutate: func(c *Config) { c.Output.Compression = "brotli" }},
		{name: "untyped node", mutate: func(c *Config) { c.Pipeline = []NodeConfig{{}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, core.IsInvalidConfiguration(err), err.Error())
		})
	}
}
