// Command outfitkit 从 JSONL 输入构建无泄漏的 train/val/test 搭配数据集。
//
// 用法：
//
//	outfitkit -config job.yaml -input outfits.jsonl -out ./data
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/rushteam/outfitkit/config"
	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/metrics"
	"github.com/rushteam/outfitkit/pipeline"
	"github.com/rushteam/outfitkit/store"
)

type options struct {
	configPath  string
	input       string
	out         string
	logLevel    string
	logFormat   string
	dumpMetrics bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("outfitkit", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "YAML or JSON job config (defaults are used when empty)")
	fs.StringVar(&o.input, "input", "", "JSONL input, one outfit set per line; - reads stdin")
	fs.StringVar(&o.out, "out", "", "output directory, overrides output.dir")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.StringVar(&o.logFormat, "log-format", "text", "text or json")
	fs.BoolVar(&o.dumpMetrics, "metrics", false, "print Prometheus metrics to stderr when done")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.input == "" {
		return nil, fmt.Errorf("-input is required")
	}
	return o, nil
}

func initLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}

func loadConfig(o *options) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.out != "" {
		cfg.Output.Dir = o.out
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdin io.Reader, stderr io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	logger, err := initLogger(stderr, o.logLevel, o.logFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewPrometheus(reg)
	if err != nil {
		return err
	}

	popts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(collector),
		pipeline.WithProgress(progressLogger(logger)),
	}
	if o.input == "-" {
		popts = append(popts, pipeline.WithReader(stdin))
	} else {
		popts = append(popts, pipeline.WithInput(o.input))
	}
	if addr := cfg.Output.Redis.Addr; addr != "" {
		rs, err := store.NewRedisStore(addr, cfg.Output.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", addr, err)
		}
		defer rs.Close()
		popts = append(popts, pipeline.WithStore(rs))
	}

	p, err := pipeline.FromConfig(cfg, popts...)
	if err != nil {
		return err
	}
	start := time.Now()
	st := pipeline.NewState(cfg.Categories)
	if err := p.Run(ctx, st); err != nil {
		return err
	}
	attrs := []any{"elapsed", time.Since(start).Round(time.Millisecond)}
	if st.Dataset != nil {
		attrs = append(attrs, "run_id", st.Dataset.RunID, "users", len(st.Dataset.Users()))
	}
	logger.InfoContext(ctx, "done", attrs...)
	if o.dumpMetrics {
		return dumpMetrics(stderr, reg)
	}
	return nil
}

// progressLogger 每完成约 10% 打一条 debug 日志。
func progressLogger(logger *slog.Logger) core.Progress {
	return func(stage string, done, total int) {
		step := max(total/10, 1)
		if done == total || done%step == 0 {
			logger.Debug("progress", "stage", stage, "done", done, "total", total)
		}
	}
}

func dumpMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "outfitkit:", err)
		if de := core.GetDomainError(err); de != nil {
			fmt.Fprintln(os.Stderr, "code:", de.Code)
		}
		stop()
		os.Exit(1)
	}
}
