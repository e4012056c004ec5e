package pipeline

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/dataset"
	"github.com/rushteam/outfitkit/filter"
	"github.com/rushteam/outfitkit/ingest"
	"github.com/rushteam/outfitkit/persist"
	"github.com/rushteam/outfitkit/split"
)

// HoldOutListName 是留出用户名单的产物名。
const HoldOutListName = "hold_out_user_list"

// LoadNode 从 JSONL 读取用户正样本，并去掉少于 Clip 条的用户。
// Reader 非 nil 时优先使用，否则打开 Path。
type LoadNode struct {
	Path   string
	Reader io.Reader
	Clip   int
}

func (n *LoadNode) Name() string { return "ingest.jsonl" }
func (n *LoadNode) Kind() Kind   { return KindIngest }

func (n *LoadNode) Process(_ context.Context, st *State) error {
	r := n.Reader
	if r == nil {
		if n.Path == "" {
			return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidConfiguration, "no input")
		}
		f, err := os.Open(n.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	users, err := ingest.ReadJSONL(r, len(st.Categories))
	if err != nil {
		return err
	}
	st.Users = ingest.Clip(users, n.Clip)
	return nil
}

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该用户就会被过滤掉。
type FilterNode struct {
	Filters []filter.Filter
	Logger  *slog.Logger
}

func (n *FilterNode) Name() string { return "filter.node" }
func (n *FilterNode) Kind() Kind   { return KindFilter }

func (n *FilterNode) Process(ctx context.Context, st *State) error {
	if len(n.Filters) == 0 {
		return nil
	}
	kept, dropped, err := filter.Apply(ctx, st.Users, n.Filters...)
	if err != nil {
		return err
	}
	st.Users = kept
	st.Filtered += dropped
	logger(n.Logger).InfoContext(ctx, "users filtered", "kept", len(kept), "dropped", dropped)
	return nil
}

// SplitNode 对 State.Users 执行阶段切分。
type SplitNode struct {
	Splitter *split.Splitter
}

func (n *SplitNode) Name() string { return "split" }
func (n *SplitNode) Kind() Kind   { return KindSplit }

func (n *SplitNode) Process(ctx context.Context, st *State) error {
	res, err := n.Splitter.Split(ctx, st.Users)
	if err != nil {
		return err
	}
	st.Result = res
	return nil
}

// HoldOutNode 从切分结果中随机留出 N 个用户，Seed 为 0 时随机选取。
type HoldOutNode struct {
	N    int
	Seed uint64
}

func (n *HoldOutNode) Name() string { return "split.hold_out" }
func (n *HoldOutNode) Kind() Kind   { return KindSplit }

func (n *HoldOutNode) Process(_ context.Context, st *State) error {
	if st.Result == nil {
		return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidConfiguration, "hold out before split")
	}
	if n.N <= 0 {
		return nil
	}
	seed := n.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	st.HeldOut, st.Result = st.Result.HoldOut(n.N, rand.New(rand.NewPCG(seed, 0)))
	return nil
}

// SampleNode 为切分结果构建 Dataset 并生成负样本。
// 候选不足只记录告警，不会使节点失败。
type SampleNode struct {
	Ratio   int
	Factor  int
	Options []dataset.Option
	Logger  *slog.Logger
}

func (n *SampleNode) Name() string { return "sample" }
func (n *SampleNode) Kind() Kind   { return KindSample }

func (n *SampleNode) Process(ctx context.Context, st *State) error {
	if st.Result == nil {
		return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidConfiguration, "sample before split")
	}
	d, err := dataset.New(st.Result, st.Categories, n.Options...)
	if err != nil {
		return err
	}
	if err := d.Run(ctx, n.Ratio, n.Factor); err != nil {
		return err
	}
	if err := d.Err(); err != nil {
		logger(n.Logger).WarnContext(ctx, "dataset has negative shortfalls", "error", err)
	}
	st.Dataset = d
	return nil
}

// SaveNode 把 Dataset 写到每个 Sink；有留出用户时一并写出其名单。
type SaveNode struct {
	Sinks []persist.Sink
}

func (n *SaveNode) Name() string { return "persist.save" }
func (n *SaveNode) Kind() Kind   { return KindPersist }

func (n *SaveNode) Process(ctx context.Context, st *State) error {
	if st.Dataset == nil {
		return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidConfiguration, "save before sample")
	}
	for _, sink := range n.Sinks {
		if err := st.Dataset.Save(ctx, sink); err != nil {
			return err
		}
		if st.HeldOut != nil {
			if err := sink.PutList(ctx, HoldOutListName, st.HeldOut.Users); err != nil {
				return err
			}
		}
	}
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
