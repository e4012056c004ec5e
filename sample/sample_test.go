package sample

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/metrics"
)

func o(items ...string) core.Outfit { return core.NewOutfit(items...) }

func phaseUsers(rng *rand.Rand, users, perUser, items int) [][]core.Outfit {
	out := make([][]core.Outfit, users)
	for u := range out {
		var outfits []core.Outfit
		for i := 0; i < perUser; i++ {
			outfits = append(outfits, o(
				fmt.Sprintf("t%d", rng.IntN(items)),
				fmt.Sprintf("b%d", rng.IntN(items)),
				fmt.Sprintf("s%d", rng.IntN(items)),
			))
		}
		out[u] = core.Dedup(outfits)
	}
	return out
}

func TestCategoryFixedKeepsOneCategory(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	g := CategoryFixed{Sizes: []int{50, 50, 50}}
	positives := []core.IDTuple{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}

	for round := 0; round < 50; round++ {
		out := g.Generate(rng, positives, 999)
		require.Len(t, out, len(positives))
		for i, c := range out {
			require.Len(t, c, 3)
			shared := 0
			for n := range c {
				require.Less(t, int(c[n]), 50)
				if c[n] == positives[i][n] {
					shared++
				}
			}
			require.GreaterOrEqual(t, shared, 1, "candidate must keep one category of its positive")
		}
	}
}

func TestFullyRandomRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	g := FullyRandom{Sizes: []int{2, 3, 4}}
	out := g.Generate(rng, nil, 500)
	require.Len(t, out, 500)
	for _, c := range out {
		assert.Less(t, c[0], uint32(2))
		assert.Less(t, c[1], uint32(3))
		assert.Less(t, c[2], uint32(4))
	}
	assert.Nil(t, g.Generate(rng, nil, 0))
	assert.Nil(t, FullyRandom{Sizes: []int{2, 0}}.Generate(rng, nil, 5))
}

func TestAcceptor(t *testing.T) {
	a := NewAcceptor([]core.IDTuple{{0, 0}, {1, 1}})
	assert.True(t, a.Contains(core.IDTuple{0, 0}))
	assert.False(t, a.Contains(core.IDTuple{0, 1}))
	assert.Equal(t, 2, a.Len())

	candidates := []core.IDTuple{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 1}}
	assert.Equal(t, []core.IDTuple{{0, 1}, {1, 0}}, a.Accept(candidates, 2))
	assert.Equal(t, []core.IDTuple{{0, 1}, {1, 0}, {0, 1}}, a.Accept(candidates, 10))
	assert.Nil(t, a.Accept(candidates, 0))
}

func TestSamplerNegativesNeverCollide(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	users := phaseUsers(rng, 12, 25, 10)

	s, err := New(core.PhaseTrain, users, core.Categories(), WithSeed(42))
	require.NoError(t, err)
	report, err := s.Run(context.Background(), 5, 2)
	require.NoError(t, err)

	positives := make(map[string]struct{})
	for _, ts := range s.Positives() {
		for _, p := range ts {
			positives[p.Key()] = struct{}{}
		}
	}
	sizes := s.Registry().Sizes()
	for u, ts := range s.Negatives() {
		assert.LessOrEqual(t, len(ts), 5*len(users[u]))
		for _, n := range ts {
			require.Len(t, n, 3)
			for c := range n {
				require.Less(t, int(n[c]), sizes[c])
			}
			_, hit := positives[n.Key()]
			require.False(t, hit, "negative %v is a positive", n)
			for _, p := range s.Positives()[u] {
				require.False(t, n.Equal(p), "negative %v repeats a positive of user %d", n, u)
			}
		}
	}
	assert.Equal(t, report.Required, report.Generated+shortBy(report))
	assert.Equal(t, 42, int(report.Seed))
}

func shortBy(r *Report) int {
	missing := 0
	for _, s := range r.Shortfalls {
		missing += s.Required - s.Got
	}
	return missing
}

func TestSamplerRejectsAgainstWholePhase(t *testing.T) {
	// 两个用户的正样本合起来覆盖了 2×2 的全部组合：任何候选都会与某个用户的正样本碰撞。
	users := [][]core.Outfit{
		{o("a1", "b1"), o("a2", "b2")},
		{o("a1", "b2"), o("a2", "b1")},
	}
	var m metrics.Basic
	s, err := New(core.PhaseVal, users, []string{"top", "bottom"}, WithSeed(9), WithMetrics(&m))
	require.NoError(t, err)

	report, err := s.Run(context.Background(), 1, 3)
	require.NoError(t, err, "shortfall is soft")

	assert.Zero(t, report.Generated)
	assert.Len(t, report.Shortfalls, 2)
	assert.True(t, core.IsInsufficientNegatives(report.Err()))
	assert.Equal(t, int64(4), m.ShortfallSum.Load())

	rows, err := s.Negative()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSamplerTinyCardinality(t *testing.T) {
	// 每个类目只有两个物品、一个用户两条正样本、ratio=1：候选池可能耗尽。
	users := [][]core.Outfit{{o("a1", "b1", "s1"), o("a2", "b2", "s2")}}
	for seed := uint64(1); seed <= 50; seed++ {
		s, err := New(core.PhaseTest, users, core.Categories(), WithSeed(seed))
		require.NoError(t, err)
		report, err := s.Run(context.Background(), 1, 1)
		require.NoError(t, err)

		neg := s.Negatives()[0]
		require.LessOrEqual(t, len(neg), 2)
		for _, n := range neg {
			require.False(t, s.IsPositive(n))
		}
		if len(neg) < 2 {
			require.Len(t, report.Shortfalls, 1)
			require.Error(t, report.Err())
		} else {
			require.NoError(t, report.Err())
		}
	}
}

func TestSamplerDeterministicAcrossWorkers(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	users := phaseUsers(rng, 20, 15, 12)

	run := func(workers int) [][]core.IDTuple {
		s, err := New(core.PhaseTrain, users, core.Categories(), WithSeed(77), WithWorkers(workers))
		require.NoError(t, err)
		_, err = s.Run(context.Background(), 3, 2)
		require.NoError(t, err)
		return s.Negatives()
	}
	sequential := run(1)
	parallel := run(8)
	if diff := cmp.Diff(sequential, parallel); diff != "" {
		t.Fatalf("negatives differ between worker counts (-seq +par):\n%s", diff)
	}
}

func TestSamplerRows(t *testing.T) {
	users := [][]core.Outfit{
		{o("a1", "b1", "s1"), o("a2", "b2", "s2")},
		{o("a3", "b3", "s3")},
	}
	s, err := New(core.PhaseTrain, users, core.Categories(), WithSeed(1))
	require.NoError(t, err)

	rows, err := s.Positive()
	require.NoError(t, err)
	want := []core.Row{
		{User: 0, Items: []string{"a1", "b1", "s1"}},
		{User: 0, Items: []string{"a2", "b2", "s2"}},
		{User: 1, Items: []string{"a3", "b3", "s3"}},
	}
	assert.Equal(t, want, rows)

	neg, err := s.Negative()
	require.NoError(t, err)
	assert.Empty(t, neg, "no negatives before Run")

	_, err = s.Run(context.Background(), 2, 4)
	require.NoError(t, err)
	neg, err = s.Negative()
	require.NoError(t, err)
	for _, r := range neg {
		assert.Contains(t, []string{"a1", "a2", "a3"}, r.Items[0])
		assert.Contains(t, []int{0, 1}, r.User)
	}
}

func TestSamplerRunValidation(t *testing.T) {
	s, err := New(core.PhaseTrain, [][]core.Outfit{{o("a", "b", "c")}}, core.Categories())
	require.NoError(t, err)
	assert.NotZero(t, s.Seed())

	_, err = s.Run(context.Background(), 0, 2)
	assert.True(t, core.IsInvalidConfiguration(err))
	_, err = s.Run(context.Background(), 5, 0)
	assert.True(t, core.IsInvalidConfiguration(err))
	assert.Nil(t, s.Report())
}

func TestSamplerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := New(core.PhaseTrain, [][]core.Outfit{{o("a", "b", "c")}}, core.Categories(), WithSeed(1))
	require.NoError(t, err)
	_, err = s.Run(ctx, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSamplerRejectsWrongArity(t *testing.T) {
	_, err := New(core.PhaseTrain, [][]core.Outfit{{o("a", "b")}}, core.Categories())
	assert.True(t, core.IsInvalidInput(err))
}
