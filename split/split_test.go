package split

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/outfitkit/core"
	"github.com/rushteam/outfitkit/metrics"
	"github.com/rushteam/outfitkit/partition"
)

func o(items ...string) core.Outfit { return core.NewOutfit(items...) }

func disjointUser(name string, n int) core.UserOutfits {
	outfits := make([]core.Outfit, n)
	for i := range outfits {
		outfits[i] = o(fmt.Sprintf("%s-t%d", name, i), fmt.Sprintf("%s-b%d", name, i), fmt.Sprintf("%s-s%d", name, i))
	}
	return core.NewUserOutfits(name, outfits)
}

// randomUser 生成 n 条随机搭配，每个类目的物品空间为 items，空间越小分量越大。
func randomUser(rng *rand.Rand, name string, n, items int) core.UserOutfits {
	outfits := make([]core.Outfit, n)
	for i := range outfits {
		outfits[i] = o(
			fmt.Sprintf("t%d", rng.IntN(items)),
			fmt.Sprintf("b%d", rng.IntN(items)),
			fmt.Sprintf("s%d", rng.IntN(items)),
		)
	}
	return core.NewUserOutfits(name, outfits)
}

func TestSplitFourDisjointTuples(t *testing.T) {
	s := New(WithMinSizes(2, 1, 1), WithMargin(0))

	res, err := s.Split(context.Background(), []core.UserOutfits{disjointUser("u", 4)})
	require.NoError(t, err)

	require.Equal(t, []string{"u"}, res.Users)
	assert.Len(t, res.Phase(core.PhaseTrain)[0], 2)
	assert.Len(t, res.Phase(core.PhaseTest)[0], 1)
	assert.Len(t, res.Phase(core.PhaseVal)[0], 1)
	assert.Empty(t, res.Dropped)

	// train 取前两个分量，test 取剩余中的第一个，其余为 val。
	u := disjointUser("u", 4).Outfits
	assert.Equal(t, u[:2], res.Phase(core.PhaseTrain)[0])
	assert.Equal(t, u[2:3], res.Phase(core.PhaseTest)[0])
	assert.Equal(t, u[3:], res.Phase(core.PhaseVal)[0])
}

func TestSplitDropsSmallUser(t *testing.T) {
	s := New()
	res, err := s.Split(context.Background(), []core.UserOutfits{disjointUser("tiny", 1)})
	require.NoError(t, err)

	assert.Zero(t, res.NumUsers())
	for _, p := range core.Phases {
		assert.Empty(t, res.Phase(p))
	}
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, Dropped{User: "tiny", Phase: core.PhaseTrain, Size: 1, Required: 250}, res.Dropped[0])
}

func TestSplitOnceStopsWhenExhausted(t *testing.T) {
	s := New()
	part, rest, err := s.SplitOnce(context.Background(), [][]core.Outfit{disjointUser("u", 3).Outfits}, 250)
	require.NoError(t, err)
	assert.Len(t, part[0], 3)
	assert.Empty(t, rest[0])
}

func TestSplitOnceNeverBreaksComponent(t *testing.T) {
	// 一个大小为 3 的分量 + 一个大小为 1 的分量；min=2 时必须整块拿走大分量。
	outfits := []core.Outfit{
		o("a1", "b1", "s1"),
		o("a2", "b1", "s2"),
		o("a3", "b3", "s2"),
		o("a9", "b9", "s9"),
	}
	s := New()
	part, rest, err := s.SplitOnce(context.Background(), [][]core.Outfit{outfits}, 2)
	require.NoError(t, err)
	assert.Len(t, part[0], 3)
	assert.Equal(t, []core.Outfit{o("a9", "b9", "s9")}, rest[0])
}

func TestSplitCoverageAndBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	users := make([]core.UserOutfits, 0, 30)
	for i := 0; i < 30; i++ {
		n := 20 + rng.IntN(60)
		users = append(users, randomUser(rng, fmt.Sprintf("user%02d", i), n, n*(2+rng.IntN(6))))
	}
	mins := [core.NumPhases]int{10, 3, 3}
	const margin = 4

	// 不截断时验证覆盖性。
	uncapped := New(WithMinSizes(mins[0], mins[1], mins[2]), WithMargin(1<<20))
	full, err := uncapped.Split(context.Background(), users)
	require.NoError(t, err)
	require.NotZero(t, full.NumUsers(), "fixture should keep some users")

	byName := make(map[string]core.UserOutfits, len(users))
	for _, u := range users {
		byName[u.User] = u
	}
	for u, name := range full.Users {
		seen := make(map[string]int)
		for _, p := range core.Phases {
			for _, x := range full.Phase(p)[u] {
				seen[x.Key()]++
			}
		}
		orig := byName[name].Outfits
		require.Len(t, seen, len(orig), "user %s lost or gained tuples", name)
		for _, x := range orig {
			require.Equal(t, 1, seen[x.Key()], "user %s tuple %v", name, x)
		}
	}

	capped := New(WithMinSizes(mins[0], mins[1], mins[2]), WithMargin(margin))
	res, err := capped.Split(context.Background(), users)
	require.NoError(t, err)
	assert.Equal(t, full.Users, res.Users)
	assert.Equal(t, len(users), res.NumUsers()+len(res.Dropped))

	for u := range res.Users {
		for _, p := range core.Phases {
			n := len(res.Phase(p)[u])
			assert.GreaterOrEqual(t, n, mins[p])
			assert.LessOrEqual(t, n, mins[p]+margin)
			assert.Equal(t, len(full.Phase(p)[u]), res.Uncapped[p][u])
		}
		train, val, test := res.Phase(core.PhaseTrain)[u], res.Phase(core.PhaseVal)[u], res.Phase(core.PhaseTest)[u]
		assert.True(t, partition.Disjoint(train, val))
		assert.True(t, partition.Disjoint(train, test))
		assert.True(t, partition.Disjoint(val, test))
	}
}

func TestSplitValidate(t *testing.T) {
	tests := []struct {
		name string
		s    *Splitter
	}{
		{"zero train", New(WithMinSizes(0, 1, 1))},
		{"negative val", New(WithMinSizes(1, -1, 1))},
		{"negative margin", New(WithMargin(-1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.s.Split(context.Background(), []core.UserOutfits{disjointUser("u", 4)})
			assert.True(t, core.IsInvalidConfiguration(err))
		})
	}
}

func TestSplitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Split(ctx, []core.UserOutfits{disjointUser("u", 4)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitReportsProgressAndMetrics(t *testing.T) {
	var calls int
	var m metrics.Basic
	s := New(
		WithMinSizes(2, 1, 1),
		WithMargin(0),
		WithMetrics(&m),
		WithProgress(func(stage string, done, total int) { calls++ }),
	)
	_, err := s.Split(context.Background(), []core.UserOutfits{disjointUser("a", 4), disjointUser("b", 1)})
	require.NoError(t, err)

	assert.Equal(t, 4, calls, "two SplitOnce passes over two users")
	assert.Equal(t, int64(1), m.UsersKept.Load())
	assert.Equal(t, int64(1), m.UsersDropped.Load())
	assert.Equal(t, int64(4), m.Components.Load())
}

func TestHoldOut(t *testing.T) {
	users := []core.UserOutfits{disjointUser("a", 4), disjointUser("b", 4), disjointUser("c", 4), disjointUser("d", 4)}
	res, err := New(WithMinSizes(2, 1, 1), WithMargin(0)).Split(context.Background(), users)
	require.NoError(t, err)

	left, kept := res.HoldOut(1, rand.New(rand.NewPCG(3, 4)))
	assert.Equal(t, 1, left.NumUsers())
	assert.Equal(t, 3, kept.NumUsers())
	assert.ElementsMatch(t, res.Users, append(append([]string(nil), left.Users...), kept.Users...))
	for _, part := range []*Result{left, kept} {
		for _, p := range core.Phases {
			assert.Len(t, part.Phase(p), part.NumUsers())
		}
	}

	all, none := res.HoldOut(10, rand.New(rand.NewPCG(3, 4)))
	assert.Equal(t, res.Users, all.Users)
	assert.Zero(t, none.NumUsers())
}
