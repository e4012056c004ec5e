package registry

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/outfitkit/core"
)

func sampleSets() [][]core.Outfit {
	return [][]core.Outfit{
		{core.NewOutfit("t2", "b1", "s1"), core.NewOutfit("t1", "b1", "s2")},
		{core.NewOutfit("t3", "b2", "s1")},
	}
}

func TestBuild(t *testing.T) {
	reg, err := Build(core.Categories(), sampleSets())
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2, 2}, reg.Sizes())
	assert.Equal(t, []string{"t1", "t2", "t3"}, reg.Items(0))
	assert.Equal(t, 3, reg.NumCategories())

	id, err := reg.ID(1, "b2")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)
}

func TestBuildAcrossPhases(t *testing.T) {
	train := sampleSets()
	val := [][]core.Outfit{{core.NewOutfit("t9", "b9", "s9")}, {}}
	reg, err := Build(core.Categories(), train, val)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 3}, reg.Sizes())
}

func TestRoundTrip(t *testing.T) {
	sets := sampleSets()
	reg, err := Build(core.Categories(), sets)
	require.NoError(t, err)

	for _, user := range sets {
		for _, o := range user {
			ids, err := reg.Encode(o)
			require.NoError(t, err)
			back, err := reg.Decode(ids)
			require.NoError(t, err)
			assert.True(t, o.Equal(back), "%v decoded as %v", o, back)
		}
	}
}

func TestUnknownIdentifier(t *testing.T) {
	reg, err := Build(core.Categories(), sampleSets())
	require.NoError(t, err)

	_, err = reg.Encode(core.NewOutfit("t1", "missing", "s1"))
	assert.True(t, core.IsUnknownIdentifier(err))

	_, err = reg.Decode(core.IDTuple{0, 0, 7})
	assert.True(t, core.IsUnknownIdentifier(err))

	_, err = reg.Encode(core.NewOutfit("t1", "b1"))
	assert.True(t, core.IsInvalidInput(err))
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, err := Build([]string{"top"}, nil)
	assert.True(t, core.IsInvalidConfiguration(err))

	_, err = Build(core.Categories(), [][]core.Outfit{{core.NewOutfit("a", "b")}})
	assert.True(t, core.IsInvalidInput(err))
}

func TestBuildRejectsUnlistableIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		o    core.Outfit
	}{
		{"empty", core.NewOutfit("", "b", "s")},
		{"newline", core.NewOutfit("t", "b\nx", "s")},
		{"trailing cr", core.NewOutfit("t", "b", "s\r")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(core.Categories(), [][]core.Outfit{{tt.o}})
			assert.True(t, core.IsInvalidInput(err))
		})
	}
}

func TestFromListsRejectsEmptyEntry(t *testing.T) {
	_, err := FromLists([]string{"top", "bottom"}, [][]string{{"a", "", "c"}, {"b"}})
	assert.True(t, core.IsInvalidInput(err))
}

func TestListRoundTrip(t *testing.T) {
	reg, err := Build(core.Categories(), sampleSets())
	require.NoError(t, err)

	lists := make([][]string, reg.NumCategories())
	for n := 0; n < reg.NumCategories(); n++ {
		var buf bytes.Buffer
		require.NoError(t, reg.WriteList(&buf, n))
		lists[n], err = ReadList(&buf)
		require.NoError(t, err)
	}

	restored, err := FromLists(reg.Categories(), lists)
	require.NoError(t, err)
	for _, user := range sampleSets() {
		for _, o := range user {
			a, err := reg.Encode(o)
			require.NoError(t, err)
			b, err := restored.Encode(o)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		}
	}
}

func TestReadListTrimsCRLF(t *testing.T) {
	list, err := ReadList(bytes.NewBufferString("a.jpg\r\nb.jpg\r\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, list)
}

func TestFromListsRejectsDuplicates(t *testing.T) {
	_, err := FromLists([]string{"top", "bottom"}, [][]string{{"a", "a"}, {"b"}})
	assert.True(t, core.IsInvalidInput(err))

	_, err = FromLists([]string{"top", "bottom"}, [][]string{{"a"}})
	assert.True(t, core.IsInvalidInput(err))
}
