package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argjournal/pkg/domain"
)

func mustJournal(t *testing.T, n int, opts ...Option) *Journal {
	t.Helper()
	j, err := NewJournal(n, opts...)
	require.NoError(t, err)
	return j
}

// fillGeneration allocates n offspring, each inheriting the whole genome
// from the first copy of parent position i.
func fillGeneration(j *Journal, n int) {
	for i := 0; i < n; i++ {
		a, b := j.AllocateOffspringPair()
		p1, p2 := j.ResolveParentPair(uint32(i), false)
		j.StageEdges([]domain.Interval{{Left: 0, Right: 1}}, p1, a)
		j.StageEdges([]domain.Interval{{Left: 0, Right: 1}}, p2, b)
	}
	j.CommitGeneration()
}

func TestNewJournal_Founders(t *testing.T) {
	j := mustJournal(t, 3)
	require.Len(t, j.Nodes(), 6)
	for i, n := range j.Nodes() {
		assert.Equal(t, domain.NewNode(domain.NodeID(i), 0, 0), n)
	}
	assert.Empty(t, j.Edges())
	assert.Equal(t, domain.NodeID(6), j.NextID())
	start, size := j.ParentWindow()
	assert.Equal(t, domain.NodeID(0), start)
	assert.Equal(t, int64(3), size)
	assert.Equal(t, int64(3), j.ParentCount())
	assert.Equal(t, int64(1), j.Generation())
	assert.Equal(t, 0.0, j.LastCompactionGeneration())
	assert.True(t, j.Strict())
	assert.Equal(t, []domain.NodeID{0, 1, 2, 3, 4, 5}, j.Samples())
}

func TestNewJournal_RejectsNonPositive(t *testing.T) {
	for _, n := range []int{0, -4} {
		_, err := NewJournal(n)
		require.ErrorIs(t, err, ErrInvalidPopulation)
	}
}

func TestJournal_ExampleScenario(t *testing.T) {
	j := mustJournal(t, 2)
	require.Equal(t, domain.NodeID(4), j.NextID())

	a, b := j.AllocateOffspringPair()
	assert.Equal(t, domain.NodeID(4), a)
	assert.Equal(t, domain.NodeID(5), b)
	assert.Equal(t, []domain.NodeID{4, 5}, j.OffspringIDs())

	j.StageEdges([]domain.Interval{{Left: 0, Right: 1}}, 0, 4)
	require.Len(t, j.StagedEdges(), 1)
	j.CommitGeneration()

	require.Len(t, j.Nodes(), 6)
	assert.Equal(t, domain.NewNode(4, 1, 0), j.Nodes()[4])
	assert.Equal(t, domain.NewNode(5, 1, 0), j.Nodes()[5])
	assert.Equal(t, []domain.Edge{domain.NewEdge(0, 1, 0, 4)}, j.Edges())
	// The recorded size is next_id minus the window start before it moved.
	start, size := j.ParentWindow()
	assert.Equal(t, domain.NodeID(4), start)
	assert.Equal(t, int64(6), size)
	assert.Equal(t, int64(1), j.ParentCount())
	assert.Equal(t, []domain.NodeID{4, 5}, j.Samples())
	assert.Equal(t, domain.NodeID(6), j.NextID())
	assert.Equal(t, int64(2), j.Generation())
	assert.Empty(t, j.StagedEdges())
	assert.Empty(t, j.OffspringIDs())
}

func TestAllocator_IdentifiersStrictlyIncrease(t *testing.T) {
	j := mustJournal(t, 4)
	last := domain.NodeID(-1)
	seen := make(map[domain.NodeID]bool)
	for g := 0; g < 5; g++ {
		for i := 0; i < 4; i++ {
			a, b := j.AllocateOffspringPair()
			for _, id := range []domain.NodeID{a, b} {
				assert.Greater(t, id, last)
				assert.False(t, seen[id])
				seen[id] = true
				last = id
			}
		}
		j.CommitGeneration()
	}
	assert.Len(t, seen, 40)
}

func TestParentWindow_ResolvesInsideWindow(t *testing.T) {
	const n = 5
	j := mustJournal(t, n)
	fillGeneration(j, n)
	fillGeneration(j, n)
	start, size := j.ParentWindow()
	require.Equal(t, int64(4*n), size)
	require.Equal(t, int64(n), j.ParentCount())
	for p := uint32(0); p < n; p++ {
		a, b := j.ResolveParentPair(p, false)
		sa, sb := j.ResolveParentPair(p, true)
		assert.Equal(t, start+2*domain.NodeID(p), a)
		assert.Equal(t, a+1, b)
		assert.Equal(t, b, sa)
		assert.Equal(t, a, sb)
		assert.GreaterOrEqual(t, a, start)
		assert.Less(t, b, start+domain.NodeID(2*n))
	}
}

func TestParentWindow_SizeTakenBeforeStartMoves(t *testing.T) {
	j := mustJournal(t, 2)
	fillGeneration(j, 2)
	start, size := j.ParentWindow()
	assert.Equal(t, domain.NodeID(4), start)
	assert.Equal(t, int64(8), size)

	// A smaller offspring generation: the resolve bound follows it, the
	// recorded size keeps the historical formula.
	fillGeneration(j, 1)
	start, size = j.ParentWindow()
	assert.Equal(t, domain.NodeID(8), start)
	assert.Equal(t, int64(6), size)
	assert.Equal(t, int64(1), j.ParentCount())
	assert.Equal(t, []domain.NodeID{8, 9}, j.Samples())
	assert.Panics(t, func() { j.ResolveParentPair(1, false) })
}

func TestCommit_Completeness(t *testing.T) {
	j := mustJournal(t, 3)
	before := len(j.Nodes())
	fillGeneration(j, 3)
	assert.Len(t, j.Nodes(), before+6)
	assert.Len(t, j.Edges(), 6)
	assert.Empty(t, j.StagedEdges())
	for _, n := range j.Nodes()[before:] {
		assert.Equal(t, 1.0, n.Time)
		assert.Equal(t, int32(0), n.Population)
	}
	assert.Equal(t, int64(1), j.CommitsSinceCompaction())
}

func TestStageEdges_PreservesOrderWithoutValidation(t *testing.T) {
	j := mustJournal(t, 1)
	a, _ := j.AllocateOffspringPair()
	j.StageEdges([]domain.Interval{{Left: 0.7, Right: 0.2}, {Left: 0, Right: 0.1}}, 1, a)
	j.CommitGeneration()
	assert.Equal(t, []domain.Edge{domain.NewEdge(0.7, 0.2, 1, a), domain.NewEdge(0, 0.1, 1, a)}, j.Edges())
}
