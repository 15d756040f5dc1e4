package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argjournal/pkg/domain"
)

func TestPrepare_FlipsTimes(t *testing.T) {
	j := mustJournal(t, 2)
	fillGeneration(j, 2)
	fillGeneration(j, 2)
	fillGeneration(j, 2)
	forward := make([]float64, len(j.Nodes()))
	for i, n := range j.Nodes() {
		forward[i] = n.Time
	}

	j.PrepareForCompaction()
	require.True(t, j.Prepared())
	for i, n := range j.Nodes() {
		assert.Equal(t, 3-forward[i], n.Time)
		assert.GreaterOrEqual(t, n.Time, 0.0)
	}
	assert.Equal(t, 0.0, j.Nodes()[len(j.Nodes())-1].Time)
	assert.Equal(t, 3.0, j.Nodes()[0].Time)
}

func TestPrepare_EmptyJournalIsNoop(t *testing.T) {
	j := mustJournal(t, 1)
	j.PrepareForCompaction()
	j.ApplyCompactionResult(true, 2)
	require.Empty(t, j.Nodes())

	assert.NotPanics(t, j.PrepareForCompaction)
	assert.False(t, j.Prepared())
	res, err := j.Compact(context.Background(), mustNotSimplify(t))
	require.NoError(t, err)
	assert.Equal(t, domain.CompactionResult{}, res)
}

// mustNotSimplify fails the test if the simplifier is ever called.
func mustNotSimplify(t *testing.T) domain.Simplifier {
	return domain.SimplifierFunc(func(context.Context, domain.Batch) (domain.CompactionResult, error) {
		t.Fatalf("simplifier called for an empty journal")
		return domain.CompactionResult{}, nil
	})
}

func TestApply_Reset(t *testing.T) {
	j := mustJournal(t, 2)
	fillGeneration(j, 2)
	j.PrepareForCompaction()
	j.ApplyCompactionResult(true, 100)

	assert.Empty(t, j.Nodes())
	assert.Empty(t, j.Edges())
	start, size := j.ParentWindow()
	assert.Equal(t, domain.NodeID(0), start)
	assert.Equal(t, int64(8), size)
	assert.Equal(t, int64(2), j.ParentCount())
	assert.Equal(t, 2.0, j.LastCompactionGeneration())
	assert.False(t, j.Prepared())
	assert.Equal(t, int64(0), j.CommitsSinceCompaction())

	a, b := j.AllocateOffspringPair()
	assert.Equal(t, domain.NodeID(100), a)
	assert.Equal(t, domain.NodeID(101), b)
}

func TestApply_DeclinedIsNoop(t *testing.T) {
	j := mustJournal(t, 2)
	fillGeneration(j, 2)
	j.PrepareForCompaction()
	nodes := append([]domain.Node(nil), j.Nodes()...)
	edges := append([]domain.Edge(nil), j.Edges()...)
	next := j.NextID()
	start, width := j.ParentWindow()

	j.ApplyCompactionResult(false, 12345)

	assert.Equal(t, nodes, j.Nodes())
	assert.Equal(t, edges, j.Edges())
	assert.Equal(t, next, j.NextID())
	s2, w2 := j.ParentWindow()
	assert.Equal(t, start, s2)
	assert.Equal(t, width, w2)
	assert.True(t, j.Prepared())
}

func TestCommit_AfterDeclineRestoresForwardTime(t *testing.T) {
	j := mustJournal(t, 2)
	fillGeneration(j, 2)
	res, err := j.Compact(context.Background(), DecliningSimplifier{})
	require.NoError(t, err)
	require.False(t, res.Simplified)
	require.True(t, j.Prepared())

	fillGeneration(j, 2)
	assert.False(t, j.Prepared())
	for _, n := range j.Nodes() {
		assert.Equal(t, float64(n.ID/4), n.Time, "node %d", n.ID)
	}
	// and the next handoff flips cleanly again
	j.PrepareForCompaction()
	assert.Equal(t, 2.0, j.Nodes()[0].Time)
	assert.Equal(t, 0.0, j.Nodes()[len(j.Nodes())-1].Time)
}

func TestCompact_HandsOverBatch(t *testing.T) {
	j := mustJournal(t, 2)
	fillGeneration(j, 2)
	var got domain.Batch
	s := domain.SimplifierFunc(func(_ context.Context, b domain.Batch) (domain.CompactionResult, error) {
		got = b
		return domain.CompactionResult{Simplified: true, NextID: 4}, nil
	})
	res, err := j.Compact(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, res.Simplified)
	assert.Equal(t, int64(2), got.Generation)
	assert.Len(t, got.Nodes, 8)
	assert.Len(t, got.Edges, 4)
	assert.Equal(t, []domain.NodeID{4, 5, 6, 7}, got.Samples)
	assert.Equal(t, 0.0, got.Nodes[7].Time)
	assert.Equal(t, 1.0, got.Nodes[0].Time)
	// the handed-over slices are not reused by the journal
	fillGeneration(j, 2)
	assert.Equal(t, domain.NodeID(4), got.Nodes[4].ID)
	assert.Equal(t, 0.0, got.Nodes[4].Time)
}

func TestCompact_SimplifierErrorLeavesPrepared(t *testing.T) {
	j := mustJournal(t, 2)
	fillGeneration(j, 2)
	boom := errors.New("boom")
	_, err := j.Compact(context.Background(), domain.SimplifierFunc(func(context.Context, domain.Batch) (domain.CompactionResult, error) {
		return domain.CompactionResult{}, boom
	}))
	require.ErrorIs(t, err, boom)
	assert.True(t, j.Prepared())
	assert.Len(t, j.Nodes(), 8)

	// retrying does not flip a second time
	res, err := j.Compact(context.Background(), FixedSimplifier{NextID: 10})
	require.NoError(t, err)
	assert.True(t, res.Simplified)
	assert.Equal(t, domain.NodeID(10), j.NextID())
}

func TestCompact_RejectsResumeInsideSamples(t *testing.T) {
	j := mustJournal(t, 2)
	fillGeneration(j, 2)
	_, err := j.Compact(context.Background(), FixedSimplifier{NextID: 3})
	require.ErrorIs(t, err, ErrInvalidResumeID)
	assert.Len(t, j.Nodes(), 8)
}

type recordingMetrics struct {
	outcomes   []string
	violations []string
	commits    int
}

func (r *recordingMetrics) GenerationCommitted(int, int) { r.commits++ }
func (r *recordingMetrics) CompactionObserved(outcome string, _, _ int, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}
func (r *recordingMetrics) ContractViolated(op string) { r.violations = append(r.violations, op) }
func (r *recordingMetrics) JournalSize(int, int)       {}

func TestCompact_RecordsOutcomes(t *testing.T) {
	rec := &recordingMetrics{}
	j := mustJournal(t, 1, WithMetrics(rec))
	fillGeneration(j, 1)
	_, err := j.Compact(context.Background(), DecliningSimplifier{})
	require.NoError(t, err)
	_, err = j.Compact(context.Background(), FixedSimplifier{NextID: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{OutcomeDeclined, OutcomeSimplified}, rec.outcomes)
	assert.Equal(t, 1, rec.commits)
}
