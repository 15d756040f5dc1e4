package core

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argjournal/pkg/domain"
)

func requireContractPanic(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic for %s", op)
		cerr, ok := r.(*ContractError)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, op, cerr.Op)
		assert.Contains(t, cerr.Error(), "contract violation")
	}()
	fn()
}

func TestStrict_ViolationsPanic(t *testing.T) {
	j := mustJournal(t, 2)
	requireContractPanic(t, opResolveParentPair, func() { j.ResolveParentPair(2, false) })
	requireContractPanic(t, opCommitGeneration, j.CommitGeneration)

	j.PrepareForCompaction()
	requireContractPanic(t, opPrepareCompaction, j.PrepareForCompaction)
}

func TestLax_ViolationsAreLoggedNoops(t *testing.T) {
	var buf bytes.Buffer
	rec := &recordingMetrics{}
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	j := mustJournal(t, 2, WithStrict(false), WithLogger(logger), WithMetrics(rec))

	a, b := j.ResolveParentPair(7, true)
	assert.Equal(t, domain.NodeID(15), a)
	assert.Equal(t, domain.NodeID(14), b)

	gen, next := j.Generation(), j.NextID()
	j.CommitGeneration()
	assert.Equal(t, gen, j.Generation())
	assert.Equal(t, next, j.NextID())
	assert.Len(t, j.Nodes(), 4)

	j.PrepareForCompaction()
	flipped := append([]domain.Node(nil), j.Nodes()...)
	j.PrepareForCompaction()
	assert.Equal(t, flipped, j.Nodes())

	assert.Equal(t, []string{opResolveParentPair, opCommitGeneration, opPrepareCompaction}, rec.violations)
	assert.Contains(t, buf.String(), "journal contract violation ignored")
	assert.Contains(t, buf.String(), "op=commit_generation")
}

func TestPrepare_AllowedAgainAfterCommit(t *testing.T) {
	j := mustJournal(t, 1)
	j.PrepareForCompaction()
	fillGeneration(j, 1)
	assert.NotPanics(t, j.PrepareForCompaction)
}
