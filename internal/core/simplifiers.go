package core

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"argjournal/pkg/domain"
)

// DecliningSimplifier never compacts.
type DecliningSimplifier struct{}

// Simplify implements domain.Simplifier.
func (DecliningSimplifier) Simplify(context.Context, domain.Batch) (domain.CompactionResult, error) {
	return domain.CompactionResult{}, nil
}

// FixedSimplifier always compacts and resumes allocation at NextID.
type FixedSimplifier struct {
	NextID domain.NodeID
}

// Simplify implements domain.Simplifier.
func (f FixedSimplifier) Simplify(context.Context, domain.Batch) (domain.CompactionResult, error) {
	return domain.CompactionResult{Simplified: true, NextID: f.NextID}, nil
}

// TruncatingSimplifier keeps only the sample generation, renumbered to
// 0..len(samples)-1, and discards the rest of the history. It does no
// genealogical reduction; pair it with ArchivingSimplifier to keep the
// discarded segments.
type TruncatingSimplifier struct{}

// Simplify implements domain.Simplifier.
func (TruncatingSimplifier) Simplify(_ context.Context, batch domain.Batch) (domain.CompactionResult, error) {
	if len(batch.Samples) == 0 {
		return domain.CompactionResult{}, nil
	}
	return domain.CompactionResult{Simplified: true, NextID: domain.NodeID(len(batch.Samples))}, nil
}

// ArchivingSimplifier delegates to Next and stores every handoff, together
// with the verdict, as a numbered segment of RunID.
type ArchivingSimplifier struct {
	store domain.ArchiveStore
	next  domain.Simplifier
	runID string
	seq   int64
	now   func() time.Time
}

// NewArchivingSimplifier wraps next. An empty runID gets a random one.
func NewArchivingSimplifier(store domain.ArchiveStore, next domain.Simplifier, runID string) *ArchivingSimplifier {
	if runID == "" {
		runID = uuid.NewString()
	}
	if next == nil {
		next = DecliningSimplifier{}
	}
	return &ArchivingSimplifier{store: store, next: next, runID: runID, now: time.Now}
}

// RunID returns the run identifier segments are filed under.
func (a *ArchivingSimplifier) RunID() string { return a.runID }

// Segments returns the number of segments written so far.
func (a *ArchivingSimplifier) Segments() int64 { return a.seq }

// Simplify implements domain.Simplifier.
func (a *ArchivingSimplifier) Simplify(ctx context.Context, batch domain.Batch) (domain.CompactionResult, error) {
	res, err := a.next.Simplify(ctx, batch)
	if err != nil {
		return domain.CompactionResult{}, err
	}
	seg := domain.Segment{
		RunID:      a.runID,
		Sequence:   a.seq,
		Generation: batch.Generation,
		Nodes:      slices.Clone(batch.Nodes),
		Edges:      slices.Clone(batch.Edges),
		Samples:    slices.Clone(batch.Samples),
		Result:     res,
		CreatedAt:  a.now().UTC(),
	}
	if err := a.store.SaveSegment(ctx, seg); err != nil {
		return domain.CompactionResult{}, fmt.Errorf("archive segment %s/%d: %w", a.runID, a.seq, err)
	}
	a.seq++
	return res, nil
}
