package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"argjournal/pkg/domain"
)

var tracer = otel.Tracer("argjournal/internal/core")

// ErrInvalidResumeID is returned by Compact when a simplifier resumes
// allocation inside the renumbered sample range.
var ErrInvalidResumeID = errors.New("journal: resume identifier overlaps samples")

// PrepareForCompaction converts node times from forward generation counts to
// time before the most recent node: t' = tmax - t. It is a no-op on an empty
// journal. Calling it twice without an intervening commit is a contract
// violation.
func (j *Journal) PrepareForCompaction() {
	if len(j.nodes) == 0 {
		return
	}
	if j.prepared {
		j.violate(opPrepareCompaction, "history already in backward time")
		return
	}
	// Nodes are appended in non-decreasing time order.
	maxTime := j.nodes[len(j.nodes)-1].Time
	for i := range j.nodes {
		j.nodes[i].Time = maxTime - j.nodes[i].Time
	}
	j.flipMax = maxTime
	j.prepared = true
}

// ApplyCompactionResult reintegrates a simplifier verdict. A declined
// compaction leaves the journal untouched. Otherwise the history is dropped,
// the allocator resumes at nextID and the parental window restarts at zero.
// Staged edges and offspring ids are not touched.
func (j *Journal) ApplyCompactionResult(simplified bool, nextID domain.NodeID) {
	if !simplified {
		return
	}
	j.lastCompaction = float64(j.generation)
	j.nextID = nextID
	j.windowStart = 0
	// Fresh buffers: the handed-over slices now belong to the simplifier.
	j.nodes = make([]domain.Node, 0, cap(j.nodes))
	j.edges = make([]domain.Edge, 0, cap(j.edges))
	j.prepared = false
	j.flipMax = 0
	j.sinceCompaction = 0
	j.metrics.JournalSize(0, 0)
}

// Batch returns the handoff view of the current history.
func (j *Journal) Batch() domain.Batch {
	return domain.Batch{
		Generation: j.generation,
		Nodes:      j.nodes,
		Edges:      j.edges,
		Samples:    j.Samples(),
	}
}

// Compact runs the full handshake with s: prepare, hand over, apply. An empty
// journal is not handed over. On a simplifier error the journal stays
// prepared and the error is returned.
func (j *Journal) Compact(ctx context.Context, s domain.Simplifier) (domain.CompactionResult, error) {
	ctx, span := tracer.Start(ctx, "journal.compact", trace.WithAttributes(
		attribute.Int64("generation", j.generation),
		attribute.Int("nodes", len(j.nodes)),
		attribute.Int("edges", len(j.edges)),
	))
	defer span.End()

	if len(j.nodes) == 0 {
		span.SetAttributes(attribute.String("outcome", OutcomeEmpty))
		return domain.CompactionResult{}, nil
	}
	if !j.prepared {
		j.PrepareForCompaction()
	}

	batch := j.Batch()
	nodes, edges := len(batch.Nodes), len(batch.Edges)
	started := time.Now()
	res, err := s.Simplify(ctx, batch)
	elapsed := time.Since(started)
	if err != nil {
		j.metrics.CompactionObserved(OutcomeFailed, nodes, edges, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.CompactionResult{}, fmt.Errorf("simplify generation %d: %w", j.generation, err)
	}
	if res.Simplified && res.NextID < j.generationSize {
		err := fmt.Errorf("%w: next id %d, %d samples", ErrInvalidResumeID, res.NextID, j.generationSize)
		j.metrics.CompactionObserved(OutcomeFailed, nodes, edges, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.CompactionResult{}, err
	}

	j.ApplyCompactionResult(res.Simplified, res.NextID)
	outcome := OutcomeDeclined
	if res.Simplified {
		outcome = OutcomeSimplified
	}
	j.metrics.CompactionObserved(outcome, nodes, edges, elapsed)
	span.SetAttributes(attribute.String("outcome", outcome))
	j.logger.Debug("compaction handoff",
		slog.String("outcome", outcome),
		slog.Int64("generation", j.generation),
		slog.Int("nodes", nodes),
		slog.Int("edges", edges),
		slog.Int64("next_id", j.nextID),
		slog.Duration("elapsed", elapsed),
	)
	return res, nil
}

// MaybeCompact compacts when policy asks for it. The boolean reports whether
// a handoff took place.
func (j *Journal) MaybeCompact(ctx context.Context, policy CompactionPolicy, s domain.Simplifier) (domain.CompactionResult, bool, error) {
	if policy == nil || !policy.ShouldCompact(j) {
		return domain.CompactionResult{}, false, nil
	}
	res, err := j.Compact(ctx, s)
	return res, true, err
}
