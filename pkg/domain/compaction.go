package domain

import "context"

// Batch is the history handed to a Simplifier at a compaction boundary.
// Node times are already flipped to time-before-present.
type Batch struct {
	Generation int64    `json:"generation"`
	Nodes      []Node   `json:"nodes"`
	Edges      []Edge   `json:"edges"`
	Samples    []NodeID `json:"samples"`
}

// CompactionResult is returned by a Simplifier. NextID is only meaningful when
// Simplified is true and holds the first unused identifier of the compacted graph.
type CompactionResult struct {
	Simplified bool   `json:"simplified"`
	NextID     NodeID `json:"next_id"`
}

// Simplifier is the external graph-compaction capability. Implementations are
// called once per handoff and must not call back into the journal.
type Simplifier interface {
	Simplify(ctx context.Context, batch Batch) (CompactionResult, error)
}

// SimplifierFunc adapts a function to the Simplifier interface.
type SimplifierFunc func(ctx context.Context, batch Batch) (CompactionResult, error)

// Simplify implements Simplifier.
func (f SimplifierFunc) Simplify(ctx context.Context, batch Batch) (CompactionResult, error) {
	return f(ctx, batch)
}
