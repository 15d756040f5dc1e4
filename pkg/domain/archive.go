package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Segment is one archived compaction handoff: the history accumulated between
// two compactions together with the simplifier's verdict.
type Segment struct {
	RunID      string           `json:"run_id"`
	Sequence   int64            `json:"sequence"`
	Generation int64            `json:"generation"`
	Nodes      []Node           `json:"nodes"`
	Edges      []Edge           `json:"edges"`
	Samples    []NodeID         `json:"samples"`
	Result     CompactionResult `json:"result"`
	CreatedAt  time.Time        `json:"created_at"`
}

// SegmentInfo summarises a Segment without its tables.
type SegmentInfo struct {
	RunID      string    `json:"run_id"`
	Sequence   int64     `json:"sequence"`
	Generation int64     `json:"generation"`
	NodeCount  int       `json:"node_count"`
	EdgeCount  int       `json:"edge_count"`
	Simplified bool      `json:"simplified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Info returns the summary of the segment.
func (s Segment) Info() SegmentInfo {
	return SegmentInfo{
		RunID:      s.RunID,
		Sequence:   s.Sequence,
		Generation: s.Generation,
		NodeCount:  len(s.Nodes),
		EdgeCount:  len(s.Edges),
		Simplified: s.Result.Simplified,
		CreatedAt:  s.CreatedAt,
	}
}

// ArchiveStore persists compaction segments. Implementations must reject a
// duplicate (RunID, Sequence) pair.
type ArchiveStore interface {
	SaveSegment(ctx context.Context, seg Segment) error
	LoadSegment(ctx context.Context, runID string, seq int64) (Segment, error)
	ListSegments(ctx context.Context, runID string) ([]SegmentInfo, error)
	Close() error
}

// ErrSegmentNotFound is returned by LoadSegment when no segment matches.
var ErrSegmentNotFound = errors.New("segment not found")

// ErrSegmentExists is returned by SaveSegment for a duplicate key.
var ErrSegmentExists = errors.New("segment already exists")

// SegmentKey formats the canonical key for a segment.
func SegmentKey(runID string, seq int64) string {
	return fmt.Sprintf("segments/%s/%08d.json", runID, seq)
}
