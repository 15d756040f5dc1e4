// Package memory provides an in-memory ArchiveStore used for tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"argjournal/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the archive interface.
var _ domain.ArchiveStore = (*Store)(nil)

// Store keeps segments in process memory. Segments are cloned on the way in
// and out so callers can reuse their buffers.
type Store struct {
	mu   sync.RWMutex
	runs map[string]map[int64]domain.Segment
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{runs: make(map[string]map[int64]domain.Segment)}
}

// SaveSegment stores seg, rejecting duplicates.
func (s *Store) SaveSegment(_ context.Context, seg domain.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[seg.RunID]
	if !ok {
		run = make(map[int64]domain.Segment)
		s.runs[seg.RunID] = run
	}
	if _, exists := run[seg.Sequence]; exists {
		return fmt.Errorf("%w: %s/%d", domain.ErrSegmentExists, seg.RunID, seg.Sequence)
	}
	run[seg.Sequence] = cloneSegment(seg)
	return nil
}

// LoadSegment returns a copy of the stored segment.
func (s *Store) LoadSegment(_ context.Context, runID string, seq int64) (domain.Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seg, ok := s.runs[runID][seq]
	if !ok {
		return domain.Segment{}, fmt.Errorf("%w: %s/%d", domain.ErrSegmentNotFound, runID, seq)
	}
	return cloneSegment(seg), nil
}

// ListSegments returns summaries ordered by sequence.
func (s *Store) ListSegments(_ context.Context, runID string) ([]domain.SegmentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run := s.runs[runID]
	out := make([]domain.SegmentInfo, 0, len(run))
	for _, seg := range run {
		out = append(out, seg.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// Runs returns the run ids with at least one segment, sorted.
func (s *Store) Runs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.runs))
	for id := range s.runs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneSegment(seg domain.Segment) domain.Segment {
	seg.Nodes = slices.Clone(seg.Nodes)
	seg.Edges = slices.Clone(seg.Edges)
	seg.Samples = slices.Clone(seg.Samples)
	return seg
}
