// Package blobarchive stores compaction segments as JSON objects in a
// blob.Store (filesystem, S3 or memory).
package blobarchive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"argjournal/internal/blob"
	"argjournal/pkg/domain"
)

var _ domain.ArchiveStore = (*Store)(nil)

const contentType = "application/json"

// Store maps each segment to the object at domain.SegmentKey.
type Store struct {
	blobs blob.Store
}

// New wraps a blob store.
func New(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

// Blobs exposes the underlying blob store.
func (s *Store) Blobs() blob.Store { return s.blobs }

// SaveSegment writes seg once; the blob store's create-only Put enforces uniqueness.
func (s *Store) SaveSegment(ctx context.Context, seg domain.Segment) error {
	payload, err := json.Marshal(seg)
	if err != nil {
		return fmt.Errorf("encode segment: %w", err)
	}
	key := domain.SegmentKey(seg.RunID, seg.Sequence)
	_, err = s.blobs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"run-id":     seg.RunID,
			"generation": fmt.Sprintf("%d", seg.Generation),
		},
	})
	if errors.Is(err, blob.ErrExists) {
		return fmt.Errorf("%w: %s/%d", domain.ErrSegmentExists, seg.RunID, seg.Sequence)
	}
	if err != nil {
		return fmt.Errorf("put segment %s: %w", key, err)
	}
	return nil
}

// LoadSegment fetches and decodes one segment.
func (s *Store) LoadSegment(ctx context.Context, runID string, seq int64) (domain.Segment, error) {
	return s.load(ctx, domain.SegmentKey(runID, seq))
}

// ListSegments decodes every object under the run prefix. Keys are zero
// padded so lexical order is sequence order.
func (s *Store) ListSegments(ctx context.Context, runID string) ([]domain.SegmentInfo, error) {
	prefix := strings.TrimSuffix(domain.SegmentKey(runID, 0), "00000000.json")
	infos, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list segments %s: %w", runID, err)
	}
	out := make([]domain.SegmentInfo, 0, len(infos))
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, ".json") {
			continue
		}
		seg, err := s.load(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, seg.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// Close is a no-op; blob stores hold no closable handles.
func (s *Store) Close() error { return nil }

func (s *Store) load(ctx context.Context, key string) (domain.Segment, error) {
	_, rc, err := s.blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return domain.Segment{}, fmt.Errorf("%w: %s", domain.ErrSegmentNotFound, key)
	}
	if err != nil {
		return domain.Segment{}, fmt.Errorf("get segment %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	var seg domain.Segment
	if err := json.NewDecoder(rc).Decode(&seg); err != nil {
		return domain.Segment{}, fmt.Errorf("decode segment %s: %w", key, err)
	}
	return seg, nil
}
