// Package sqlite provides an ArchiveStore persisted to a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"argjournal/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.ArchiveStore = (*Store)(nil)

// Store writes each segment as one row: summary columns for listing plus the
// full segment as a JSON payload.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the archive database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "argjournal.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS segments (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		generation INTEGER NOT NULL,
		node_count INTEGER NOT NULL,
		edge_count INTEGER NOT NULL,
		simplified INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create segments table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// SaveSegment inserts seg inside a transaction, rejecting duplicates.
func (s *Store) SaveSegment(ctx context.Context, seg domain.Segment) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(seg)
	if err != nil {
		return fmt.Errorf("encode segment: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM segments WHERE run_id = ? AND seq = ?`, seg.RunID, seg.Sequence).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s/%d", domain.ErrSegmentExists, seg.RunID, seg.Sequence)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("lookup segment: %w", err)
	}
	info := seg.Info()
	if _, err := tx.ExecContext(ctx, `INSERT INTO segments(run_id,seq,generation,node_count,edge_count,simplified,created_at,payload) VALUES(?,?,?,?,?,?,?,?)`,
		info.RunID, info.Sequence, info.Generation, info.NodeCount, info.EdgeCount, info.Simplified, info.CreatedAt.UnixNano(), payload); err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return tx.Commit()
}

// LoadSegment decodes the stored payload.
func (s *Store) LoadSegment(ctx context.Context, runID string, seq int64) (domain.Segment, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM segments WHERE run_id = ? AND seq = ?`, runID, seq).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Segment{}, fmt.Errorf("%w: %s/%d", domain.ErrSegmentNotFound, runID, seq)
	}
	if err != nil {
		return domain.Segment{}, fmt.Errorf("select segment: %w", err)
	}
	var seg domain.Segment
	if err := json.Unmarshal(payload, &seg); err != nil {
		return domain.Segment{}, fmt.Errorf("decode segment: %w", err)
	}
	return seg, nil
}

// ListSegments returns the summaries of runID ordered by sequence.
func (s *Store) ListSegments(ctx context.Context, runID string) ([]domain.SegmentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, seq, generation, node_count, edge_count, simplified, created_at FROM segments WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("select segments: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.SegmentInfo
	for rows.Next() {
		var (
			info    domain.SegmentInfo
			created int64
		)
		if err := rows.Scan(&info.RunID, &info.Sequence, &info.Generation, &info.NodeCount, &info.EdgeCount, &info.Simplified, &created); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
