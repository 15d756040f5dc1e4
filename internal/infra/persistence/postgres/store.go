// Package postgres provides a Postgres-backed ArchiveStore using the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"argjournal/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.ArchiveStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/argjournal?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists segments to a `segments` table.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using dsn (falls back to defaultDSN)
// and ensures the segments table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSegmentsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSegmentsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS segments (
		run_id TEXT NOT NULL,
		seq BIGINT NOT NULL,
		generation BIGINT NOT NULL,
		node_count BIGINT NOT NULL,
		edge_count BIGINT NOT NULL,
		simplified BOOLEAN NOT NULL,
		created_at BIGINT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure segments table: %w", err)
	}
	return nil
}

// SaveSegment inserts seg, rejecting duplicates.
func (s *Store) SaveSegment(ctx context.Context, seg domain.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(seg)
	if err != nil {
		return fmt.Errorf("encode segment: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM segments WHERE run_id = $1 AND seq = $2`, seg.RunID, seg.Sequence).Scan(&existing)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s/%d", domain.ErrSegmentExists, seg.RunID, seg.Sequence)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("lookup segment: %w", err)
	}
	info := seg.Info()
	if _, err := tx.ExecContext(ctx, `INSERT INTO segments (run_id, seq, generation, node_count, edge_count, simplified, created_at, payload) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		info.RunID, info.Sequence, info.Generation, int64(info.NodeCount), int64(info.EdgeCount), info.Simplified, info.CreatedAt.UnixNano(), payload); err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// LoadSegment decodes the stored payload.
func (s *Store) LoadSegment(ctx context.Context, runID string, seq int64) (domain.Segment, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM segments WHERE run_id = $1 AND seq = $2`, runID, seq).Scan(&payload)
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
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, seq, generation, node_count, edge_count, simplified, created_at FROM segments WHERE run_id = $1 ORDER BY seq`, runID)
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
			return nil, fmt.Errorf("scan segment: %w", err)
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

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
