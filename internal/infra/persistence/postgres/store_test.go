package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"argjournal/internal/infra/persistence/postgres/testutil"
	"argjournal/pkg/domain"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, conn
}

func segment(run string, seq int64) domain.Segment {
	return domain.Segment{
		RunID:      run,
		Sequence:   seq,
		Generation: 10 * (seq + 1),
		Nodes:      []domain.Node{domain.NewNode(4, 0, 0), domain.NewNode(5, 0, 0)},
		Edges:      []domain.Edge{domain.NewEdge(0, 1, 0, 4), domain.NewEdge(0, 1, 1, 5)},
		Samples:    []domain.NodeID{4, 5},
		Result:     domain.CompactionResult{Simplified: true, NextID: 2},
		CreatedAt:  time.Unix(1700000000, 0).UTC(),
	}
}

func TestNewStoreCreatesSegmentsTable(t *testing.T) {
	_, conn := newStubStore(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS segments") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected segments DDL, got execs: %v", conn.Execs)
	}
}

func TestStoreSaveLoadList(t *testing.T) {
	ctx := context.Background()
	store, _ := newStubStore(t)
	for _, seq := range []int64{0, 1} {
		if err := store.SaveSegment(ctx, segment("run", seq)); err != nil {
			t.Fatalf("save %d: %v", seq, err)
		}
	}
	if err := store.SaveSegment(ctx, segment("other", 0)); err != nil {
		t.Fatalf("save other: %v", err)
	}
	if err := store.SaveSegment(ctx, segment("run", 1)); !errors.Is(err, domain.ErrSegmentExists) {
		t.Fatalf("expected ErrSegmentExists, got %v", err)
	}

	got, err := store.LoadSegment(ctx, "run", 1)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Generation != 20 || len(got.Edges) != 2 || got.Samples[1] != 5 {
		t.Fatalf("unexpected segment %+v", got)
	}
	if _, err := store.LoadSegment(ctx, "run", 7); !errors.Is(err, domain.ErrSegmentNotFound) {
		t.Fatalf("expected ErrSegmentNotFound, got %v", err)
	}

	infos, err := store.ListSegments(ctx, "run")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Sequence != 0 || infos[1].NodeCount != 2 || !infos[1].Simplified {
		t.Fatalf("unexpected infos %+v", infos)
	}
	if !infos[0].CreatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("created at = %v", infos[0].CreatedAt)
	}
}

func TestStoreErrorPaths(t *testing.T) {
	ctx := context.Background()
	store, conn := newStubStore(t)

	conn.FailBegin = true
	if err := store.SaveSegment(ctx, segment("run", 0)); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false

	conn.FailCommit = true
	if err := store.SaveSegment(ctx, segment("run", 0)); err == nil {
		t.Fatalf("expected commit failure")
	}
	conn.FailCommit = false

	conn.FailTables = map[string]bool{"segments": true}
	if _, err := store.ListSegments(ctx, "run"); err == nil {
		t.Fatalf("expected list failure")
	}
	if _, err := store.LoadSegment(ctx, "run", 0); err == nil || errors.Is(err, domain.ErrSegmentNotFound) {
		t.Fatalf("expected query failure, got %v", err)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://example/db"); err == nil {
		t.Fatalf("expected ping failure")
	}
	if err := db.PingContext(context.Background()); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("expected db closed after ping failure, got %v", err)
	}
}

func TestNewStoreClosesDBWhenDDLFails(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailDDL = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	_, err := NewStore(context.Background(), "postgres://example/db")
	if err == nil || !strings.Contains(err.Error(), "ensure segments table") {
		t.Fatalf("expected ddl failure, got %v", err)
	}
	if err := db.PingContext(context.Background()); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Fatalf("expected db closed after ddl failure, got %v", err)
	}
}

func TestOverrideSQLOpenRestores(t *testing.T) {
	called := false
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		called = true
		return nil, errors.New("nope")
	})
	if _, err := NewStore(context.Background(), ""); err == nil || !called {
		t.Fatalf("expected override to be used: %v", err)
	}
	restore()
	if sqlOpen == nil {
		t.Fatalf("sqlOpen not restored")
	}
}
