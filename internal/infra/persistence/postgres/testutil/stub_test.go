package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
)

func TestStubDBStoresAndFiltersRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS segments (run_id TEXT)", nil); err != nil {
		t.Fatalf("ExecContext ddl: %v", err)
	}
	for _, seq := range []int64{0, 1} {
		_, err := conn.ExecContext(ctx, "INSERT INTO segments (run_id, seq) VALUES ($1, $2)", []driver.NamedValue{
			{Ordinal: 1, Value: "run"},
			{Ordinal: 2, Value: seq},
		})
		if err != nil {
			t.Fatalf("ExecContext insert: %v", err)
		}
	}
	if len(conn.Tables["segments"]) != 2 || len(conn.Execs) != 3 {
		t.Fatalf("unexpected state: %v %v", conn.Tables, conn.Execs)
	}

	rows, err := conn.QueryContext(ctx, "SELECT seq FROM segments WHERE run_id = $1 AND seq = $2", []driver.NamedValue{
		{Ordinal: 1, Value: "run"},
		{Ordinal: 2, Value: int64(1)},
	})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 1)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != int64(1) {
		t.Fatalf("unexpected row values: %v", dest)
	}
	if err := rows.Next(dest); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestStubDBParseErrors(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	if _, err := conn.QueryContext(ctx, "DELETE FROM segments", nil); err == nil {
		t.Fatalf("expected select parse error")
	}
	if _, err := conn.QueryContext(ctx, "SELECT seq FROM segments WHERE seq > 1", nil); err == nil {
		t.Fatalf("expected predicate parse error")
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO segments VALUES (1)", []driver.NamedValue{{Value: 1}, {Value: 2}}); err == nil {
		t.Fatalf("expected column/arg mismatch")
	}
}
