package core

import (
	"context"
	"fmt"

	"argjournal/internal/blob"
	"argjournal/internal/config"
	"argjournal/internal/infra/persistence/blobarchive"
	"argjournal/internal/infra/persistence/memory"
	"argjournal/internal/infra/persistence/postgres"
	"argjournal/internal/infra/persistence/sqlite"
	"argjournal/pkg/domain"
)

// ArchiveDriver identifies a concrete segment archive implementation.
type ArchiveDriver string

const (
	ArchiveMemory   ArchiveDriver = "memory"   // in-process only (tests / ephemeral)
	ArchiveSQLite   ArchiveDriver = "sqlite"   // embedded sqlite file
	ArchivePostgres ArchiveDriver = "postgres" // PostgreSQL server
	ArchiveBlob     ArchiveDriver = "blob"     // JSON objects in a blob store
)

// OpenArchiveStore selects a segment archive from configuration. An empty
// driver means memory.
func OpenArchiveStore(ctx context.Context, cfg config.Config) (domain.ArchiveStore, error) {
	driver := cfg.Archive.Driver
	if driver == "" {
		driver = string(ArchiveMemory)
	}
	switch ArchiveDriver(driver) {
	case ArchiveMemory:
		return memory.NewStore(), nil
	case ArchiveSQLite:
		return sqlite.NewStore(cfg.Archive.SQLitePath)
	case ArchivePostgres:
		return postgres.NewStore(ctx, cfg.Archive.PostgresDSN)
	case ArchiveBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return blobarchive.New(blobs), nil
	default:
		return nil, fmt.Errorf("unknown archive driver %s", driver)
	}
}
