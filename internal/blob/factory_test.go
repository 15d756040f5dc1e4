package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"argjournal/internal/config"
)

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, config.Blob{Driver: "memory"})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("memory: %v %v", err, mem)
	}
	fsStore, err := Open(ctx, config.Blob{FSRoot: t.TempDir()})
	if err != nil || fsStore.Driver() != DriverFilesystem {
		t.Fatalf("fs default: %v", err)
	}
	s3Store, err := Open(ctx, config.Blob{Driver: "s3", S3: config.S3{Bucket: "bucket", Region: "eu-west-1"}})
	if err != nil || s3Store.Driver() != DriverS3 {
		t.Fatalf("s3: %v", err)
	}
	if _, err := Open(ctx, config.Blob{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestMockS3_ExistsAndNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMockS3ForTests()
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v")), PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("v")), PutOptions{}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
