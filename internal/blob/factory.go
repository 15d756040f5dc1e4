package blob

import (
	"context"
	"fmt"

	"argjournal/internal/config"
	"argjournal/internal/infra/blob/fs"
	memorystore "argjournal/internal/infra/blob/memory"
	infraS3 "argjournal/internal/infra/blob/s3"
)

// Open selects a blob.Store implementation from configuration. An empty
// driver means the filesystem.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return infraS3.New(ctx, infraS3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewMemory returns an in-memory blob.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests exposes the in-memory S3 transport mock for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
