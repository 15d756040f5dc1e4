// Package blob re-exports the blob abstractions and selects a backend. It is
// the only package allowed to import internal/infra/blob.
package blob

import (
	"argjournal/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrExists indicates a Put on an existing key.
	ErrExists = core.ErrExists
	// ErrNotFound indicates a missing key.
	ErrNotFound = core.ErrNotFound
)
