// Package blob selects and aliases the blob storage backends used for export
// archives.
package blob

import (
	"context"
	"fmt"
	"os"

	"gridcore/internal/infra/blob/core"
	"gridcore/internal/infra/blob/fs"
	"gridcore/internal/infra/blob/memory"
	"gridcore/internal/infra/blob/s3"
)

type (
	// Store aliases core.Store for callers outside the blob packages.
	Store = core.Store
	// Info aliases core.Info.
	Info = core.Info
	// PutOptions aliases core.PutOptions.
	PutOptions = core.PutOptions
	// Driver aliases core.Driver.
	Driver = core.Driver
)

// Driver identifiers re-exported for callers of Open.
const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// NewMemory returns an in-memory store for tests.
func NewMemory() Store { return memory.New() }

// NewFilesystem returns a filesystem store rooted at dir.
func NewFilesystem(dir string) (Store, error) { return fs.New(dir) }

// Open selects a blob.Store implementation using environment variables.
//
//	GRIDCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	GRIDCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("GRIDCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("GRIDCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
