// internal/storage/archive/interface.go
package archive

import (
	"context"
	"fmt"
)

// Storage is where dashboard snapshots are kept.
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Backend types.
const (
	TypeLocalFS = "localfs"
	TypeS3      = "s3"
)

// Options selects and configures a backend.
type Options struct {
	Type string
	Path string // For localfs
	S3   S3Config
}

// Open creates the backend named by opts.Type.
func Open(opts Options) (Storage, error) {
	switch opts.Type {
	case TypeLocalFS, "":
		return NewLocalFS(opts.Path)
	case TypeS3:
		return NewS3(opts.S3)
	}
	return nil, fmt.Errorf("unknown storage type %q", opts.Type)
}
