package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates no object exists under the requested id.
var ErrNotFound = errors.New("object not found")

// Metadata is stored alongside each video object.
type Metadata struct {
	OwnerID      string
	OriginalName string
	ContentType  string
}

// ObjectInfo describes an object returned by Open.
type ObjectInfo struct {
	Size        int64
	ContentType string
	Metadata    Metadata
}

// BlobStore keeps video bytes keyed by an opaque object id.
type BlobStore interface {
	Put(ctx context.Context, id string, r io.Reader, meta Metadata) error
	Open(ctx context.Context, id string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, id string) error
}
