// Package storage contains the content store for photo binaries. Keys are relative,
// slash-separated paths; a key is meaningful only as a unique address.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Get when no content exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the content store used for photo binaries.
type Storage interface {
	// Put stores the reader's content under key, replacing anything already there.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get opens the content under key for streaming. Missing content yields ErrObjectNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes the content under key. Missing content is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL for direct download, where the backend supports it.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
