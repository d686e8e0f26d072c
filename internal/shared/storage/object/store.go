package object

import (
	"context"
	"io"
	"time"
)

// PutOptions describes the object being written.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectStore defines the contract for saving and retrieving binary objects
// under caller-chosen keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (sizeBytes int64, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// URL returns a link the client can download key from until ttl elapses.
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
