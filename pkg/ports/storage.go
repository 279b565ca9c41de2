package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a DocumentStore when a key holds no document
var ErrNotFound = errors.New("document not found")

// DocumentStore reads and writes opaque text documents by key
type DocumentStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, document string) error
}
