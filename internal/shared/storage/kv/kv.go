package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a slot has never been written or was deleted.
var ErrNotFound = errors.New("kv: slot not found")

// Store persists opaque values in named slots grouped by namespace.
// Every Put replaces the whole value; there is no partial update.
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
}

// Closer is implemented by backends holding external resources.
type Closer interface {
	Close() error
}
