// Package kvstore provides per-profile key-value blob storage. It is the
// server-side counterpart of the browser's per-origin storage: flat string
// keys, opaque byte values, whole-value replacement on every write.
package kvstore

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is a flat key-value blob store. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the whole value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
