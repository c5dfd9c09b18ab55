// Package kv defines the minimal ordered key/value abstraction the Object
// Repository (internal/objectstore) persists hash records and reference
// sets on top of. Concrete backends live in the memory, sqlite, and
// postgres subpackages; all three implement Store identically so the
// repository layer is oblivious to which one it was opened with.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("kv: key not found")

// Store is a flat, namespaced key/value store. Keys are opaque strings; the
// Object Repository namespaces them as "{kind}:{uuid}" for hash records and
// "{kind}:{uuid}:{field}" for reference sets.
type Store interface {
	// Get returns the raw value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes value under key, creating or overwriting it.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. It is not an error if key does not exist.
	Delete(ctx context.Context, key string) error
	// Scan returns every key with the given prefix, in lexicographic order.
	Scan(ctx context.Context, prefix string) ([]string, error)
	// Close releases resources held by the store.
	Close() error
}
