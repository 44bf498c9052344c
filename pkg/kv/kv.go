// Package kv defines the durable key-value collaborator the state
// store is built on, plus an in-memory implementation for tests and a
// minimal file-snapshot implementation (all keys held in memory, the
// whole set rewritten to one file on Flush) for standalone deployments
// that have no external database available.
package kv

import "context"

// Store is the durable key-value contract the state store persists
// raw leaf bytes, the serialized trie, and the transition index
// through.
type Store interface {
	// Get returns the value for key, or ok=false if it is absent.
	Get(ctx context.Context, key []byte) (value []byte, ok bool, err error)
	// Put writes key to value, creating or overwriting it.
	Put(ctx context.Context, key, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key []byte) error
	// ScanPrefix calls fn for every key with the given prefix, in
	// ascending key order. Iteration stops early if fn returns false.
	ScanPrefix(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error
	// Flush durably persists any buffered writes.
	Flush(ctx context.Context) error
	// Close releases any resources the store holds open.
	Close() error
}
