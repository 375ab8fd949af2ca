// Package kv provides the agent's durable key/value area. The capture agent
// keeps only a handful of values here (session credential, expiry), so the
// interface is deliberately minimal: absence is not an error.
package kv

import "context"

// Store is a durable string key/value area.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes or replaces the value for key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases underlying resources.
	Close() error
}
