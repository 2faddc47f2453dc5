// Package storage defines the key-value contract save slots are persisted
// through. Every implementation is scoped to one save slot.
package storage

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	// KeyPlayer holds the JSON-encoded player state.
	KeyPlayer = "fazenda_player"
	// KeyActiveEvents holds a JSON array of active seasonal event ids.
	KeyActiveEvents = "fazenda_active_events"
	// KeyLastRegen holds the unix-millisecond time of the last regen tick.
	KeyLastRegen = "last_energia"
)

// Keys lists every key a save slot may hold, in the order Reset clears them.
var Keys = []string{KeyPlayer, KeyActiveEvents, KeyLastRegen}

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// KV is a save-slot key-value store.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Clear deletes every well-known key from kv.
//
// Postcondition: Returns the first error encountered; remaining keys are still attempted.
func Clear(ctx context.Context, kv KV) error {
	var first error
	for _, k := range Keys {
		if err := kv.Delete(ctx, k); err != nil && first == nil {
			first = err
		}
	}
	return first
}
