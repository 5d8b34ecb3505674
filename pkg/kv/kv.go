package kv

import "encoding/json"

// Store defines the interface for the in-memory key-value mapping that the
// sync engine mirrors to disk. Values are compact JSON text.
//
// Implementations are expected to be cheap and synchronous; persistence is
// the engine's job, not the store's.
type Store interface {
	// Get retrieves the value associated with the given key.
	// Returns the value and true if the key exists, or nil and false if not.
	Get(key string) (json.RawMessage, bool)

	// Set inserts or overwrites key.
	Set(key string, value json.RawMessage)

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string)

	// Clear empties the mapping.
	Clear()

	// GetAll returns a copy of the full mapping. Mutating the result
	// never affects the store.
	GetAll() map[string]json.RawMessage

	// Len returns the number of keys currently held.
	Len() int
}
