package store

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/heysubinoy/localstore/pkg/kv"
)

// MemStore is an in-memory implementation of the kv.Store interface.
// It uses a map protected by a RWMutex for thread-safe operations.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// Compile-time check to ensure MemStore implements kv.Store.
var _ kv.Store = (*MemStore)(nil)

// NewMemStore creates and returns a new, empty MemStore instance.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]json.RawMessage),
	}
}

// Get retrieves a value by key from the store.
// The returned slice is a copy.
func (s *MemStore) Get(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(val), true
}

// Set stores a key-value pair in the store, overwriting any previous value.
func (s *MemStore) Set(key string, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = bytes.Clone(value)
}

// Remove deletes a key from the store. Absent keys are ignored.
func (s *MemStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

// Clear drops every key.
func (s *MemStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]json.RawMessage)
}

// GetAll returns a deep copy of the current mapping.
func (s *MemStore) GetAll() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		out[k] = bytes.Clone(v)
	}
	return out
}

// Len returns the number of keys in the store.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}

// Merge overlays the current content on top of loaded: keys already in the
// store keep their value, keys only present in loaded are added.
func (s *MemStore) Merge(loaded map[string]json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data) == 0 {
		s.data = make(map[string]json.RawMessage, len(loaded))
	}
	for k, v := range loaded {
		if _, ok := s.data[k]; ok {
			continue
		}
		s.data[k] = bytes.Clone(v)
	}
}
