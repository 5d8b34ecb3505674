package store

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/heysubinoy/localstore/pkg/kv"
)

// Metrics holds timing statistics for store operations.
// Uses atomic operations for thread-safe updates without locks.
type Metrics struct {
	GetCount    atomic.Uint64
	SetCount    atomic.Uint64
	RemoveCount atomic.Uint64
	ClearCount  atomic.Uint64
	GetAllCount atomic.Uint64

	// Cumulative latencies in nanoseconds
	GetLatencyNs    atomic.Uint64
	SetLatencyNs    atomic.Uint64
	RemoveLatencyNs atomic.Uint64
	GetAllLatencyNs atomic.Uint64
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
type InstrumentedStore struct {
	store   kv.Store
	metrics *Metrics
}

// Compile-time check to ensure InstrumentedStore implements kv.Store.
var _ kv.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps a store with instrumentation.
func NewInstrumentedStore(store kv.Store) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		metrics: &Metrics{},
	}
}

// Unwrap returns the wrapped store.
func (s *InstrumentedStore) Unwrap() kv.Store {
	return s.store
}

// Get delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Get(key string) (json.RawMessage, bool) {
	start := time.Now()
	value, found := s.store.Get(key)
	s.metrics.GetCount.Add(1)
	s.metrics.GetLatencyNs.Add(uint64(time.Since(start).Nanoseconds()))
	return value, found
}

// Set delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Set(key string, value json.RawMessage) {
	start := time.Now()
	s.store.Set(key, value)
	s.metrics.SetCount.Add(1)
	s.metrics.SetLatencyNs.Add(uint64(time.Since(start).Nanoseconds()))
}

// Remove delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Remove(key string) {
	start := time.Now()
	s.store.Remove(key)
	s.metrics.RemoveCount.Add(1)
	s.metrics.RemoveLatencyNs.Add(uint64(time.Since(start).Nanoseconds()))
}

// Clear delegates to the wrapped store.
func (s *InstrumentedStore) Clear() {
	s.store.Clear()
	s.metrics.ClearCount.Add(1)
}

// GetAll delegates to the wrapped store and records timing.
func (s *InstrumentedStore) GetAll() map[string]json.RawMessage {
	start := time.Now()
	all := s.store.GetAll()
	s.metrics.GetAllCount.Add(1)
	s.metrics.GetAllLatencyNs.Add(uint64(time.Since(start).Nanoseconds()))
	return all
}

// Len delegates to the wrapped store.
func (s *InstrumentedStore) Len() int {
	return s.store.Len()
}

// GetMetrics returns a snapshot of current metrics.
func (s *InstrumentedStore) GetMetrics() MetricsSnapshot {
	getCount := s.metrics.GetCount.Load()
	setCount := s.metrics.SetCount.Load()
	removeCount := s.metrics.RemoveCount.Load()
	getAllCount := s.metrics.GetAllCount.Load()

	return MetricsSnapshot{
		GetCount:         getCount,
		SetCount:         setCount,
		RemoveCount:      removeCount,
		ClearCount:       s.metrics.ClearCount.Load(),
		GetAllCount:      getAllCount,
		GetAvgLatency:    avgLatency(s.metrics.GetLatencyNs.Load(), getCount),
		SetAvgLatency:    avgLatency(s.metrics.SetLatencyNs.Load(), setCount),
		RemoveAvgLatency: avgLatency(s.metrics.RemoveLatencyNs.Load(), removeCount),
		GetAllAvgLatency: avgLatency(s.metrics.GetAllLatencyNs.Load(), getAllCount),
	}
}

// ResetMetrics clears all metrics counters.
func (s *InstrumentedStore) ResetMetrics() {
	s.metrics.GetCount.Store(0)
	s.metrics.SetCount.Store(0)
	s.metrics.RemoveCount.Store(0)
	s.metrics.ClearCount.Store(0)
	s.metrics.GetAllCount.Store(0)
	s.metrics.GetLatencyNs.Store(0)
	s.metrics.SetLatencyNs.Store(0)
	s.metrics.RemoveLatencyNs.Store(0)
	s.metrics.GetAllLatencyNs.Store(0)
}

func avgLatency(totalNs, count uint64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNs / count)
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	GetCount         uint64
	SetCount         uint64
	RemoveCount      uint64
	ClearCount       uint64
	GetAllCount      uint64
	GetAvgLatency    time.Duration
	SetAvgLatency    time.Duration
	RemoveAvgLatency time.Duration
	GetAllAvgLatency time.Duration
}
