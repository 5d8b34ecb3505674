package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstrumentedStore_CountsOperations(t *testing.T) {
	s := NewInstrumentedStore(NewMemStore())

	s.Set("a", json.RawMessage(`1`))
	s.Set("b", json.RawMessage(`2`))
	s.Get("a")
	s.Remove("a")
	s.GetAll()
	s.Clear()

	m := s.GetMetrics()
	assert.Equal(t, uint64(2), m.SetCount)
	assert.Equal(t, uint64(1), m.GetCount)
	assert.Equal(t, uint64(1), m.RemoveCount)
	assert.Equal(t, uint64(1), m.GetAllCount)
	assert.Equal(t, uint64(1), m.ClearCount)
	assert.Equal(t, 0, s.Len())

	s.ResetMetrics()
	assert.Equal(t, MetricsSnapshot{}, s.GetMetrics())
}

func TestInstrumentedStore_Unwrap(t *testing.T) {
	inner := NewMemStore()
	s := NewInstrumentedStore(inner)
	assert.Same(t, inner, s.Unwrap())
}
