package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_SetGet(t *testing.T) {
	s := NewMemStore()

	s.Set("a", json.RawMessage(`1`))
	s.Set("a", json.RawMessage(`{"x":true}`))

	v, ok := s.Get("a")
	require.True(t, ok)
	assert.JSONEq(t, `{"x":true}`, string(v))
	assert.Equal(t, 1, s.Len())

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestMemStore_RemoveAbsentIsNoop(t *testing.T) {
	s := NewMemStore()
	s.Set("a", json.RawMessage(`1`))

	s.Remove("b")
	assert.Equal(t, 1, s.Len())

	s.Remove("a")
	assert.Equal(t, 0, s.Len())
}

func TestMemStore_Clear(t *testing.T) {
	s := NewMemStore()
	s.Set("a", json.RawMessage(`1`))
	s.Set("b", json.RawMessage(`2`))

	s.Clear()
	assert.Empty(t, s.GetAll())

	s.Set("c", json.RawMessage(`3`))
	assert.Equal(t, 1, s.Len())
}

func TestMemStore_GetAllIsACopy(t *testing.T) {
	s := NewMemStore()
	s.Set("a", json.RawMessage(`"abc"`))

	all := s.GetAll()
	all["a"][1] = 'z'
	all["b"] = json.RawMessage(`1`)

	v, _ := s.Get("a")
	assert.Equal(t, `"abc"`, string(v))
	assert.Equal(t, 1, s.Len())
}

func TestMemStore_SetCopiesInput(t *testing.T) {
	s := NewMemStore()
	in := json.RawMessage(`"abc"`)
	s.Set("a", in)
	in[1] = 'z'

	v, _ := s.Get("a")
	assert.Equal(t, `"abc"`, string(v))
}

func TestMemStore_Merge(t *testing.T) {
	tests := []struct {
		name     string
		buffered map[string]string
		loaded   map[string]string
		want     map[string]string
	}{
		{
			name:   "empty store takes loaded content",
			loaded: map[string]string{"a": `1`, "b": `2`},
			want:   map[string]string{"a": `1`, "b": `2`},
		},
		{
			name:     "buffered value wins on collision",
			buffered: map[string]string{"a": `2`},
			loaded:   map[string]string{"a": `1`, "b": `3`},
			want:     map[string]string{"a": `2`, "b": `3`},
		},
		{
			name:     "nothing loaded keeps buffered content",
			buffered: map[string]string{"x": `"y"`},
			want:     map[string]string{"x": `"y"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemStore()
			for k, v := range tt.buffered {
				s.Set(k, json.RawMessage(v))
			}
			loaded := make(map[string]json.RawMessage, len(tt.loaded))
			for k, v := range tt.loaded {
				loaded[k] = json.RawMessage(v)
			}

			s.Merge(loaded)

			got := make(map[string]string)
			for k, v := range s.GetAll() {
				got[k] = string(v)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
