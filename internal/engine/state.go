package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotReady is returned by queries issued before the initial load
	// finished when the engine runs with the Reject policy.
	ErrNotReady = errors.New("storage not loaded yet")

	// ErrClosed is returned by every request made after Close.
	ErrClosed = errors.New("engine closed")

	// ErrInvalidValue is returned by Set when the value is not valid JSON.
	ErrInvalidValue = errors.New("value is not valid JSON")
)

// State is the engine's position in the Uninitialized -> Loading -> Ready
// lifecycle. Transitions only move forward.
type State int32

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// QueryPolicy decides what happens to reads that arrive before Ready.
type QueryPolicy int

const (
	// Defer parks the query and answers it once the engine is Ready.
	Defer QueryPolicy = iota
	// Reject answers immediately with ErrNotReady.
	Reject
)

func (p QueryPolicy) String() string {
	if p == Reject {
		return "reject"
	}
	return "defer"
}

// ParseQueryPolicy maps "defer" and "reject" (case-insensitive) to a policy.
// The empty string means Defer.
func ParseQueryPolicy(s string) (QueryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "defer":
		return Defer, nil
	case "reject":
		return Reject, nil
	default:
		return Defer, fmt.Errorf("unknown query policy %q", s)
	}
}
