package engine

import "encoding/json"

// op identifies what a command asks the owner loop to do.
type op int

const (
	opInitialize op = iota + 1
	opSet
	opRemove
	opClear
	opGet
	opGetAll
	opSync
)

func (o op) String() string {
	switch o {
	case opInitialize:
		return "initialize"
	case opSet:
		return "set"
	case opRemove:
		return "remove"
	case opClear:
		return "clear"
	case opGet:
		return "get"
	case opGetAll:
		return "getAll"
	case opSync:
		return "sync"
	default:
		return "unknown"
	}
}

// command is a single request delivered to the owner loop. Commands are
// handled strictly in the order they enter the mailbox.
type command struct {
	Op      op
	Key     string
	Value   json.RawMessage // only for set
	FetchID string          // only for queries

	reply chan result
}

// isQuery reports whether the command reads store content and is therefore
// subject to the readiness policy.
func (c command) isQuery() bool {
	return c.Op == opGet || c.Op == opGetAll
}

// isMutation reports whether the command changes store content.
func (c command) isMutation() bool {
	return c.Op == opSet || c.Op == opRemove || c.Op == opClear
}

type result struct {
	Value json.RawMessage
	Found bool
	All   map[string]json.RawMessage
	Seq   uint64
	Err   error
}
