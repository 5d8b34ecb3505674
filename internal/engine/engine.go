// Package engine keeps an in-memory key-value store in sync with a JSON
// file on disk.
//
// A single owner goroutine (Run) applies every request in arrival order.
// Mutations are accepted at any time; until the initial load has merged the
// file into the store they are only buffered in memory. Once Ready, every
// mutation triggers a full-snapshot flush, written by a separate goroutine
// so that file I/O never stalls the request stream.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/heysubinoy/localstore/internal/store"
	"github.com/heysubinoy/localstore/pkg/kv"
)

// mailboxSize bounds how many requests may wait for the owner loop before
// callers start blocking.
const mailboxSize = 256

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithQueryPolicy sets how reads issued before Ready are treated.
func WithQueryPolicy(p QueryPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithStore replaces the default MemStore. The engine must be the only
// writer of the given store.
func WithStore(s kv.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

// WithReadyHook registers fn to be called exactly once, from the owner
// loop, when the engine becomes Ready. keys is the merged key count.
func WithReadyHook(fn func(keys int)) Option {
	return func(e *Engine) { e.readyHook = fn }
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	State         State
	Keys          int
	Flushes       uint64
	FlushFailures uint64
}

// Engine owns one kv.Store and the file it is mirrored to.
type Engine struct {
	path      string
	store     kv.Store
	raw       kv.Store // store without decorators, for engine-internal access
	logger    *zap.Logger
	policy    QueryPolicy
	readyHook func(keys int)

	mailbox chan command
	loaded  chan loadResult
	writer  *writer

	state atomic.Int32
	ready chan struct{}

	mu      sync.Mutex
	started bool
	quit    chan struct{}
	done    chan struct{}
	closing sync.Once

	// Owned by the Run goroutine.
	deferred []command
	seq      uint64
}

type loadResult struct {
	data []byte
	err  error
}

// New creates an engine persisting to path. Nothing touches the disk until
// Run is started and Initialize is called.
func New(path string, opts ...Option) *Engine {
	e := &Engine{
		path:    path,
		store:   store.NewMemStore(),
		logger:  zap.NewNop(),
		mailbox: make(chan command, mailboxSize),
		loaded:  make(chan loadResult, 1),
		ready:   make(chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.raw = unwrapStore(e.store)
	e.logger = e.logger.Named("engine")
	e.writer = newWriter(path, e.logger)
	return e
}

// Path returns the storage file path.
func (e *Engine) Path() string { return e.path }

// State returns the current lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Ready returns a channel that is closed once the initial load and merge
// have completed.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// Stats returns current counters.
func (e *Engine) Stats() Stats {
	flushes, failures := e.writer.counts()
	return Stats{
		State:         e.State(),
		Keys:          e.store.Len(),
		Flushes:       flushes,
		FlushFailures: failures,
	}
}

// Run processes requests until ctx is cancelled or Close is called. It may
// only be called once. Run returns nil once Close has been called, even if
// Close won the race against the loop starting.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		select {
		case <-e.quit:
			// Closed before the loop got a chance to start.
			return nil
		default:
		}
		select {
		case <-e.done:
			return ErrClosed
		default:
			return errors.New("engine already running")
		}
	}
	e.started = true
	e.mu.Unlock()

	go e.writer.run()
	defer close(e.done)
	defer e.writer.close()

	e.logger.Debug("engine starting", zap.String("path", e.path))

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case <-e.quit:
			e.shutdown()
			return nil
		case cmd := <-e.mailbox:
			e.handle(cmd)
		case res := <-e.loaded:
			e.finishLoad(res)
		}
	}
}

// Close stops the owner loop and waits until the last flush has been
// written. Requests after Close fail with ErrClosed.
func (e *Engine) Close() error {
	e.closing.Do(func() { close(e.quit) })

	e.mu.Lock()
	started := e.started
	if !started {
		e.started = true
		close(e.done)
	}
	e.mu.Unlock()

	if started {
		<-e.done
	}
	return nil
}

// Initialize fires the one-time load of the storage file. Calls after the
// first are no-ops. It returns once the request is accepted; wait on Ready
// for completion.
func (e *Engine) Initialize(ctx context.Context) error {
	_, err := e.do(ctx, command{Op: opInitialize})
	return err
}

// Set inserts or overwrites key. value must be valid JSON.
func (e *Engine) Set(ctx context.Context, key string, value json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	_, err := e.do(ctx, command{Op: opSet, Key: key, Value: buf.Bytes()})
	return err
}

// Remove deletes key. Removing an absent key still triggers a flush.
func (e *Engine) Remove(ctx context.Context, key string) error {
	_, err := e.do(ctx, command{Op: opRemove, Key: key})
	return err
}

// Clear drops every key.
func (e *Engine) Clear(ctx context.Context) error {
	_, err := e.do(ctx, command{Op: opClear})
	return err
}

// Get returns a single value, subject to the query policy.
func (e *Engine) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	res, err := e.do(ctx, command{Op: opGet, Key: key, FetchID: fetchID(ctx)})
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Found, nil
}

// GetAll returns a copy of the whole store, subject to the query policy.
func (e *Engine) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	res, err := e.do(ctx, command{Op: opGetAll, FetchID: fetchID(ctx)})
	if err != nil {
		return nil, err
	}
	return res.All, nil
}

// Sync waits until every flush triggered before the call has been written
// to disk (or has failed and been logged).
func (e *Engine) Sync(ctx context.Context) error {
	res, err := e.do(ctx, command{Op: opSync})
	if err != nil {
		return err
	}
	return e.writer.waitFor(ctx, res.Seq)
}

func (e *Engine) do(ctx context.Context, cmd command) (result, error) {
	cmd.reply = make(chan result, 1)

	select {
	case <-e.done:
		return result{}, ErrClosed
	default:
	}

	select {
	case e.mailbox <- cmd:
	case <-e.done:
		return result{}, ErrClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res, res.Err
	case <-e.done:
		select {
		case res := <-cmd.reply:
			return res, res.Err
		default:
			return result{}, ErrClosed
		}
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (e *Engine) handle(cmd command) {
	switch {
	case cmd.Op == opInitialize:
		e.beginLoad()
		cmd.reply <- result{}

	case cmd.isMutation():
		e.apply(cmd)
		if e.State() == Ready {
			e.flush()
		}
		cmd.reply <- result{}

	case cmd.isQuery():
		if cmd.Op == opGetAll {
			e.logger.Debug("getAll received", zap.String("fetch_id", cmd.FetchID))
		}
		if e.State() == Ready {
			e.answer(cmd)
			return
		}
		if e.policy == Reject {
			cmd.reply <- result{Err: ErrNotReady}
			return
		}
		e.deferred = append(e.deferred, cmd)

	case cmd.Op == opSync:
		cmd.reply <- result{Seq: e.seq}

	default:
		cmd.reply <- result{Err: fmt.Errorf("unknown op %d", cmd.Op)}
	}
}

func (e *Engine) apply(cmd command) {
	switch cmd.Op {
	case opSet:
		e.store.Set(cmd.Key, cmd.Value)
	case opRemove:
		e.store.Remove(cmd.Key)
	case opClear:
		e.store.Clear()
	}
}

func (e *Engine) answer(cmd command) {
	switch cmd.Op {
	case opGet:
		v, ok := e.store.Get(cmd.Key)
		cmd.reply <- result{Value: v, Found: ok}
		e.logger.Debug("sent value", zap.String("fetch_id", cmd.FetchID), zap.String("key", cmd.Key))
	case opGetAll:
		cmd.reply <- result{All: e.store.GetAll()}
		e.logger.Debug("sent storage", zap.String("fetch_id", cmd.FetchID))
	}
}

// beginLoad starts reading the storage file in the background. Only the
// first call has any effect.
func (e *Engine) beginLoad() {
	if !e.state.CompareAndSwap(int32(Uninitialized), int32(Loading)) {
		return
	}
	path := e.path
	go func() {
		data, err := os.ReadFile(path)
		e.loaded <- loadResult{data: data, err: err}
	}()
}

// finishLoad merges the file content under the buffered mutations, flushes
// the result and enters Ready.
func (e *Engine) finishLoad(res loadResult) {
	loaded := map[string]json.RawMessage{}

	switch {
	case errors.Is(res.err, fs.ErrNotExist):
		e.logger.Info("no storage file, starting empty", zap.String("path", e.path))
	case res.err != nil:
		e.logger.Warn("could not read the storage file", zap.String("path", e.path), zap.Error(res.err))
	default:
		parsed, err := decodeSnapshot(res.data)
		if err != nil {
			e.logger.Warn("could not parse the storage file", zap.String("path", e.path), zap.Error(err))
			break
		}
		loaded = parsed
		e.logger.Info("loaded storage file", zap.String("path", e.path))
	}

	merge(e.raw, loaded)
	e.flush()
	e.state.Store(int32(Ready))
	close(e.ready)

	keys := e.raw.Len()
	e.logger.Info("storage merged", zap.Int("keys", keys))
	if e.readyHook != nil {
		e.readyHook(keys)
	}

	for _, cmd := range e.deferred {
		e.answer(cmd)
	}
	e.deferred = nil
}

// flush hands a snapshot of the full store to the writer.
func (e *Engine) flush() {
	data, err := encodeSnapshot(e.raw.GetAll())
	if err != nil {
		e.logger.Error("could not serialize storage", zap.Error(err))
		return
	}
	e.seq++
	e.writer.submit(snapshot{Seq: e.seq, Data: data})
}

func (e *Engine) shutdown() {
	for _, cmd := range e.deferred {
		cmd.reply <- result{Err: ErrClosed}
	}
	e.deferred = nil

	for {
		select {
		case cmd := <-e.mailbox:
			cmd.reply <- result{Err: ErrClosed}
		default:
			e.logger.Debug("engine stopped", zap.String("path", e.path))
			return
		}
	}
}

type unwrapper interface {
	Unwrap() kv.Store
}

// unwrapStore peels decorators such as store.InstrumentedStore so that
// loading and flushing do not show up as client operations.
func unwrapStore(s kv.Store) kv.Store {
	for {
		u, ok := s.(unwrapper)
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}

type merger interface {
	Merge(loaded map[string]json.RawMessage)
}

// merge overlays the store's current content on top of loaded. Keys the
// store already holds win, since they were written after the file snapshot.
func merge(s kv.Store, loaded map[string]json.RawMessage) {
	if m, ok := s.(merger); ok {
		m.Merge(loaded)
		return
	}
	for k, v := range loaded {
		if _, ok := s.Get(k); !ok {
			s.Set(k, v)
		}
	}
}

func decodeSnapshot(data []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	return m, nil
}

// encodeSnapshot serializes the store as a single compact JSON object
// without HTML escaping.
func encodeSnapshot(all map[string]json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(all); err != nil {
		return nil, fmt.Errorf("encode storage: %w", err)
	}
	return []byte(strings.TrimSuffix(buf.String(), "\n")), nil
}
