package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// snapshot is the serialized store content at the moment a flush was
// triggered. Seq grows with every flush the owner loop requests.
type snapshot struct {
	Seq  uint64
	Data []byte
}

// writer persists snapshots from a single goroutine. Only the newest
// pending snapshot is kept, so a snapshot with a lower sequence is never
// written after one with a higher sequence.
type writer struct {
	path   string
	logger *zap.Logger

	mu       sync.Mutex
	pending  *snapshot
	written  uint64 // highest seq attempted
	flushes  uint64
	failures uint64
	progress chan struct{} // closed and replaced whenever written advances

	signal   chan struct{} // buffered, size 1
	stop     chan struct{}
	finished chan struct{}
}

func newWriter(path string, logger *zap.Logger) *writer {
	return &writer{
		path:     path,
		logger:   logger,
		progress: make(chan struct{}),
		signal:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// submit queues s, replacing any older pending snapshot.
func (w *writer) submit(s snapshot) {
	w.mu.Lock()
	if w.pending == nil || s.Seq > w.pending.Seq {
		w.pending = &s
	}
	w.mu.Unlock()

	// Non-blocking: a buffer of 1 coalesces multiple signals.
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *writer) run() {
	defer close(w.finished)
	for {
		select {
		case <-w.signal:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// close stops the writer after the last pending snapshot is on disk.
func (w *writer) close() {
	close(w.stop)
	<-w.finished
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		s := w.pending
		w.pending = nil
		stale := s != nil && s.Seq <= w.written
		w.mu.Unlock()

		if s == nil {
			return
		}
		if stale {
			continue
		}

		err := writeFileAtomic(w.path, s.Data)
		if err != nil {
			w.logger.Error("could not write the storage file",
				zap.String("path", w.path),
				zap.Uint64("seq", s.Seq),
				zap.Error(err))
		} else {
			w.logger.Debug("storage file written",
				zap.String("path", w.path),
				zap.Uint64("seq", s.Seq),
				zap.Int("bytes", len(s.Data)))
		}

		w.mu.Lock()
		w.written = s.Seq
		if err != nil {
			w.failures++
		} else {
			w.flushes++
		}
		close(w.progress)
		w.progress = make(chan struct{})
		w.mu.Unlock()
	}
}

// waitFor blocks until the snapshot with the given seq (or a newer one)
// has been attempted.
func (w *writer) waitFor(ctx context.Context, seq uint64) error {
	for {
		w.mu.Lock()
		if w.written >= seq {
			w.mu.Unlock()
			return nil
		}
		ch := w.progress
		w.mu.Unlock()

		select {
		case <-ch:
		case <-w.finished:
			w.mu.Lock()
			done := w.written >= seq
			w.mu.Unlock()
			if !done {
				return ErrClosed
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *writer) counts() (flushes, failures uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushes, w.failures
}

// writeFileAtomic replaces path with data by writing a temp file in the
// same directory and renaming it over the target.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace storage file: %w", err)
	}
	return nil
}
