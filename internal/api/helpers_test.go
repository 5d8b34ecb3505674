package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/heysubinoy/localstore/internal/engine"
	"github.com/heysubinoy/localstore/internal/store"
)

func newTestEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *store.InstrumentedStore) {
	t.Helper()

	instrumented := store.NewInstrumentedStore(store.NewMemStore())
	opts = append([]engine.Option{
		engine.WithLogger(zaptest.NewLogger(t)),
		engine.WithStore(instrumented),
	}, opts...)
	e := engine.New(filepath.Join(t.TempDir(), "localstorage.json"), opts...)

	errc := make(chan error, 1)
	go func() { errc <- e.Run(context.Background()) }()
	t.Cleanup(func() {
		require.NoError(t, e.Close())
		require.NoError(t, <-errc)
	})
	return e, instrumented
}

func waitReady(t *testing.T, e *engine.Engine) {
	t.Helper()
	select {
	case <-e.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not become ready")
	}
}
