package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/heysubinoy/localstore/pkg/config"
)

func TestServe_InitializesAndShutsDown(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOCALSTORE_DATA_DIR", dir)
	t.Setenv("LOCALSTORE_FILE_NAME", "test.json")
	t.Setenv("LOCALSTORE_HTTP_ADDR", "127.0.0.1:0")
	t.Setenv("LOCALSTORE_GRPC_ADDR", "127.0.0.1:0")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zaptest.NewLogger(t)) }()

	path := filepath.Join(dir, "test.json")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "{}"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return")
	}
}
