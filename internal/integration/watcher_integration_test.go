package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/help-alert/internal/service/common"
	"github.com/oshokin/help-alert/internal/service/watcher"
)

// TestWatcher_RaisesAndClearsAlert runs the watcher against a live server.
func TestWatcher_RaisesAndClearsAlert(t *testing.T) {
	t.Parallel()

	addr := reservePort(t)

	cfgPath, stop := startServer(t, addr)
	defer stop()

	ctx := context.Background()

	c, err := common.Dial(ctx, addr)
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	countFile := filepath.Join(t.TempDir(), "count")
	require.NoError(t, os.WriteFile(countFile, []byte("4\n"), 0o600))

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- watcher.Run(runCtx, &watcher.Options{
			ConfigPath: cfgPath,
			CountFile:  countFile,
		})
	}()

	require.Eventually(t, func() bool {
		state, err := c.GetState(ctx)
		return err == nil && state.Phase == "pending"
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(countFile, []byte("1\n"), 0o600))

	require.Eventually(t, func() bool {
		state, err := c.GetState(ctx)
		return err == nil && state.Phase == "idle"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
