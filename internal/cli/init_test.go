package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FINTRACK_CLI_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FINTRACK_CLI_TEST_VALUE") })

	LoadEnvFile(path)
	assert.Equal(t, "from-file", os.Getenv("FINTRACK_CLI_TEST_VALUE"))

	// missing files are ignored
	LoadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
}

func TestGracefulShutdown_RunsCleanupOnSignal(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("info", &buf)

	cleaned := make(chan struct{})
	ctx, done := GracefulShutdown(logger, time.Second, func(ctx context.Context) {
		assert.NoError(t, ctx.Err())
		close(cleaned)
	})

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	assert.Error(t, ctx.Err())
	<-cleaned
	assert.Contains(t, buf.String(), "Shutdown complete")
}
