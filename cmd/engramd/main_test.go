package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunHTTP(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	root := t.TempDir()
	t.Setenv("DATACORE_PATH", "")
	t.Setenv("ENGRAMD_SERVER_ENABLED", "true")
	t.Setenv("ENGRAMD_SERVER_HTTP_PORT", "18491")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, options{corePath: root})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://localhost:18491/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	_, err := os.Stat(filepath.Join(root, "engrams.yaml"))
	assert.NoError(t, err, "storage is initialized on startup")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}

func TestRunNothingToServe(t *testing.T) {
	t.Setenv("DATACORE_PATH", "")
	t.Setenv("ENGRAMD_SERVER_ENABLED", "false")

	err := run(context.Background(), options{corePath: t.TempDir()})
	assert.ErrorContains(t, err, "nothing to serve")
}
