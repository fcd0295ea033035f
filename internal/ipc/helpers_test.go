package ipc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// shortSocketPath keeps socket paths under the sun_path limit; t.TempDir can
// exceed it on macOS.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "dj")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "d.sock")
}

func startServer(t *testing.T, handler Handler) string {
	t.Helper()
	socketPath := shortSocketPath(t)
	s := NewServer(socketPath, handler, nil)
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return socketPath
}

func strPtr(s string) *string { return &s }
