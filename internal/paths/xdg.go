package paths

import (
	"os"
	"path/filepath"
)

// DefaultSocketPath is where the allpath runner daemon listens.
const DefaultSocketPath = "/tmp/allpath_runner.sock"

// SocketEnv overrides the daemon socket path when set.
const SocketEnv = "DOJUTSU_SOCKET"

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, "dojutsu")
	}
	return filepath.Join(homeDir(), fallbackSuffix, "dojutsu")
}

// ConfigDir returns the dojutsu config directory ($XDG_CONFIG_HOME/dojutsu).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// CacheDir returns the dojutsu cache directory ($XDG_CACHE_HOME/dojutsu).
func CacheDir() string {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// SocketPath returns the daemon socket path: $DOJUTSU_SOCKET if set,
// otherwise the runner's well-known path. The socket is owned by the
// daemon; nothing here creates or removes it.
func SocketPath() string {
	if v := os.Getenv(SocketEnv); v != "" {
		return v
	}
	return DefaultSocketPath
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
