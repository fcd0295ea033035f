package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSocketPathDefaultsToRunnerSocket(t *testing.T) {
	t.Setenv(SocketEnv, "")

	assert.Equal(t, "/tmp/allpath_runner.sock", SocketPath())
}

func TestSocketPathHonorsEnvOverride(t *testing.T) {
	t.Setenv(SocketEnv, "/run/user/1000/runner.sock")

	assert.Equal(t, "/run/user/1000/runner.sock", SocketPath())
}

func TestConfigFileUsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/config-home")
	t.Setenv("HOME", "/tmp/home")

	assert.Equal(t, filepath.Join("/tmp/config-home", "dojutsu", "config.toml"), ConfigFile())
}

func TestCacheDirFallsBackToHomeCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/tmp/home")

	assert.Equal(t, filepath.Join("/tmp/home", ".cache", "dojutsu"), CacheDir())
}
