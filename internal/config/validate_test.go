package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestValidateRejectsRelativeSocketAndEmptyPackage(t *testing.T) {
	cfg := Default()
	cfg.SocketPath = "runner.sock"
	cfg.Package = " "

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "socket_path: must be absolute")
	assert.Contains(t, err.Error(), "package: must not be empty")
}

func TestValidateRejectsBadDurations(t *testing.T) {
	cfg := Default()
	cfg.Timeout = "soon"
	cfg.Cache.TTL = "0s"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `timeout: invalid duration "soon"`)
	assert.Contains(t, err.Error(), `cache.ttl: must be > 0`)
}

func TestValidateRejectsNegativeTimeout(t *testing.T) {
	cfg := Default()
	cfg.Timeout = "-1s"

	require.ErrorContains(t, Validate(cfg), "timeout: must be >= 0")
}

func TestValidateRejectsBadProviderEnvName(t *testing.T) {
	cfg := Default()
	cfg.Providers["groq"] = ProviderConfig{APIKeyEnv: "$GROQ"}

	require.ErrorContains(t, Validate(cfg), "providers.groq.api_key_env")
}
