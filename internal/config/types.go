package config

import "time"

// Default values used when the config file leaves a key unset.
const (
	DefaultPackage  = "dojutsu-agent"
	DefaultProvider = "groq"
	DefaultCacheTTL = "1h"
)

// DefaultCacheFunctions are daemon functions whose answers do not depend on
// an LLM call and are safe to reuse.
var DefaultCacheFunctions = []string{"version", "skills_count"}

// Config is the top-level dojutsu configuration.
type Config struct {
	SocketPath string                    `toml:"socket_path"`
	Package    string                    `toml:"package"`
	Timeout    string                    `toml:"timeout"` // empty or "0" = no deadline
	Provider   string                    `toml:"provider"`
	Model      string                    `toml:"model"`
	Providers  map[string]ProviderConfig `toml:"providers"`
	Cache      CacheConfig               `toml:"cache"`
}

// ProviderConfig overrides how a provider's key and model are chosen.
type ProviderConfig struct {
	APIKeyEnv string `toml:"api_key_env"`
	Model     string `toml:"model"`
}

// CacheConfig controls the local response cache.
type CacheConfig struct {
	Disabled  bool     `toml:"disabled"`
	TTL       string   `toml:"ttl"`
	Functions []string `toml:"functions"`
}

// TimeoutDuration returns the parsed call deadline; 0 means none.
// Validate has already rejected unparsable values.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// CacheTTL returns the parsed cache TTL.
func (c *Config) CacheTTL() time.Duration {
	ttl := c.Cache.TTL
	if ttl == "" {
		ttl = DefaultCacheTTL
	}
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return 0
	}
	return d
}

// Cacheable reports whether responses of function may be cached.
func (c *Config) Cacheable(function string) bool {
	if c.Cache.Disabled || c.CacheTTL() <= 0 {
		return false
	}
	for _, fn := range c.Cache.Functions {
		if fn == function {
			return true
		}
	}
	return false
}
