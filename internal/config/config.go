package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/lydakis/dojutsu/internal/paths"
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the config file and returns the parsed Config.
// If the config file does not exist, it returns the defaults (no error).
func Load() (*Config, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a config file at the given path, expands
// ${ENV_VAR} placeholders and fills defaults. $DOJUTSU_SOCKET overrides
// socket_path from the file.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expandConfigEnvVars(cfg)
	if v := os.Getenv(paths.SocketEnv); v != "" {
		cfg.SocketPath = v
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// ExampleConfigPath returns the default config file path (for help messages).
func ExampleConfigPath() string {
	return paths.ConfigFile()
}

func applyDefaults(cfg *Config) {
	if cfg.SocketPath == "" {
		cfg.SocketPath = paths.SocketPath()
	}
	if cfg.Package == "" {
		cfg.Package = DefaultPackage
	}
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	if cfg.Cache.Functions == nil {
		cfg.Cache.Functions = append([]string(nil), DefaultCacheFunctions...)
	}
}

func expandConfigEnvVars(cfg *Config) {
	cfg.SocketPath = expandEnvVars(cfg.SocketPath)
	cfg.Package = expandEnvVars(cfg.Package)
	cfg.Timeout = expandEnvVars(cfg.Timeout)
	cfg.Provider = expandEnvVars(cfg.Provider)
	cfg.Model = expandEnvVars(cfg.Model)
	cfg.Cache.TTL = expandEnvVars(cfg.Cache.TTL)

	for name, p := range cfg.Providers {
		p.APIKeyEnv = expandEnvVars(p.APIKeyEnv)
		p.Model = expandEnvVars(p.Model)
		cfg.Providers[name] = p
	}
}

// expandEnvVars replaces ${VAR_NAME} with the value of the environment variable.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match // leave unresolved vars as-is
	})
}
