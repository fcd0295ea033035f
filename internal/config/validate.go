package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Validate checks configuration invariants and returns actionable errors.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var errs []error

	if strings.TrimSpace(cfg.SocketPath) == "" {
		errs = append(errs, errors.New("socket_path: must not be empty"))
	} else if !filepath.IsAbs(cfg.SocketPath) {
		errs = append(errs, fmt.Errorf("socket_path: must be absolute, got %q", cfg.SocketPath))
	}

	if strings.TrimSpace(cfg.Package) == "" {
		errs = append(errs, errors.New("package: must not be empty"))
	}

	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("timeout: invalid duration %q: %w", cfg.Timeout, err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("timeout: must be >= 0, got %q", cfg.Timeout))
		}
	}

	if cfg.Cache.TTL != "" {
		ttl, err := time.ParseDuration(cfg.Cache.TTL)
		if err != nil {
			errs = append(errs, fmt.Errorf("cache.ttl: invalid duration %q: %w", cfg.Cache.TTL, err))
		} else if ttl <= 0 {
			errs = append(errs, fmt.Errorf("cache.ttl: must be > 0, got %q", cfg.Cache.TTL))
		}
	}
	for i, fn := range cfg.Cache.Functions {
		if strings.TrimSpace(fn) == "" {
			errs = append(errs, fmt.Errorf("cache.functions[%d]: must not be empty", i))
		}
	}

	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := cfg.Providers[name]
		if p.APIKeyEnv != "" && strings.ContainsAny(p.APIKeyEnv, " =$") {
			errs = append(errs, fmt.Errorf("providers.%s.api_key_env: invalid variable name %q", name, p.APIKeyEnv))
		}
	}

	return errors.Join(errs...)
}
