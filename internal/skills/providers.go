package skills

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lydakis/dojutsu/internal/config"
)

// ErrUsage marks caller mistakes detected before any daemon call.
var ErrUsage = errors.New("usage error")

// providerKeyEnv maps each provider the runner supports to the environment
// variable holding its API key.
var providerKeyEnv = map[string]string{
	"groq":        "GROQ_API_KEY",
	"openai":      "OPENAI_API_KEY",
	"anthropic":   "ANTHROPIC_API_KEY",
	"mistral":     "MISTRAL_API_KEY",
	"openrouter":  "OPENROUTER_API_KEY",
	"huggingface": "HUGGINGFACE_API_KEY",
}

// Providers returns the known provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(providerKeyEnv))
	for name := range providerKeyEnv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeyEnv returns the environment variable that holds provider's key.
// A config override wins over the built-in table.
func KeyEnv(cfg *config.Config, provider string) (string, bool) {
	if cfg != nil {
		if p, ok := cfg.Providers[provider]; ok && p.APIKeyEnv != "" {
			return p.APIKeyEnv, true
		}
	}
	env, ok := providerKeyEnv[provider]
	return env, ok
}

// ResolveKey picks the API key for provider: an explicit value first, then
// the provider's environment variable. Placeholder keys ("gsk_XXXX...") count
// as unset.
func ResolveKey(cfg *config.Config, provider, explicit string) (string, error) {
	if explicit != "" && !strings.Contains(explicit, "XXXX") {
		return explicit, nil
	}
	env, ok := KeyEnv(cfg, provider)
	if !ok {
		return "", fmt.Errorf("%w: unknown provider %q (known: %s)", ErrUsage, provider, strings.Join(Providers(), ", "))
	}
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("%w: API key required, pass --api-key or set %s", ErrUsage, env)
	}
	return key, nil
}

// ResolveModel returns the model to request: explicit, then the provider's
// configured model, then the top-level model. Empty lets the daemon choose.
func ResolveModel(cfg *config.Config, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg == nil {
		return ""
	}
	if p, ok := cfg.Providers[provider]; ok && p.Model != "" {
		return p.Model
	}
	return cfg.Model
}
