package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "POKEPACK_"
	envConfigPath = "POKEPACK_CONFIG"
)

// legacyEnv maps the bare variables older deployments set to config keys.
var legacyEnv = map[string]string{ //nolint:gochecknoglobals // static lookup table
	"PORT":                "addr",
	"PACK_COST":           "pack_cost",
	"ADMIN_TOKEN":         "admin_token",
	"POKEMON_TCG_API_KEY": "tcg_api_key",
	"FRONTEND_URL":        "cors_origin",
	"CARD_POOL_TTL_MS":    "card_pool_ttl",
	"DATABASE_URL":        "database_dsn",
	"REDIS_URL":           "redis_addr",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if POKEPACK_CONFIG is set
//  3. legacy bare env vars (PORT, PACK_COST, ADMIN_TOKEN, ...)
//  4. env (prefix POKEPACK_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	legacy := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		target, ok := legacyEnv[key]
		if !ok || value == "" {
			return "", nil
		}
		switch key {
		case "PORT":
			if !strings.Contains(value, ":") {
				value = ":" + value
			}
		case "CARD_POOL_TTL_MS":
			value += "ms"
		}
		return target, value
	})
	if err := k.Load(legacy, nil); err != nil {
		return nil, fmt.Errorf("%w: legacy env: %w", ErrLoadConfig, err)
	}

	// POKEPACK_PACK_COST -> pack_cost. Underscores are kept to match the flat koanf tags.
	prefixed := env.Provider(envPrefix, ".", func(s string) string {
		if s == envConfigPath {
			return ""
		}
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(prefixed, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that would make the service misbehave.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.PackCost <= 0:
		return fmt.Errorf("%w: pack_cost must be positive", ErrInvalidConfig)
	case c.StartingCoins < 0:
		return fmt.Errorf("%w: starting_coins must not be negative", ErrInvalidConfig)
	case c.CardPoolTTL <= 0:
		return fmt.Errorf("%w: card_pool_ttl must be positive", ErrInvalidConfig)
	case c.ChallengeTTL <= 0:
		return fmt.Errorf("%w: challenge_ttl must be positive", ErrInvalidConfig)
	case c.UpstreamTimeout <= 0:
		return fmt.Errorf("%w: upstream_timeout must be positive", ErrInvalidConfig)
	}
	for name, m := range c.MemoryModes {
		if m.Pairs <= 0 {
			return fmt.Errorf("%w: memory_modes.%s.pairs must be positive", ErrInvalidConfig, name)
		}
		switch m.TimeRule {
		case "", "round", "floor", "double":
		default:
			return fmt.Errorf("%w: memory_modes.%s.time_rule must be round, floor or double", ErrInvalidConfig, name)
		}
	}
	return nil
}
