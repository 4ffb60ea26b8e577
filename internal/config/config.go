// Package config defines the pokepack service configuration and its loader.
package config

import (
	"context"
	"time"
)

// Config contains process configuration. Keys are flat so every field can be
// set from the environment as POKEPACK_<KEY>.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":3001".
	Addr string `koanf:"addr"`

	// CORSOrigin is the single browser origin allowed to call the API.
	CORSOrigin string `koanf:"cors_origin"`

	// RateLimitRPS and RateLimitBurst bound requests per client IP on /api/.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// AdminToken guards /api/admin routes. Empty disables them with a 500.
	AdminToken string `koanf:"admin_token"`

	// PackCost is the coin price of one pack.
	PackCost int64 `koanf:"pack_cost"`

	// StartingCoins is the balance of a freshly registered user.
	StartingCoins int64 `koanf:"starting_coins"`

	// DefaultSetID is used when a pack-open request names no set.
	DefaultSetID string `koanf:"default_set_id"`

	// DatabaseDSN selects the postgres store; empty keeps everything in memory.
	DatabaseDSN string `koanf:"database_dsn"`

	// RedisAddr selects the redis challenge registry; empty keeps it in memory.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// TCGBaseURL and TCGAPIKey address the card catalog API.
	TCGBaseURL string `koanf:"tcg_base_url"`
	TCGAPIKey  string `koanf:"tcg_api_key"`

	// PokeAPIBaseURL addresses the silhouette subject source.
	PokeAPIBaseURL string `koanf:"pokeapi_base_url"`

	// UpstreamTimeout bounds a single upstream HTTP attempt.
	UpstreamTimeout time.Duration `koanf:"upstream_timeout"`

	// CardPoolTTL is how long built rarity pools stay fresh in memory.
	CardPoolTTL time.Duration `koanf:"card_pool_ttl"`

	// PoolCacheSize caps the number of sets held in the pool cache.
	PoolCacheSize int `koanf:"pool_cache_size"`

	// CacheDir holds catalog snapshot files.
	CacheDir string `koanf:"cache_dir"`

	// PacksLocalFile overrides the pack list.
	PacksLocalFile string `koanf:"packs_local_file"`

	// S3 settings; a non-empty bucket stores catalog snapshots in object storage.
	S3Bucket    string `koanf:"s3_bucket"`
	S3Prefix    string `koanf:"s3_prefix"`
	S3Region    string `koanf:"s3_region"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`

	// ChallengeTTL is the lifetime of a silhouette challenge.
	ChallengeTTL time.Duration `koanf:"challenge_ttl"`

	// ChallengeMaxEntries caps the in-memory challenge registry.
	ChallengeMaxEntries int `koanf:"challenge_max_entries"`

	// QueueSize and WorkerCount size the background catalog job pool.
	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`

	// WarmConcurrency bounds parallel set fetches during a synchronous warm-up.
	WarmConcurrency int `koanf:"warm_concurrency"`

	// WarmOnStart queues a background warm-up of every listed set after boot.
	WarmOnStart bool `koanf:"warm_on_start"`

	// MemoryModes overrides entries of the memory-match difficulty table.
	MemoryModes map[string]MemoryMode `koanf:"memory_modes"`
}

// MemoryMode mirrors one row of the memory-match difficulty table.
type MemoryMode struct {
	Pairs               int     `koanf:"pairs"`
	TotalTime           int     `koanf:"total_time"`
	BasePerPair         float64 `koanf:"base_per_pair"`
	TimeBonusMultiplier float64 `koanf:"time_bonus_multiplier"`
	TimeRule            string  `koanf:"time_rule"` // round, floor or double
	PerfectBonus        int64   `koanf:"perfect_bonus"`
	ComboStep           float64 `koanf:"combo_step"`
	ComboCap            float64 `koanf:"combo_cap"`
}

// New creates a Config holding the defaults. The context is reserved for
// loaders that need it.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":3001",
		CORSOrigin:          "http://localhost:5173",
		RateLimitRPS:        20,
		RateLimitBurst:      40,
		PackCost:            100,
		StartingCoins:       1000,
		DefaultSetID:        "swsh1",
		RedisDB:             0,
		TCGBaseURL:          "https://api.pokemontcg.io/v2",
		PokeAPIBaseURL:      "https://pokeapi.co/api/v2",
		UpstreamTimeout:     30 * time.Second,
		CardPoolTTL:         12 * time.Hour,
		PoolCacheSize:       256,
		CacheDir:            "cache",
		PacksLocalFile:      "packs.local.json",
		S3Region:            "us-east-1",
		ChallengeTTL:        10 * time.Minute,
		ChallengeMaxEntries: 10_000,
		QueueSize:           64,
		WorkerCount:         2,
		WarmConcurrency:     4,
		WarmOnStart:         true,
	}
}
