package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies NEXUS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known NEXUS_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setStr(&cfg.Engine.Owner, "NEXUS_ENGINE_OWNER")
	setUint64(&cfg.Engine.MinBet, "NEXUS_ENGINE_MIN_BET")
	setUint64(&cfg.Engine.MaxBet, "NEXUS_ENGINE_MAX_BET")
	setUint64(&cfg.Engine.ExpiryPeriod, "NEXUS_ENGINE_EXPIRY_PERIOD")
	setInt(&cfg.Engine.FeedBuffer, "NEXUS_ENGINE_FEED_BUFFER")

	// ── Chain ──
	setStr(&cfg.Chain.Source, "NEXUS_CHAIN_SOURCE")
	setStr(&cfg.Chain.RPCURL, "NEXUS_CHAIN_RPC_URL")
	setDuration(&cfg.Chain.PollInterval, "NEXUS_CHAIN_POLL_INTERVAL")
	setUint64(&cfg.Chain.StartHeight, "NEXUS_CHAIN_START_HEIGHT")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "NEXUS_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "NEXUS_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "NEXUS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "NEXUS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "NEXUS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "NEXUS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "NEXUS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "NEXUS_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "NEXUS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "NEXUS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "NEXUS_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "NEXUS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "NEXUS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NEXUS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NEXUS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "NEXUS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "NEXUS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "NEXUS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "NEXUS_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "NEXUS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "NEXUS_S3_REGION")
	setStr(&cfg.S3.Bucket, "NEXUS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "NEXUS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "NEXUS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "NEXUS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "NEXUS_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "NEXUS_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "NEXUS_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "NEXUS_SERVER_RATE_LIMIT_PER_MINUTE")
	setStringSlice(&cfg.Server.CORSOrigins, "NEXUS_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.Mode, "NEXUS_MODE")
	setStr(&cfg.LogLevel, "NEXUS_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
