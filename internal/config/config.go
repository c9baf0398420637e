// Package config defines the top-level configuration for the NexusForecast
// settlement engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by NEXUS_* environment variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Chain    ChainConfig    `toml:"chain"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the initial administrative parameters. Owner is the hex
// address that controls the owner-gated setters until ownership is
// transferred.
type EngineConfig struct {
	Owner        string `toml:"owner"`
	MinBet       uint64 `toml:"min_bet"`
	MaxBet       uint64 `toml:"max_bet"`
	ExpiryPeriod uint64 `toml:"expiry_period"`
	// FeedBuffer sizes the journal feed between the engine and the recorder.
	FeedBuffer int `toml:"feed_buffer"`
}

// ChainConfig selects and configures the block-height oracle.
type ChainConfig struct {
	// Source is "manual" (operator-advanced counter) or "ethereum"
	// (JSON-RPC polling).
	Source       string   `toml:"source"`
	RPCURL       string   `toml:"rpc_url"`
	PollInterval duration `toml:"poll_interval"`
	// StartHeight seeds the manual source.
	StartHeight uint64 `toml:"start_height"`
}

// PostgresConfig holds PostgreSQL connection parameters for the durable
// market/bet mirror and event journal.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for event fan-out and API
// rate limiting.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the settlement
// archive written when markets are cleaned up.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey enables bearer/X-API-Key auth when non-empty.
	APIKey string `toml:"api_key"`
	// RateLimitPerMinute caps requests per client IP. Zero disables the
	// limiter; it also requires Redis to be enabled.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			MinBet:       domain.DefaultMinBet,
			MaxBet:       domain.DefaultMaxBet,
			ExpiryPeriod: domain.DefaultExpiryPeriod,
			FeedBuffer:   1024,
		},
		Chain: ChainConfig{
			Source:       "manual",
			PollInterval: duration{5 * time.Second},
			StartHeight:  1,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "nexusforecast",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "nexusforecast-archive",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:               8000,
			CORSOrigins:        []string{"http://localhost:3000"},
			RateLimitPerMinute: 0,
		},
		Mode:     "standalone",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"standalone": true,
	"full":       true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validChainSources enumerates the accepted values for Chain.Source.
var validChainSources = map[string]bool{
	"manual":   true,
	"ethereum": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: standalone, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Engine
	if c.Engine.Owner == "" {
		errs = append(errs, "engine: owner must be set")
	} else if _, ok := domain.ParsePrincipal(c.Engine.Owner); !ok {
		errs = append(errs, fmt.Sprintf("engine: owner %q is not a valid address", c.Engine.Owner))
	}
	if c.Engine.MinBet == 0 {
		errs = append(errs, "engine: min_bet must be positive")
	}
	if c.Engine.MinBet >= c.Engine.MaxBet {
		errs = append(errs, fmt.Sprintf("engine: min_bet %d must be below max_bet %d", c.Engine.MinBet, c.Engine.MaxBet))
	}
	if c.Engine.MaxBet > domain.MaxBetCeiling {
		errs = append(errs, fmt.Sprintf("engine: max_bet %d above ceiling %d", c.Engine.MaxBet, domain.MaxBetCeiling))
	}
	if c.Engine.ExpiryPeriod < domain.MinExpiryPeriod || c.Engine.ExpiryPeriod > domain.MaxExpiryPeriod {
		errs = append(errs, fmt.Sprintf("engine: expiry_period %d outside [%d, %d]",
			c.Engine.ExpiryPeriod, domain.MinExpiryPeriod, domain.MaxExpiryPeriod))
	}
	if c.Engine.FeedBuffer < 1 {
		errs = append(errs, "engine: feed_buffer must be >= 1")
	}

	// Chain
	if !validChainSources[strings.ToLower(c.Chain.Source)] {
		errs = append(errs, fmt.Sprintf("chain: unknown source %q (valid: manual, ethereum)", c.Chain.Source))
	}
	if strings.ToLower(c.Chain.Source) == "ethereum" {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url is required for the ethereum source")
		}
		if c.Chain.PollInterval.Duration <= 0 {
			errs = append(errs, "chain: poll_interval must be positive")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be within [0, pool_max_conns]")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, "server: rate_limit_per_minute must be >= 0")
	}
	if c.Server.RateLimitPerMinute > 0 && !c.Redis.Enabled {
		errs = append(errs, "server: rate limiting requires redis to be enabled")
	}

	// Mode cross-checks: standalone runs without external services.
	if strings.ToLower(c.Mode) == "standalone" {
		if strings.ToLower(c.Chain.Source) != "manual" {
			errs = append(errs, "standalone mode requires chain.source = \"manual\"")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
