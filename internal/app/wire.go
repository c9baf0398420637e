package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/fhayvy/NexusForecast/internal/blob/s3"
	"github.com/fhayvy/NexusForecast/internal/cache/redis"
	"github.com/fhayvy/NexusForecast/internal/chain"
	"github.com/fhayvy/NexusForecast/internal/config"
	"github.com/fhayvy/NexusForecast/internal/domain"
	"github.com/fhayvy/NexusForecast/internal/store/postgres"
	"github.com/fhayvy/NexusForecast/internal/treasury"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function. Optional dependencies are nil when the corresponding service is
// not configured.
type Dependencies struct {
	// Clock is the block-height oracle driving every lifecycle decision.
	Clock domain.BlockSource
	// ManualClock is non-nil when the manual source is selected; it exposes
	// the operator advance surface.
	ManualClock *chain.ManualSource
	// EthClock is non-nil when the ethereum source is selected; its Run
	// method polls the chain head.
	EthClock *chain.EthereumSource

	// Ledger holds participant funds and the escrow pool.
	Ledger *treasury.Memory

	// Stores mirror engine state into PostgreSQL (nil when disabled).
	MarketStore domain.MarketStore
	BetStore    domain.BetStore
	EventStore  domain.EventStore

	// Redis-backed event fan-out and API rate limiting (nil when disabled).
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// BlobWriter archives settled markets to object storage (nil when
	// disabled).
	BlobWriter domain.BlobWriter
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Ledger: treasury.NewMemory(),
	}

	// --- Block source ---
	switch cfg.Chain.Source {
	case "ethereum":
		eth, err := chain.DialEthereum(ctx, cfg.Chain.RPCURL, cfg.Chain.PollInterval.Duration, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: ethereum source: %w", err)
		}
		closers = append(closers, eth.Close)
		deps.EthClock = eth
		deps.Clock = eth
	default:
		manual := chain.NewManualSource(cfg.Chain.StartHeight)
		deps.ManualClock = manual
		deps.Clock = manual
	}

	// --- PostgreSQL mirror ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.BetStore = postgres.NewBetStore(pool)
		deps.EventStore = postgres.NewEventStore(pool)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- S3 settlement archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	return deps, cleanup, nil
}
