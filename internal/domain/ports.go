package domain

import (
	"context"
	"io"
	"time"
)

// BlockSource is the external monotonic block-height oracle. All time-based
// gating in the engine compares against this counter; there are no wall-clock
// timers anywhere in the core.
type BlockSource interface {
	Height() uint64
}

// ValueLedger is the atomic value-transfer primitive supplied by the host.
// Debit moves value from a participant into escrow, Credit moves it back.
// Both either fully apply or fail with no partial effect; Debit fails with
// ErrInsufficientFunds when the participant's balance is too low.
type ValueLedger interface {
	Debit(ctx context.Context, from Principal, amount uint64) error
	Credit(ctx context.Context, to Principal, amount uint64) error
	Balance(ctx context.Context, p Principal) (uint64, error)
}

// MarketStore mirrors market records durably. It observes the engine; the
// engine never reads it back.
type MarketStore interface {
	Upsert(ctx context.Context, m Market) error
	Delete(ctx context.Context, id MarketID) error
	GetByID(ctx context.Context, id MarketID) (Market, error)
	List(ctx context.Context, limit, offset int) ([]Market, error)
}

// BetStore mirrors bet records durably.
type BetStore interface {
	Upsert(ctx context.Context, b Bet) error
	Delete(ctx context.Context, key BetKey) error
	GetByKey(ctx context.Context, key BetKey) (Bet, error)
	ListByMarket(ctx context.Context, id MarketID) ([]Bet, error)
}

// EventStore persists the append-only settlement journal.
type EventStore interface {
	Insert(ctx context.Context, ev Event) error
	ListByMarket(ctx context.Context, id MarketID) ([]Event, error)
}

// SignalBus fans settlement events out to live subscribers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter limits requests per key within a time window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads archive objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
