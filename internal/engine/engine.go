// Package engine implements the escrow and settlement core for binary-outcome
// prediction markets: market lifecycle, per-user bet accounting, resolution,
// claims, and refunds. Payouts are principal-return only; the losing pool is
// forfeited, never redistributed.
//
// Execution is strictly serial. Every public operation acquires the engine
// mutex, runs validation, mutation, and the paired value transfer to
// completion, and only then releases it. A failed call mutates nothing.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// Engine owns the market map, the bet map, and the administrative parameters.
// Block-height gating uses the supplied BlockSource; value moves through the
// supplied ValueLedger.
type Engine struct {
	mu     sync.Mutex
	clock  domain.BlockSource
	ledger domain.ValueLedger
	logger *slog.Logger

	params  domain.Params
	markets map[domain.MarketID]*domain.Market
	bets    map[domain.BetKey]*domain.Bet
	nextID  domain.MarketID

	events chan domain.Event // nil unless WithEventFeed was used
}

// Option configures optional Engine behaviour.
type Option func(*Engine)

// WithEventFeed attaches a buffered journal feed to the engine. Events for
// successful operations are sent on the channel returned by Events; if the
// consumer falls behind the buffer, events are dropped with a warning rather
// than stalling the serial core.
func WithEventFeed(buffer int) Option {
	return func(e *Engine) {
		e.events = make(chan domain.Event, buffer)
	}
}

// New creates an Engine with the given collaborators and starting parameters.
func New(clock domain.BlockSource, ledger domain.ValueLedger, params domain.Params, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		clock:   clock,
		ledger:  ledger,
		logger:  logger.With(slog.String("component", "engine")),
		params:  params,
		markets: make(map[domain.MarketID]*domain.Market),
		bets:    make(map[domain.BetKey]*domain.Bet),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the journal feed, or nil when no feed was configured.
func (e *Engine) Events() <-chan domain.Event {
	return e.events
}

// CloseFeed closes the journal feed after the last operation has completed.
// Call only during shutdown, once no further operations will run.
func (e *Engine) CloseFeed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.events != nil {
		close(e.events)
		e.events = nil
	}
}

// emit sends ev on the journal feed without blocking. Called with the engine
// mutex held, after the operation's mutation has committed.
func (e *Engine) emit(ev domain.Event) {
	if e.events == nil {
		return
	}
	ev.ID = uuid.NewString()
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event feed full, dropping event",
			slog.String("kind", string(ev.Kind)),
			slog.Uint64("market_id", uint64(ev.MarketID)),
		)
	}
}

// Height returns the current block height reported by the clock.
func (e *Engine) Height() uint64 {
	return e.clock.Height()
}

// Params returns a copy of the current administrative parameters.
func (e *Engine) Params() domain.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// GetMarket returns a copy of the market record for id.
func (e *Engine) GetMarket(ctx context.Context, id domain.MarketID) (domain.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return *m, nil
}

// ListMarkets returns copies of all live market records in id order.
func (e *Engine) ListMarkets(ctx context.Context) []domain.Market {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Market, 0, len(e.markets))
	for id := domain.MarketID(1); id <= e.nextID; id++ {
		if m, ok := e.markets[id]; ok {
			out = append(out, *m)
		}
	}
	return out
}

// GetBet returns a copy of the bet recorded for (id, user).
func (e *Engine) GetBet(ctx context.Context, id domain.MarketID, user domain.Principal) (domain.Bet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.bets[domain.BetKey{Market: id, User: user}]
	if !ok {
		return domain.Bet{}, domain.ErrBetNotFound
	}
	return *b, nil
}
