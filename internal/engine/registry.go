package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// CreateMarket records a new market and returns its id. The close block must
// fall within [now+MinCloseDelay, now+MaxCloseDelay]; the expiry block is
// computed as closeBlock plus the configured expiry period and must land
// strictly after the close block and within the schedule horizon.
func (e *Engine) CreateMarket(ctx context.Context, caller domain.Principal, description string, closeBlock uint64) (domain.MarketID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n := len(description); n < domain.MinDescriptionLen || n > domain.MaxDescriptionLen {
		return 0, fmt.Errorf("engine: description length %d outside [%d, %d]: %w",
			n, domain.MinDescriptionLen, domain.MaxDescriptionLen, domain.ErrInvalidParameter)
	}

	now := e.clock.Height()
	if closeBlock < now+domain.MinCloseDelay || closeBlock > now+domain.MaxCloseDelay {
		return 0, fmt.Errorf("engine: close block %d outside [%d, %d]: %w",
			closeBlock, now+domain.MinCloseDelay, now+domain.MaxCloseDelay, domain.ErrInvalidCloseBlock)
	}

	expiryBlock := closeBlock + e.params.ExpiryPeriod
	if expiryBlock <= closeBlock {
		// uint64 wrap; an expiry that is not strictly after the close
		// block would make the market unresolvable.
		return 0, fmt.Errorf("engine: expiry block overflow: %w", domain.ErrInvalidParameter)
	}
	if expiryBlock > now+domain.MaxScheduleHorizon {
		return 0, fmt.Errorf("engine: expiry block %d beyond horizon %d: %w",
			expiryBlock, now+domain.MaxScheduleHorizon, domain.ErrInvalidParameter)
	}

	e.nextID++
	m := &domain.Market{
		ID:           e.nextID,
		Description:  description,
		Creator:      caller,
		CreatedBlock: now,
		CloseBlock:   closeBlock,
		ExpiryBlock:  expiryBlock,
	}
	e.markets[m.ID] = m

	e.logger.InfoContext(ctx, "market created",
		slog.Uint64("market_id", uint64(m.ID)),
		slog.String("creator", caller.Hex()),
		slog.Uint64("close_block", closeBlock),
		slog.Uint64("expiry_block", expiryBlock),
	)

	snapshot := *m
	e.emit(domain.Event{
		Kind:     domain.EventMarketCreated,
		Block:    now,
		MarketID: m.ID,
		Actor:    caller,
		Market:   &snapshot,
	})
	return m.ID, nil
}

// CleanupMarket deletes an expired market record. Only the creator may clean
// up, and only once the expiry block has been reached.
//
// Outstanding bets are NOT checked: a bet left unclaimed or unrefunded at
// cleanup time loses its claim/refund path because both look the market up
// first. The host contract this mirrors behaves the same way; drain bets
// before cleanup.
func (e *Engine) CleanupMarket(ctx context.Context, caller domain.Principal, id domain.MarketID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[id]
	if !ok {
		return domain.ErrMarketNotFound
	}

	now := e.clock.Height()
	if now < m.ExpiryBlock {
		return fmt.Errorf("engine: cleanup at block %d before expiry %d: %w",
			now, m.ExpiryBlock, domain.ErrMarketNotExpired)
	}
	if caller != m.Creator {
		return fmt.Errorf("engine: cleanup by non-creator %s: %w", caller.Hex(), domain.ErrUnauthorized)
	}

	delete(e.markets, id)

	e.logger.InfoContext(ctx, "market cleaned up",
		slog.Uint64("market_id", uint64(id)),
		slog.String("creator", caller.Hex()),
	)

	e.emit(domain.Event{
		Kind:     domain.EventMarketCleaned,
		Block:    now,
		MarketID: id,
		Actor:    caller,
	})
	return nil
}
