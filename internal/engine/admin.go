package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// SetExpiryPeriod changes the default offset added to a new market's close
// block to compute its expiry block. Owner only. Markets created earlier keep
// their original expiry.
func (e *Engine) SetExpiryPeriod(ctx context.Context, caller domain.Principal, period uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.Owner {
		return domain.ErrUnauthorized
	}
	if period < domain.MinExpiryPeriod || period > domain.MaxExpiryPeriod {
		return fmt.Errorf("engine: expiry period %d outside [%d, %d]: %w",
			period, domain.MinExpiryPeriod, domain.MaxExpiryPeriod, domain.ErrInvalidParameter)
	}

	e.params.ExpiryPeriod = period
	e.emitParams(ctx, caller, "expiry_period")
	return nil
}

// SetMinBet changes the minimum stake per bet. Owner only; must stay strictly
// below the current maximum.
func (e *Engine) SetMinBet(ctx context.Context, caller domain.Principal, minBet uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.Owner {
		return domain.ErrUnauthorized
	}
	if minBet == 0 {
		return fmt.Errorf("engine: min bet must be positive: %w", domain.ErrInvalidParameter)
	}
	if minBet >= e.params.MaxBet {
		return fmt.Errorf("engine: min bet %d not below max bet %d: %w",
			minBet, e.params.MaxBet, domain.ErrInvalidParameter)
	}

	e.params.MinBet = minBet
	e.emitParams(ctx, caller, "min_bet")
	return nil
}

// SetMaxBet changes the maximum cumulative stake per (market, user). Owner
// only; must stay strictly above the current minimum and within the ceiling.
func (e *Engine) SetMaxBet(ctx context.Context, caller domain.Principal, maxBet uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.Owner {
		return domain.ErrUnauthorized
	}
	if maxBet <= e.params.MinBet {
		return fmt.Errorf("engine: max bet %d not above min bet %d: %w",
			maxBet, e.params.MinBet, domain.ErrInvalidParameter)
	}
	if maxBet > domain.MaxBetCeiling {
		return fmt.Errorf("engine: max bet %d above ceiling %d: %w",
			maxBet, domain.MaxBetCeiling, domain.ErrInvalidParameter)
	}

	e.params.MaxBet = maxBet
	e.emitParams(ctx, caller, "max_bet")
	return nil
}

// TransferOwnership replaces the administrative owner in a single step. There
// is no confirmation handshake: transferring to an identity nobody controls
// permanently locks the owner-gated setters.
func (e *Engine) TransferOwnership(ctx context.Context, caller domain.Principal, newOwner domain.Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.Owner {
		return domain.ErrUnauthorized
	}
	if newOwner == e.params.Owner {
		return fmt.Errorf("engine: new owner equals current owner: %w", domain.ErrInvalidParameter)
	}

	e.params.Owner = newOwner

	e.logger.InfoContext(ctx, "ownership transferred",
		slog.String("from", caller.Hex()),
		slog.String("to", newOwner.Hex()),
	)

	snapshot := e.params
	e.emit(domain.Event{
		Kind:   domain.EventOwnerTransferred,
		Block:  e.clock.Height(),
		Actor:  caller,
		Params: &snapshot,
	})
	return nil
}

// emitParams logs and journals a parameter change. Called with the mutex held.
func (e *Engine) emitParams(ctx context.Context, caller domain.Principal, field string) {
	e.logger.InfoContext(ctx, "params updated",
		slog.String("field", field),
		slog.Uint64("min_bet", e.params.MinBet),
		slog.Uint64("max_bet", e.params.MaxBet),
		slog.Uint64("expiry_period", e.params.ExpiryPeriod),
	)

	snapshot := e.params
	e.emit(domain.Event{
		Kind:   domain.EventParamsUpdated,
		Block:  e.clock.Height(),
		Actor:  caller,
		Params: &snapshot,
	})
}
