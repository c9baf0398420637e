package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// PlaceBet stakes amount on prediction in the given market. Repeated bets by
// the same user accumulate the stake; the stored prediction is overwritten
// unconditionally by the latest call. The ledger transfer into escrow and the
// bet-map update are all-or-nothing: if the debit fails, nothing is recorded.
func (e *Engine) PlaceBet(ctx context.Context, caller domain.Principal, id domain.MarketID, prediction bool, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[id]
	if !ok {
		return domain.ErrMarketNotFound
	}

	if amount < e.params.MinBet {
		return fmt.Errorf("engine: bet %d below minimum %d: %w", amount, e.params.MinBet, domain.ErrBetTooLow)
	}
	if amount > e.params.MaxBet {
		return fmt.Errorf("engine: bet %d above maximum %d: %w", amount, e.params.MaxBet, domain.ErrBetTooHigh)
	}

	key := domain.BetKey{Market: id, User: caller}
	existing := e.bets[key] // nil when this is the user's first bet
	if existing != nil && existing.Amount+amount > e.params.MaxBet {
		return fmt.Errorf("engine: cumulative stake %d above maximum %d: %w",
			existing.Amount+amount, e.params.MaxBet, domain.ErrBetTooHigh)
	}

	now := e.clock.Height()
	if now >= m.CloseBlock {
		return fmt.Errorf("engine: bet at block %d, market closed at %d: %w", now, m.CloseBlock, domain.ErrMarketClosed)
	}
	if m.Resolved() {
		return domain.ErrMarketAlreadyResolved
	}

	// Move the stake into escrow before touching the bet map, so a failed
	// transfer leaves the ledger entry untouched.
	if err := e.ledger.Debit(ctx, caller, amount); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return err
		}
		return fmt.Errorf("engine: escrow debit: %w", err)
	}

	if existing == nil {
		existing = &domain.Bet{Key: key}
		e.bets[key] = existing
	}
	existing.Amount += amount
	existing.Prediction = prediction
	existing.UpdatedBlock = now

	e.logger.InfoContext(ctx, "bet placed",
		slog.Uint64("market_id", uint64(id)),
		slog.String("user", caller.Hex()),
		slog.Uint64("amount", amount),
		slog.Uint64("stake", existing.Amount),
		slog.Bool("prediction", prediction),
	)

	snapshot := *existing
	e.emit(domain.Event{
		Kind:     domain.EventBetPlaced,
		Block:    now,
		MarketID: id,
		Actor:    caller,
		Amount:   amount,
		Bet:      &snapshot,
	})
	return nil
}
