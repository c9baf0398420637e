package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// ResolveMarket records the outcome of a closed, unexpired market. Any caller
// may resolve any eligible market; the permissionless-oracle behaviour of the
// host contract is reproduced deliberately.
func (e *Engine) ResolveMarket(ctx context.Context, caller domain.Principal, id domain.MarketID, outcome bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[id]
	if !ok {
		return domain.ErrMarketNotFound
	}
	if m.Resolved() {
		return domain.ErrMarketAlreadyResolved
	}

	now := e.clock.Height()
	if now < m.CloseBlock {
		return fmt.Errorf("engine: resolve at block %d before close %d: %w", now, m.CloseBlock, domain.ErrMarketNotClosed)
	}
	if now >= m.ExpiryBlock {
		return fmt.Errorf("engine: resolve at block %d past expiry %d: %w", now, m.ExpiryBlock, domain.ErrMarketExpired)
	}

	o := outcome
	m.Outcome = &o

	e.logger.InfoContext(ctx, "market resolved",
		slog.Uint64("market_id", uint64(id)),
		slog.String("resolver", caller.Hex()),
		slog.Bool("outcome", outcome),
	)

	snapshot := *m
	e.emit(domain.Event{
		Kind:     domain.EventMarketResolved,
		Block:    now,
		MarketID: id,
		Actor:    caller,
		Market:   &snapshot,
	})
	return nil
}

// ClaimWinnings returns the caller's principal for a correct prediction on a
// resolved market. Claims are valid only strictly before the expiry block.
// On success the bet is deleted; a second claim fails with ErrBetNotFound.
func (e *Engine) ClaimWinnings(ctx context.Context, caller domain.Principal, id domain.MarketID) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[id]
	if !ok {
		return 0, domain.ErrMarketNotFound
	}

	key := domain.BetKey{Market: id, User: caller}
	bet, ok := e.bets[key]
	if !ok {
		return 0, domain.ErrBetNotFound
	}

	if !m.Resolved() {
		return 0, domain.ErrMarketNotResolved
	}
	now := e.clock.Height()
	if now >= m.ExpiryBlock {
		return 0, fmt.Errorf("engine: claim at block %d past expiry %d: %w", now, m.ExpiryBlock, domain.ErrMarketExpired)
	}
	if bet.Prediction != *m.Outcome {
		return 0, domain.ErrBetLost
	}

	// Exactly the principal comes back; nothing from the losing pool.
	if err := e.ledger.Credit(ctx, caller, bet.Amount); err != nil {
		return 0, fmt.Errorf("engine: escrow credit: %w", err)
	}
	amount := bet.Amount
	delete(e.bets, key)

	e.logger.InfoContext(ctx, "winnings claimed",
		slog.Uint64("market_id", uint64(id)),
		slog.String("user", caller.Hex()),
		slog.Uint64("amount", amount),
	)

	e.emit(domain.Event{
		Kind:     domain.EventWinningsClaimed,
		Block:    now,
		MarketID: id,
		Actor:    caller,
		Amount:   amount,
	})
	return amount, nil
}

// RefundBet returns the caller's stake from a market that reached its expiry
// block without ever being resolved. Resolved markets are never refundable.
// On success the bet is deleted.
func (e *Engine) RefundBet(ctx context.Context, caller domain.Principal, id domain.MarketID) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.markets[id]
	if !ok {
		return 0, domain.ErrMarketNotFound
	}

	key := domain.BetKey{Market: id, User: caller}
	bet, ok := e.bets[key]
	if !ok {
		return 0, domain.ErrBetNotFound
	}

	now := e.clock.Height()
	if now < m.ExpiryBlock {
		return 0, fmt.Errorf("engine: refund at block %d before expiry %d: %w", now, m.ExpiryBlock, domain.ErrMarketNotExpired)
	}
	if m.Resolved() {
		return 0, domain.ErrMarketAlreadyResolved
	}

	if err := e.ledger.Credit(ctx, caller, bet.Amount); err != nil {
		return 0, fmt.Errorf("engine: escrow credit: %w", err)
	}
	amount := bet.Amount
	delete(e.bets, key)

	e.logger.InfoContext(ctx, "bet refunded",
		slog.Uint64("market_id", uint64(id)),
		slog.String("user", caller.Hex()),
		slog.Uint64("amount", amount),
	)

	e.emit(domain.Event{
		Kind:     domain.EventBetRefunded,
		Block:    now,
		MarketID: id,
		Actor:    caller,
		Amount:   amount,
	})
	return amount, nil
}
