package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

func scanBetRow(row pgx.Row) (domain.Bet, error) {
	var b domain.Bet
	var marketID, amount, updatedBlock int64
	var bettor string

	err := row.Scan(&marketID, &bettor, &amount, &b.Prediction, &updatedBlock)
	if err != nil {
		return domain.Bet{}, err
	}
	b.Key = domain.BetKey{
		Market: domain.MarketID(marketID),
		User:   common.HexToAddress(bettor),
	}
	b.Amount = uint64(amount)
	b.UpdatedBlock = uint64(updatedBlock)
	return b, nil
}

// Upsert inserts or replaces a bet record.
func (s *BetStore) Upsert(ctx context.Context, b domain.Bet) error {
	const query = `
		INSERT INTO bets (market_id, bettor, amount, prediction, updated_block, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (market_id, bettor) DO UPDATE SET
			amount        = EXCLUDED.amount,
			prediction    = EXCLUDED.prediction,
			updated_block = EXCLUDED.updated_block,
			updated_at    = NOW()`

	_, err := s.pool.Exec(ctx, query,
		int64(b.Key.Market), b.Key.User.Hex(),
		int64(b.Amount), b.Prediction, int64(b.UpdatedBlock),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert bet (%d, %s): %w", b.Key.Market, b.Key.User.Hex(), err)
	}
	return nil
}

// Delete removes a bet record.
func (s *BetStore) Delete(ctx context.Context, key domain.BetKey) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM bets WHERE market_id = $1 AND bettor = $2`,
		int64(key.Market), key.User.Hex())
	if err != nil {
		return fmt.Errorf("postgres: delete bet (%d, %s): %w", key.Market, key.User.Hex(), err)
	}
	return nil
}

// GetByKey returns the bet for (market, user).
func (s *BetStore) GetByKey(ctx context.Context, key domain.BetKey) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT market_id, bettor, amount, prediction, updated_block
		 FROM bets WHERE market_id = $1 AND bettor = $2`,
		int64(key.Market), key.User.Hex())

	b, err := scanBetRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrBetNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet (%d, %s): %w", key.Market, key.User.Hex(), err)
	}
	return b, nil
}

// ListByMarket returns all bets recorded against a market.
func (s *BetStore) ListByMarket(ctx context.Context, id domain.MarketID) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, bettor, amount, prediction, updated_block
		 FROM bets WHERE market_id = $1 ORDER BY bettor`,
		int64(id))
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for market %d: %w", id, err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBetRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bets for market %d: %w", id, err)
	}
	return bets, nil
}

var _ domain.BetStore = (*BetStore)(nil)
