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

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketSelectCols = `id, description, creator, created_block, close_block, expiry_block, outcome`

func scanMarketRow(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var id, createdBlock, closeBlock, expiryBlock int64
	var creator string

	err := row.Scan(&id, &m.Description, &creator, &createdBlock, &closeBlock, &expiryBlock, &m.Outcome)
	if err != nil {
		return domain.Market{}, err
	}
	m.ID = domain.MarketID(id)
	m.Creator = common.HexToAddress(creator)
	m.CreatedBlock = uint64(createdBlock)
	m.CloseBlock = uint64(closeBlock)
	m.ExpiryBlock = uint64(expiryBlock)
	return m, nil
}

// Upsert inserts or replaces a market record.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (id, description, creator, created_block, close_block, expiry_block, outcome, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE SET
			description   = EXCLUDED.description,
			creator       = EXCLUDED.creator,
			created_block = EXCLUDED.created_block,
			close_block   = EXCLUDED.close_block,
			expiry_block  = EXCLUDED.expiry_block,
			outcome       = EXCLUDED.outcome,
			updated_at    = NOW()`

	_, err := s.pool.Exec(ctx, query,
		int64(m.ID), m.Description, m.Creator.Hex(),
		int64(m.CreatedBlock), int64(m.CloseBlock), int64(m.ExpiryBlock),
		m.Outcome,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %d: %w", m.ID, err)
	}
	return nil
}

// Delete removes a market record. Deleting an unknown id is not an error; the
// mirror may simply never have seen it.
func (s *MarketStore) Delete(ctx context.Context, id domain.MarketID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM markets WHERE id = $1`, int64(id)); err != nil {
		return fmt.Errorf("postgres: delete market %d: %w", id, err)
	}
	return nil
}

// GetByID returns the market with the given id.
func (s *MarketStore) GetByID(ctx context.Context, id domain.MarketID) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE id = $1`, int64(id))

	m, err := scanMarketRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrMarketNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

// List returns markets ordered by id.
func (s *MarketStore) List(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketSelectCols+` FROM markets ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarketRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	return markets, nil
}

var _ domain.MarketStore = (*MarketStore)(nil)
