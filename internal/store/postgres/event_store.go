package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. Events are
// append-only; the full event (including snapshots) is kept as JSONB
// alongside the indexed columns.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Insert appends one journal entry.
func (s *EventStore) Insert(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("postgres: marshal event %s: %w", ev.ID, err)
	}

	const query = `
		INSERT INTO events (id, kind, block, market_id, actor, amount, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		ev.ID, string(ev.Kind), int64(ev.Block),
		int64(ev.MarketID), ev.Actor.Hex(), int64(ev.Amount), payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert event %s: %w", ev.ID, err)
	}
	return nil
}

// ListByMarket returns the journal for one market in recording order.
func (s *EventStore) ListByMarket(ctx context.Context, id domain.MarketID) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM events WHERE market_id = $1 ORDER BY recorded_at, id`,
		int64(id))
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for market %d: %w", id, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		var ev domain.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events for market %d: %w", id, err)
	}
	return events, nil
}

var _ domain.EventStore = (*EventStore)(nil)
