// Package recorder drains the engine's journal feed into the durable mirror
// (PostgreSQL), the live signal bus (Redis), and the settlement archive (S3).
// It is strictly an observer: recording failures are logged and skipped, and
// never affect the serial settlement core.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// Channel is the signal-bus channel journal events are published on.
const Channel = "nexus:events"

// Recorder consumes domain events and forwards them to the configured sinks.
// Every sink is optional; a nil sink is skipped.
type Recorder struct {
	feed    <-chan domain.Event
	markets domain.MarketStore
	bets    domain.BetStore
	events  domain.EventStore
	bus     domain.SignalBus
	archive domain.BlobWriter
	logger  *slog.Logger
}

// New creates a Recorder reading from feed. Pass nil for any sink that is not
// configured.
func New(
	feed <-chan domain.Event,
	markets domain.MarketStore,
	bets domain.BetStore,
	events domain.EventStore,
	bus domain.SignalBus,
	archive domain.BlobWriter,
	logger *slog.Logger,
) *Recorder {
	return &Recorder{
		feed:    feed,
		markets: markets,
		bets:    bets,
		events:  events,
		bus:     bus,
		archive: archive,
		logger:  logger.With(slog.String("component", "recorder")),
	}
}

// Run consumes the feed until it is closed or the context is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-r.feed:
			if !ok {
				return nil
			}
			r.handle(ctx, ev)
		}
	}
}

// handle forwards one event to every configured sink.
func (r *Recorder) handle(ctx context.Context, ev domain.Event) {
	if r.events != nil {
		if err := r.events.Insert(ctx, ev); err != nil {
			r.warn(ctx, ev, "journal insert failed", err)
		}
	}

	r.mirror(ctx, ev)

	if r.bus != nil {
		payload, err := json.Marshal(ev)
		if err != nil {
			r.warn(ctx, ev, "event marshal failed", err)
		} else if err := r.bus.Publish(ctx, Channel, payload); err != nil {
			r.warn(ctx, ev, "event publish failed", err)
		}
	}
}

// mirror applies the event's state change to the market and bet mirrors.
func (r *Recorder) mirror(ctx context.Context, ev domain.Event) {
	switch ev.Kind {
	case domain.EventMarketCreated, domain.EventMarketResolved:
		if r.markets != nil && ev.Market != nil {
			if err := r.markets.Upsert(ctx, *ev.Market); err != nil {
				r.warn(ctx, ev, "market mirror failed", err)
			}
		}
	case domain.EventBetPlaced:
		if r.bets != nil && ev.Bet != nil {
			if err := r.bets.Upsert(ctx, *ev.Bet); err != nil {
				r.warn(ctx, ev, "bet mirror failed", err)
			}
		}
	case domain.EventWinningsClaimed, domain.EventBetRefunded:
		if r.bets != nil {
			key := domain.BetKey{Market: ev.MarketID, User: ev.Actor}
			if err := r.bets.Delete(ctx, key); err != nil {
				r.warn(ctx, ev, "bet mirror delete failed", err)
			}
		}
	case domain.EventMarketCleaned:
		// Archive the full history before the mirror row disappears.
		if r.archive != nil && r.events != nil {
			if err := r.archiveMarket(ctx, ev.MarketID); err != nil {
				r.warn(ctx, ev, "market archive failed", err)
			}
		}
		if r.markets != nil {
			if err := r.markets.Delete(ctx, ev.MarketID); err != nil {
				r.warn(ctx, ev, "market mirror delete failed", err)
			}
		}
	}
}

// archiveMarket uploads the market's full journal as one JSON object.
func (r *Recorder) archiveMarket(ctx context.Context, id domain.MarketID) error {
	history, err := r.events.ListByMarket(ctx, id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("recorder: marshal history for market %d: %w", id, err)
	}

	path := fmt.Sprintf("markets/%d.json", id)
	if err := r.archive.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "market history archived",
		slog.Uint64("market_id", uint64(id)),
		slog.String("path", path),
		slog.Int("events", len(history)),
	)
	return nil
}

func (r *Recorder) warn(ctx context.Context, ev domain.Event, msg string, err error) {
	r.logger.WarnContext(ctx, msg,
		slog.String("kind", string(ev.Kind)),
		slog.Uint64("market_id", uint64(ev.MarketID)),
		slog.String("error", err.Error()),
	)
}
