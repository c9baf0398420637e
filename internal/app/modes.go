package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fhayvy/NexusForecast/internal/domain"
	"github.com/fhayvy/NexusForecast/internal/engine"
	"github.com/fhayvy/NexusForecast/internal/recorder"
	"github.com/fhayvy/NexusForecast/internal/server"
	"github.com/fhayvy/NexusForecast/internal/server/handler"
	"github.com/fhayvy/NexusForecast/internal/server/ws"
)

// StandaloneMode runs the engine against the manual block counter and the
// in-process treasury with no external services. The faucet endpoint is
// enabled so operators can fund test participants.
func (a *App) StandaloneMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting standalone mode")
	return a.serve(ctx, deps, true)
}

// FullMode runs the engine with the configured external services: the
// ethereum (or manual) block source, the PostgreSQL mirror, Redis fan-out and
// rate limiting, and the optional S3 settlement archive.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	return a.serve(ctx, deps, false)
}

// serve builds the engine, recorder, WebSocket hub, and HTTP server from the
// wired dependencies and runs them until the context is cancelled.
func (a *App) serve(ctx context.Context, deps *Dependencies, faucet bool) error {
	owner, ok := domain.ParsePrincipal(a.cfg.Engine.Owner)
	if !ok {
		return fmt.Errorf("app: invalid owner address %q", a.cfg.Engine.Owner)
	}

	params := domain.Params{
		Owner:        owner,
		MinBet:       a.cfg.Engine.MinBet,
		MaxBet:       a.cfg.Engine.MaxBet,
		ExpiryPeriod: a.cfg.Engine.ExpiryPeriod,
	}

	eng := engine.New(deps.Clock, deps.Ledger, params, a.logger,
		engine.WithEventFeed(a.cfg.Engine.FeedBuffer),
	)

	g, ctx := errgroup.WithContext(ctx)

	// Recorder drains the journal feed into whatever sinks are wired. With no
	// external services it still consumes the feed so the engine never blocks.
	rec := recorder.New(
		eng.Events(),
		deps.MarketStore,
		deps.BetStore,
		deps.EventStore,
		deps.SignalBus,
		deps.BlobWriter,
		a.logger,
	)
	g.Go(func() error {
		err := rec.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	// Ethereum head poller, when that source is selected.
	if deps.EthClock != nil {
		g.Go(func() error {
			err := deps.EthClock.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	// WebSocket hub needs the signal bus.
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, recorder.Channel, a.logger)
		g.Go(func() error {
			err := hub.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	// HTTP surface.
	var advancer handler.ManualAdvancer
	if deps.ManualClock != nil {
		advancer = deps.ManualClock
	}
	var minter handler.Minter
	if faucet {
		minter = deps.Ledger
	}

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(),
		Markets:    handler.NewMarketHandler(eng, a.logger),
		Bets:       handler.NewBetHandler(eng, a.logger),
		Settlement: handler.NewSettlementHandler(eng, a.logger),
		Params:     handler.NewParamsHandler(eng, a.logger),
		Chain:      handler.NewChainHandler(deps.Clock, advancer),
		Treasury:   handler.NewTreasuryHandler(deps.Ledger, minter, eng, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
		Limiter:            deps.RateLimiter,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()

		// Stop accepting requests, then close the journal feed so the
		// recorder drains whatever the final requests produced.
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutCtx)
		eng.CloseFeed()
		return err
	})

	a.logger.InfoContext(ctx, "engine ready",
		slog.Uint64("height", deps.Clock.Height()),
		slog.String("owner", owner.Hex()),
	)

	return g.Wait()
}
