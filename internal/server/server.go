// Package server hosts the HTTP + WebSocket API for the settlement engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fhayvy/NexusForecast/internal/domain"
	"github.com/fhayvy/NexusForecast/internal/server/handler"
	"github.com/fhayvy/NexusForecast/internal/server/middleware"
	"github.com/fhayvy/NexusForecast/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimitPerMinute caps requests per client IP; zero disables limiting.
	// Requires a limiter.
	RateLimitPerMinute int
	Limiter            domain.RateLimiter
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health     *handler.HealthHandler
	Markets    *handler.MarketHandler
	Bets       *handler.BetHandler
	Settlement *handler.SettlementHandler
	Params     *handler.ParamsHandler
	Chain      *handler.ChainHandler
	Treasury   *handler.TreasuryHandler
}

// Server is the HTTP + WebSocket API server for the settlement engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. wsHub may be nil when no signal bus is configured.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required for the handler itself; auth middleware
	// still applies when configured).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market lifecycle.
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("DELETE /api/markets/{id}", handlers.Markets.CleanupMarket)

	// Bets.
	mux.HandleFunc("POST /api/markets/{id}/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("GET /api/markets/{id}/bets/{address}", handlers.Bets.GetBet)

	// Settlement.
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Settlement.ResolveMarket)
	mux.HandleFunc("POST /api/markets/{id}/claim", handlers.Settlement.ClaimWinnings)
	mux.HandleFunc("POST /api/markets/{id}/refund", handlers.Settlement.RefundBet)

	// Administrative parameters.
	mux.HandleFunc("GET /api/params", handlers.Params.GetParams)
	mux.HandleFunc("PUT /api/params/expiry-period", handlers.Params.SetExpiryPeriod)
	mux.HandleFunc("PUT /api/params/min-bet", handlers.Params.SetMinBet)
	mux.HandleFunc("PUT /api/params/max-bet", handlers.Params.SetMaxBet)
	mux.HandleFunc("POST /api/params/ownership", handlers.Params.TransferOwnership)

	// Block height.
	mux.HandleFunc("GET /api/chain/height", handlers.Chain.GetHeight)
	mux.HandleFunc("POST /api/chain/advance", handlers.Chain.Advance)

	// Treasury.
	mux.HandleFunc("GET /api/balances/{address}", handlers.Treasury.GetBalance)
	mux.HandleFunc("POST /api/faucet", handlers.Treasury.Faucet)

	// Event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)

	if cfg.RateLimitPerMinute > 0 && cfg.Limiter != nil {
		h = middleware.RateLimit(cfg.Limiter, cfg.RateLimitPerMinute, time.Minute)(h)
	}

	h = middleware.Logging(logger)(h)

	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
