package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// engine. It is declared locally so the handler package does not depend on
// the concrete engine type.
type MarketService interface {
	CreateMarket(ctx context.Context, caller domain.Principal, description string, closeBlock uint64) (domain.MarketID, error)
	GetMarket(ctx context.Context, id domain.MarketID) (domain.Market, error)
	ListMarkets(ctx context.Context) []domain.Market
	CleanupMarket(ctx context.Context, caller domain.Principal, id domain.MarketID) error
	Height() uint64
}

// MarketHandler serves market lifecycle HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// createMarketRequest is the JSON body for market creation.
type createMarketRequest struct {
	Caller      string `json:"caller"`
	Description string `json:"description"`
	CloseBlock  uint64 `json:"close_block"`
}

// marketResponse augments a market record with its derived status.
type marketResponse struct {
	domain.Market
	Status domain.MarketStatus `json:"status"`
}

// CreateMarket records a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, ok := principalField(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "caller must be a hex address")
		return
	}

	id, err := h.markets.CreateMarket(r.Context(), caller, req.Description, req.CloseBlock)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create market failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create market")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"market_id": id})
}

// GetMarket returns one market with its derived lifecycle status.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	m, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, marketResponse{
		Market: m,
		Status: m.StatusAt(h.markets.Height()),
	})
}

// ListMarkets returns all live markets.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	height := h.markets.Height()
	markets := h.markets.ListMarkets(r.Context())

	out := make([]marketResponse, 0, len(markets))
	for _, m := range markets {
		out = append(out, marketResponse{Market: m, Status: m.StatusAt(height)})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"height":  height,
		"markets": out,
	})
}

// CleanupMarket deletes an expired market record.
// DELETE /api/markets/{id}?caller=0x...
func (h *MarketHandler) CleanupMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	caller, ok := principalField(r.URL.Query().Get("caller"))
	if !ok {
		writeError(w, http.StatusBadRequest, "caller query parameter must be a hex address")
		return
	}

	if err := h.markets.CleanupMarket(r.Context(), caller, id); err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: cleanup market failed",
			slog.Uint64("market_id", uint64(id)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cleanup market")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "cleaned",
		"market_id": id,
	})
}
