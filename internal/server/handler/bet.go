package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// BetService defines the methods that the bet handler requires from the
// engine.
type BetService interface {
	PlaceBet(ctx context.Context, caller domain.Principal, id domain.MarketID, prediction bool, amount uint64) error
	GetBet(ctx context.Context, id domain.MarketID, user domain.Principal) (domain.Bet, error)
}

// BetHandler serves bet placement and lookup endpoints.
type BetHandler struct {
	bets   BetService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler with the given service and logger.
func NewBetHandler(bets BetService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		bets:   bets,
		logger: logger,
	}
}

// placeBetRequest is the JSON body for placing a bet. Prediction is a pointer
// so a missing field is distinguishable from an explicit "no".
type placeBetRequest struct {
	Caller     string `json:"caller"`
	Prediction *bool  `json:"prediction"`
	Amount     uint64 `json:"amount"`
}

// PlaceBet stakes value on a market outcome.
// POST /api/markets/{id}/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, ok := principalField(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "caller must be a hex address")
		return
	}
	if req.Prediction == nil {
		writeError(w, http.StatusBadRequest, "prediction is required")
		return
	}

	if err := h.bets.PlaceBet(r.Context(), caller, id, *req.Prediction, req.Amount); err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: place bet failed",
			slog.Uint64("market_id", uint64(id)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to place bet")
		return
	}

	bet, err := h.bets.GetBet(r.Context(), id, caller)
	if err != nil {
		// The bet was just written; a miss here is an internal fault.
		writeError(w, http.StatusInternalServerError, "failed to read back bet")
		return
	}

	writeJSON(w, http.StatusCreated, bet)
}

// GetBet returns the accumulated stake for (market, user).
// GET /api/markets/{id}/bets/{address}
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	user, ok := principalField(r.PathValue("address"))
	if !ok {
		writeError(w, http.StatusBadRequest, "address must be a hex address")
		return
	}

	bet, err := h.bets.GetBet(r.Context(), id, user)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get bet")
		return
	}

	writeJSON(w, http.StatusOK, bet)
}
