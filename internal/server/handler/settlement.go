package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// SettlementService defines the methods that the settlement handler requires
// from the engine.
type SettlementService interface {
	ResolveMarket(ctx context.Context, caller domain.Principal, id domain.MarketID, outcome bool) error
	ClaimWinnings(ctx context.Context, caller domain.Principal, id domain.MarketID) (uint64, error)
	RefundBet(ctx context.Context, caller domain.Principal, id domain.MarketID) (uint64, error)
}

// SettlementHandler serves resolution, claim, and refund endpoints.
type SettlementHandler struct {
	settlement SettlementService
	logger     *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler with the given service and
// logger.
func NewSettlementHandler(settlement SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlement: settlement,
		logger:     logger,
	}
}

// resolveRequest is the JSON body for market resolution. Outcome is a pointer
// so a missing field is distinguishable from an explicit "no".
type resolveRequest struct {
	Caller  string `json:"caller"`
	Outcome *bool  `json:"outcome"`
}

// callerRequest is the JSON body for claim and refund.
type callerRequest struct {
	Caller string `json:"caller"`
}

// ResolveMarket records the outcome of a closed market.
// POST /api/markets/{id}/resolve
func (h *SettlementHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, ok := principalField(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "caller must be a hex address")
		return
	}
	if req.Outcome == nil {
		writeError(w, http.StatusBadRequest, "outcome is required")
		return
	}

	if err := h.settlement.ResolveMarket(r.Context(), caller, id, *req.Outcome); err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: resolve market failed",
			slog.Uint64("market_id", uint64(id)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve market")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "resolved",
		"market_id": id,
		"outcome":   *req.Outcome,
	})
}

// ClaimWinnings returns the caller's principal for a winning bet.
// POST /api/markets/{id}/claim
func (h *SettlementHandler) ClaimWinnings(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, "claim", h.settlement.ClaimWinnings)
}

// RefundBet returns the caller's stake from an expired, unresolved market.
// POST /api/markets/{id}/refund
func (h *SettlementHandler) RefundBet(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, "refund", h.settlement.RefundBet)
}

// settle handles the shared claim/refund flow: parse, call, report the
// transferred amount.
func (h *SettlementHandler) settle(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, caller domain.Principal, id domain.MarketID) (uint64, error),
) {
	id, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req callerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, ok := principalField(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "caller must be a hex address")
		return
	}

	amount, err := fn(r.Context(), caller, id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: "+action+" failed",
			slog.Uint64("market_id", uint64(id)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    action + "ed",
		"market_id": id,
		"amount":    amount,
	})
}
