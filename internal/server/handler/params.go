package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// ParamsService defines the methods that the params handler requires from the
// engine.
type ParamsService interface {
	Params() domain.Params
	SetExpiryPeriod(ctx context.Context, caller domain.Principal, period uint64) error
	SetMinBet(ctx context.Context, caller domain.Principal, minBet uint64) error
	SetMaxBet(ctx context.Context, caller domain.Principal, maxBet uint64) error
	TransferOwnership(ctx context.Context, caller domain.Principal, newOwner domain.Principal) error
}

// ParamsHandler serves the owner-gated administrative endpoints.
type ParamsHandler struct {
	params ParamsService
	logger *slog.Logger
}

// NewParamsHandler creates a ParamsHandler with the given service and logger.
func NewParamsHandler(params ParamsService, logger *slog.Logger) *ParamsHandler {
	return &ParamsHandler{
		params: params,
		logger: logger,
	}
}

// setValueRequest is the JSON body for the three numeric setters.
type setValueRequest struct {
	Caller string `json:"caller"`
	Value  uint64 `json:"value"`
}

// transferOwnershipRequest is the JSON body for ownership transfer.
type transferOwnershipRequest struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"new_owner"`
}

// GetParams returns the current administrative parameters.
// GET /api/params
func (h *ParamsHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.params.Params())
}

// SetExpiryPeriod updates the default expiry offset.
// PUT /api/params/expiry-period
func (h *ParamsHandler) SetExpiryPeriod(w http.ResponseWriter, r *http.Request) {
	h.setValue(w, r, "expiry-period", h.params.SetExpiryPeriod)
}

// SetMinBet updates the minimum stake per bet.
// PUT /api/params/min-bet
func (h *ParamsHandler) SetMinBet(w http.ResponseWriter, r *http.Request) {
	h.setValue(w, r, "min-bet", h.params.SetMinBet)
}

// SetMaxBet updates the maximum cumulative stake per (market, user).
// PUT /api/params/max-bet
func (h *ParamsHandler) SetMaxBet(w http.ResponseWriter, r *http.Request) {
	h.setValue(w, r, "max-bet", h.params.SetMaxBet)
}

// TransferOwnership replaces the administrative owner.
// POST /api/params/ownership
func (h *ParamsHandler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req transferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, ok := principalField(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "caller must be a hex address")
		return
	}
	newOwner, ok := principalField(req.NewOwner)
	if !ok {
		writeError(w, http.StatusBadRequest, "new_owner must be a hex address")
		return
	}

	if err := h.params.TransferOwnership(r.Context(), caller, newOwner); err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: transfer ownership failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to transfer ownership")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "transferred",
		"new_owner": newOwner.Hex(),
	})
}

// setValue handles the shared numeric-setter flow.
func (h *ParamsHandler) setValue(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	fn func(ctx context.Context, caller domain.Principal, v uint64) error,
) {
	var req setValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, ok := principalField(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "caller must be a hex address")
		return
	}

	if err := fn(r.Context(), caller, req.Value); err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: set "+field+" failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to set "+field)
		return
	}

	writeJSON(w, http.StatusOK, h.params.Params())
}
