package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// BalanceSource reads participant balances from the value ledger.
type BalanceSource interface {
	Balance(ctx context.Context, p domain.Principal) (uint64, error)
}

// Minter credits freshly created value to a participant. Only the in-process
// ledger supports it; it is nil when the host ledger is external.
type Minter interface {
	Mint(p domain.Principal, amount uint64)
}

// OwnerSource exposes the current administrative owner for faucet gating.
type OwnerSource interface {
	Params() domain.Params
}

// TreasuryHandler serves balance lookups and the standalone faucet.
type TreasuryHandler struct {
	balances BalanceSource
	minter   Minter
	owner    OwnerSource
	logger   *slog.Logger
}

// NewTreasuryHandler creates a TreasuryHandler. Pass a nil minter to disable
// the faucet endpoint.
func NewTreasuryHandler(balances BalanceSource, minter Minter, owner OwnerSource, logger *slog.Logger) *TreasuryHandler {
	return &TreasuryHandler{
		balances: balances,
		minter:   minter,
		owner:    owner,
		logger:   logger,
	}
}

// GetBalance returns a participant's available balance.
// GET /api/balances/{address}
func (h *TreasuryHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := principalField(r.PathValue("address"))
	if !ok {
		writeError(w, http.StatusBadRequest, "address must be a hex address")
		return
	}

	balance, err := h.balances.Balance(r.Context(), p)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: balance lookup failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": p.Hex(),
		"balance": balance,
	})
}

// faucetRequest is the JSON body for minting standalone funds.
type faucetRequest struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Faucet mints value to a participant. Owner only; available only with the
// in-process ledger.
// POST /api/faucet
func (h *TreasuryHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	if h.minter == nil {
		writeError(w, http.StatusNotFound, "faucet is disabled")
		return
	}

	var req faucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, ok := principalField(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "caller must be a hex address")
		return
	}
	to, ok := principalField(req.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "to must be a hex address")
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	if caller != h.owner.Params().Owner {
		writeError(w, http.StatusForbidden, domain.ErrUnauthorized.Error())
		return
	}

	h.minter.Mint(to, req.Amount)

	balance, err := h.balances.Balance(r.Context(), to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": to.Hex(),
		"balance": balance,
	})
}
