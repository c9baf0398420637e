package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// HeightSource reads the current block height.
type HeightSource interface {
	Height() uint64
}

// ManualAdvancer is the extra control surface of the manual block source.
// It is nil when the deployment follows a real chain.
type ManualAdvancer interface {
	Advance(n uint64) uint64
}

// ChainHandler serves block-height endpoints.
type ChainHandler struct {
	source   HeightSource
	advancer ManualAdvancer
}

// NewChainHandler creates a ChainHandler. Pass a nil advancer to disable the
// advance endpoint.
func NewChainHandler(source HeightSource, advancer ManualAdvancer) *ChainHandler {
	return &ChainHandler{
		source:   source,
		advancer: advancer,
	}
}

// GetHeight returns the current block height.
// GET /api/chain/height
func (h *ChainHandler) GetHeight(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{"height": h.source.Height()})
}

// advanceRequest is the JSON body for manual height advancement.
type advanceRequest struct {
	Blocks uint64 `json:"blocks"`
}

// Advance moves the manual block counter forward.
// POST /api/chain/advance
func (h *ChainHandler) Advance(w http.ResponseWriter, r *http.Request) {
	if h.advancer == nil {
		writeError(w, http.StatusNotFound, "manual advancement is disabled")
		return
	}

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Blocks == 0 {
		writeError(w, http.StatusBadRequest, "blocks must be positive")
		return
	}

	height := h.advancer.Advance(req.Blocks)
	writeJSON(w, http.StatusOK, map[string]uint64{"height": height})
}

var _ HeightSource = (domain.BlockSource)(nil)
