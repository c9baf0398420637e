package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps an engine error to an HTTP status. Validation errors
// are 400, missing resources 404, authorization failures 403, lifecycle
// conflicts 409, and funds failures 422. Anything unmapped is treated as an
// internal error by the caller.
func writeDomainError(w http.ResponseWriter, err error) bool {
	var status int
	switch {
	case errors.Is(err, domain.ErrMarketNotFound),
		errors.Is(err, domain.ErrBetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidParameter),
		errors.Is(err, domain.ErrInvalidCloseBlock),
		errors.Is(err, domain.ErrBetTooLow),
		errors.Is(err, domain.ErrBetTooHigh):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrMarketClosed),
		errors.Is(err, domain.ErrMarketNotClosed),
		errors.Is(err, domain.ErrMarketAlreadyResolved),
		errors.Is(err, domain.ErrMarketNotResolved),
		errors.Is(err, domain.ErrMarketExpired),
		errors.Is(err, domain.ErrMarketNotExpired),
		errors.Is(err, domain.ErrBetLost):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	default:
		return false
	}
	writeError(w, status, err.Error())
	return true
}

// marketIDParam extracts the {id} path parameter as a MarketID.
func marketIDParam(r *http.Request) (domain.MarketID, error) {
	raw := r.PathValue("id")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.MarketID(n), nil
}

// principalField parses a hex address from a request field, reporting whether
// it was well-formed.
func principalField(s string) (domain.Principal, bool) {
	return domain.ParsePrincipal(s)
}
