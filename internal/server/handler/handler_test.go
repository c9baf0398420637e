package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fhayvy/NexusForecast/internal/chain"
	"github.com/fhayvy/NexusForecast/internal/domain"
	"github.com/fhayvy/NexusForecast/internal/engine"
	"github.com/fhayvy/NexusForecast/internal/treasury"
)

const (
	ownerHex = "0x00000000000000000000000000000000000000aa"
	aliceHex = "0x0000000000000000000000000000000000000001"
	bobHex   = "0x0000000000000000000000000000000000000002"

	startHeight = 100
)

// fixture hosts a full handler stack over a real engine, manual clock, and
// in-process treasury, the same wiring standalone mode uses.
type fixture struct {
	mux    *http.ServeMux
	clock  *chain.ManualSource
	ledger *treasury.Memory
	engine *engine.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := chain.NewManualSource(startHeight)
	ledger := treasury.NewMemory()
	for _, hex := range []string{aliceHex, bobHex} {
		p, ok := domain.ParsePrincipal(hex)
		if !ok {
			t.Fatalf("bad test address %s", hex)
		}
		ledger.Mint(p, 1_000_000)
	}

	owner, _ := domain.ParsePrincipal(ownerHex)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(clock, ledger, domain.DefaultParams(owner), logger)

	markets := NewMarketHandler(eng, logger)
	bets := NewBetHandler(eng, logger)
	settlement := NewSettlementHandler(eng, logger)
	params := NewParamsHandler(eng, logger)
	chainH := NewChainHandler(clock, clock)
	treasuryH := NewTreasuryHandler(ledger, ledger, eng, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/markets", markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", markets.GetMarket)
	mux.HandleFunc("DELETE /api/markets/{id}", markets.CleanupMarket)
	mux.HandleFunc("POST /api/markets/{id}/bets", bets.PlaceBet)
	mux.HandleFunc("GET /api/markets/{id}/bets/{address}", bets.GetBet)
	mux.HandleFunc("POST /api/markets/{id}/resolve", settlement.ResolveMarket)
	mux.HandleFunc("POST /api/markets/{id}/claim", settlement.ClaimWinnings)
	mux.HandleFunc("POST /api/markets/{id}/refund", settlement.RefundBet)
	mux.HandleFunc("GET /api/params", params.GetParams)
	mux.HandleFunc("PUT /api/params/min-bet", params.SetMinBet)
	mux.HandleFunc("POST /api/params/ownership", params.TransferOwnership)
	mux.HandleFunc("GET /api/chain/height", chainH.GetHeight)
	mux.HandleFunc("POST /api/chain/advance", chainH.Advance)
	mux.HandleFunc("GET /api/balances/{address}", treasuryH.GetBalance)
	mux.HandleFunc("POST /api/faucet", treasuryH.Faucet)

	return &fixture{mux: mux, clock: clock, ledger: ledger, engine: eng}
}

// do runs one request through the mux and decodes the JSON response body.
func (f *fixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	var out map[string]any
	if len(rec.Body.Bytes()) > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

// createMarket creates a market via the API and returns its id.
func (f *fixture) createMarket(t *testing.T) uint64 {
	t.Helper()

	code, body := f.do(t, http.MethodPost, "/api/markets", map[string]any{
		"caller":      aliceHex,
		"description": "will it rain tomorrow",
		"close_block": startHeight + 100,
	})
	if code != http.StatusCreated {
		t.Fatalf("create market status = %d, body = %v", code, body)
	}
	return uint64(body["market_id"].(float64))
}

func TestCreateMarketEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		wantCode int
	}{
		{
			name: "valid",
			body: map[string]any{
				"caller":      aliceHex,
				"description": "will it rain tomorrow",
				"close_block": startHeight + 100,
			},
			wantCode: http.StatusCreated,
		},
		{
			name: "bad caller",
			body: map[string]any{
				"caller":      "nope",
				"description": "will it rain tomorrow",
				"close_block": startHeight + 100,
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "close block too soon",
			body: map[string]any{
				"caller":      aliceHex,
				"description": "will it rain tomorrow",
				"close_block": startHeight + 1,
			},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "description too short",
			body: map[string]any{
				"caller":      aliceHex,
				"description": "x",
				"close_block": startHeight + 100,
			},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			code, body := f.do(t, http.MethodPost, "/api/markets", tt.body)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %v)", code, tt.wantCode, body)
			}
		})
	}
}

func TestGetMarketEndpoint(t *testing.T) {
	f := newFixture(t)
	f.createMarket(t)

	code, body := f.do(t, http.MethodGet, "/api/markets/1", nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	if body["status"] != "open" {
		t.Errorf("status field = %v, want open", body["status"])
	}
	if body["description"] != "will it rain tomorrow" {
		t.Errorf("description = %v", body["description"])
	}

	code, _ = f.do(t, http.MethodGet, "/api/markets/99", nil)
	if code != http.StatusNotFound {
		t.Errorf("missing market status = %d, want 404", code)
	}

	code, _ = f.do(t, http.MethodGet, "/api/markets/abc", nil)
	if code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", code)
	}
}

func TestPlaceBetEndpoint(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		f := newFixture(t)
		f.createMarket(t)

		code, body := f.do(t, http.MethodPost, "/api/markets/1/bets", map[string]any{
			"caller":     bobHex,
			"prediction": true,
			"amount":     500,
		})
		if code != http.StatusCreated {
			t.Fatalf("status = %d, body = %v", code, body)
		}
		if got := body["amount"].(float64); got != 500 {
			t.Errorf("amount = %v, want 500", got)
		}

		code, body = f.do(t, http.MethodGet, "/api/markets/1/bets/"+bobHex, nil)
		if code != http.StatusOK {
			t.Fatalf("get bet status = %d, body = %v", code, body)
		}
		if got := body["amount"].(float64); got != 500 {
			t.Errorf("stored amount = %v, want 500", got)
		}
	})

	t.Run("missing prediction", func(t *testing.T) {
		f := newFixture(t)
		f.createMarket(t)

		code, _ := f.do(t, http.MethodPost, "/api/markets/1/bets", map[string]any{
			"caller": bobHex,
			"amount": 500,
		})
		if code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", code)
		}
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newFixture(t)
		f.createMarket(t)

		code, _ := f.do(t, http.MethodPost, "/api/markets/1/bets", map[string]any{
			"caller":     "0x0000000000000000000000000000000000000099",
			"prediction": true,
			"amount":     500,
		})
		if code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", code)
		}
	})

	t.Run("closed market", func(t *testing.T) {
		f := newFixture(t)
		f.createMarket(t)
		f.clock.Advance(100)

		code, _ := f.do(t, http.MethodPost, "/api/markets/1/bets", map[string]any{
			"caller":     bobHex,
			"prediction": true,
			"amount":     500,
		})
		if code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", code)
		}
	})
}

func TestSettlementFlow(t *testing.T) {
	f := newFixture(t)
	f.createMarket(t)

	code, _ := f.do(t, http.MethodPost, "/api/markets/1/bets", map[string]any{
		"caller":     bobHex,
		"prediction": true,
		"amount":     500,
	})
	if code != http.StatusCreated {
		t.Fatalf("place bet status = %d", code)
	}

	// Resolving an open market conflicts.
	code, _ = f.do(t, http.MethodPost, "/api/markets/1/resolve", map[string]any{
		"caller":  aliceHex,
		"outcome": true,
	})
	if code != http.StatusConflict {
		t.Fatalf("early resolve status = %d, want 409", code)
	}

	f.clock.Advance(100)

	// Missing outcome field is a 400, not a default "no".
	code, _ = f.do(t, http.MethodPost, "/api/markets/1/resolve", map[string]any{
		"caller": aliceHex,
	})
	if code != http.StatusBadRequest {
		t.Fatalf("missing outcome status = %d, want 400", code)
	}

	code, _ = f.do(t, http.MethodPost, "/api/markets/1/resolve", map[string]any{
		"caller":  aliceHex,
		"outcome": true,
	})
	if code != http.StatusOK {
		t.Fatalf("resolve status = %d", code)
	}

	code, body := f.do(t, http.MethodPost, "/api/markets/1/claim", map[string]any{
		"caller": bobHex,
	})
	if code != http.StatusOK {
		t.Fatalf("claim status = %d, body = %v", code, body)
	}
	if got := body["amount"].(float64); got != 500 {
		t.Errorf("claimed = %v, want 500", got)
	}
	if body["status"] != "claimed" {
		t.Errorf("status field = %v, want claimed", body["status"])
	}

	// The bet is consumed; a repeat claim is a 404.
	code, _ = f.do(t, http.MethodPost, "/api/markets/1/claim", map[string]any{
		"caller": bobHex,
	})
	if code != http.StatusNotFound {
		t.Fatalf("repeat claim status = %d, want 404", code)
	}
}

func TestRefundEndpoint(t *testing.T) {
	f := newFixture(t)
	f.createMarket(t)

	code, _ := f.do(t, http.MethodPost, "/api/markets/1/bets", map[string]any{
		"caller":     bobHex,
		"prediction": false,
		"amount":     700,
	})
	if code != http.StatusCreated {
		t.Fatalf("place bet status = %d", code)
	}

	// Not expired yet.
	code, _ = f.do(t, http.MethodPost, "/api/markets/1/refund", map[string]any{"caller": bobHex})
	if code != http.StatusConflict {
		t.Fatalf("early refund status = %d, want 409", code)
	}

	f.clock.Advance(100 + domain.DefaultExpiryPeriod)

	code, body := f.do(t, http.MethodPost, "/api/markets/1/refund", map[string]any{"caller": bobHex})
	if code != http.StatusOK {
		t.Fatalf("refund status = %d, body = %v", code, body)
	}
	if got := body["amount"].(float64); got != 700 {
		t.Errorf("refunded = %v, want 700", got)
	}
	if body["status"] != "refunded" {
		t.Errorf("status field = %v, want refunded", body["status"])
	}
}

func TestParamsEndpoints(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/params", nil)
	if code != http.StatusOK {
		t.Fatalf("get params status = %d", code)
	}
	if got := body["min_bet"].(float64); got != domain.DefaultMinBet {
		t.Errorf("min_bet = %v, want %d", got, domain.DefaultMinBet)
	}

	// Non-owner is rejected.
	code, _ = f.do(t, http.MethodPut, "/api/params/min-bet", map[string]any{
		"caller": aliceHex,
		"value":  100,
	})
	if code != http.StatusForbidden {
		t.Fatalf("non-owner status = %d, want 403", code)
	}

	code, body = f.do(t, http.MethodPut, "/api/params/min-bet", map[string]any{
		"caller": ownerHex,
		"value":  100,
	})
	if code != http.StatusOK {
		t.Fatalf("owner set status = %d, body = %v", code, body)
	}
	if got := body["min_bet"].(float64); got != 100 {
		t.Errorf("min_bet after set = %v, want 100", got)
	}

	code, _ = f.do(t, http.MethodPost, "/api/params/ownership", map[string]any{
		"caller":    ownerHex,
		"new_owner": aliceHex,
	})
	if code != http.StatusOK {
		t.Fatalf("transfer status = %d", code)
	}

	// The gate follows the new owner.
	code, _ = f.do(t, http.MethodPut, "/api/params/min-bet", map[string]any{
		"caller": aliceHex,
		"value":  200,
	})
	if code != http.StatusOK {
		t.Fatalf("new owner set status = %d, want 200", code)
	}
}

func TestChainEndpoints(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/chain/height", nil)
	if code != http.StatusOK {
		t.Fatalf("height status = %d", code)
	}
	if got := body["height"].(float64); got != startHeight {
		t.Errorf("height = %v, want %d", got, startHeight)
	}

	code, body = f.do(t, http.MethodPost, "/api/chain/advance", map[string]any{"blocks": 5})
	if code != http.StatusOK {
		t.Fatalf("advance status = %d", code)
	}
	if got := body["height"].(float64); got != startHeight+5 {
		t.Errorf("height after advance = %v, want %d", got, startHeight+5)
	}

	code, _ = f.do(t, http.MethodPost, "/api/chain/advance", map[string]any{"blocks": 0})
	if code != http.StatusBadRequest {
		t.Errorf("zero advance status = %d, want 400", code)
	}
}

func TestChainAdvanceDisabledWithoutManualSource(t *testing.T) {
	f := newFixture(t)
	h := NewChainHandler(f.clock, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chain/advance", h.Advance)

	req := httptest.NewRequest(http.MethodPost, "/api/chain/advance", bytes.NewReader([]byte(`{"blocks":1}`)))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestTreasuryEndpoints(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/balances/"+bobHex, nil)
	if code != http.StatusOK {
		t.Fatalf("balance status = %d", code)
	}
	if got := body["balance"].(float64); got != 1_000_000 {
		t.Errorf("balance = %v, want 1000000", got)
	}

	// Faucet is owner-gated.
	code, _ = f.do(t, http.MethodPost, "/api/faucet", map[string]any{
		"caller": aliceHex,
		"to":     bobHex,
		"amount": 100,
	})
	if code != http.StatusForbidden {
		t.Fatalf("non-owner faucet status = %d, want 403", code)
	}

	code, body = f.do(t, http.MethodPost, "/api/faucet", map[string]any{
		"caller": ownerHex,
		"to":     bobHex,
		"amount": 100,
	})
	if code != http.StatusOK {
		t.Fatalf("faucet status = %d, body = %v", code, body)
	}
	if got := body["balance"].(float64); got != 1_000_100 {
		t.Errorf("balance after mint = %v, want 1000100", got)
	}
}

func TestCleanupEndpoint(t *testing.T) {
	f := newFixture(t)
	f.createMarket(t)
	f.clock.Advance(100 + domain.DefaultExpiryPeriod)

	// Caller comes from the query string on DELETE.
	code, _ := f.do(t, http.MethodDelete, "/api/markets/1", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("missing caller status = %d, want 400", code)
	}

	code, _ = f.do(t, http.MethodDelete, "/api/markets/1?caller="+bobHex, nil)
	if code != http.StatusForbidden {
		t.Fatalf("non-creator status = %d, want 403", code)
	}

	code, body := f.do(t, http.MethodDelete, "/api/markets/1?caller="+aliceHex, nil)
	if code != http.StatusOK {
		t.Fatalf("cleanup status = %d, body = %v", code, body)
	}

	code, _ = f.do(t, http.MethodGet, "/api/markets/1", nil)
	if code != http.StatusNotFound {
		t.Fatalf("get after cleanup status = %d, want 404", code)
	}
}
