package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/fhayvy/NexusForecast/internal/chain"
	"github.com/fhayvy/NexusForecast/internal/domain"
	"github.com/fhayvy/NexusForecast/internal/treasury"
)

const startHeight = 100

// principal builds a deterministic test address from a single byte.
func principal(b byte) domain.Principal {
	var p domain.Principal
	p[len(p)-1] = b
	return p
}

var (
	owner   = principal(0xAA)
	alice   = principal(0x01)
	bob     = principal(0x02)
	charlie = principal(0x03)
)

// testEngine bundles the engine with the collaborators tests drive directly.
type testEngine struct {
	*Engine
	clock  *chain.ManualSource
	ledger *treasury.Memory
}

// newTestEngine creates an engine at block 100 with default parameters and a
// funded set of test principals.
func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	clock := chain.NewManualSource(startHeight)
	ledger := treasury.NewMemory()
	for _, p := range []domain.Principal{alice, bob, charlie} {
		ledger.Mint(p, 2_000_000)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(clock, ledger, domain.DefaultParams(owner), logger)

	return &testEngine{Engine: e, clock: clock, ledger: ledger}
}

// mustCreate creates a market closing closeDelay blocks from now and fails the
// test on error.
func (te *testEngine) mustCreate(t *testing.T, creator domain.Principal, closeDelay uint64) domain.MarketID {
	t.Helper()

	id, err := te.CreateMarket(t.Context(), creator, "will it rain tomorrow", te.clock.Height()+closeDelay)
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	return id
}

// mustBet places a bet and fails the test on error.
func (te *testEngine) mustBet(t *testing.T, user domain.Principal, id domain.MarketID, prediction bool, amount uint64) {
	t.Helper()

	if err := te.PlaceBet(t.Context(), user, id, prediction, amount); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
}

// balance reads a principal's ledger balance and fails the test on error.
func (te *testEngine) balance(t *testing.T, p domain.Principal) uint64 {
	t.Helper()

	bal, err := te.ledger.Balance(t.Context(), p)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return bal
}
