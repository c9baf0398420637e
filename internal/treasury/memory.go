// Package treasury provides the atomic value-transfer primitive the engine
// escrows through. The in-process implementation stands in for the host
// ledger in standalone deployments and tests; a production deployment would
// adapt the host chain's own transfer primitive to domain.ValueLedger.
package treasury

import (
	"context"
	"fmt"
	"sync"

	"github.com/fhayvy/NexusForecast/internal/domain"
)

// Memory is an in-process ValueLedger. Every transfer either fully applies or
// fails with no effect; the escrow account can never go negative because
// credits are bounded by prior debits.
type Memory struct {
	mu       sync.RWMutex
	balances map[domain.Principal]uint64
	escrow   uint64
}

// NewMemory creates an empty in-process ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[domain.Principal]uint64)}
}

// Debit moves amount from p into escrow. Fails with ErrInsufficientFunds when
// p's balance is below amount.
func (m *Memory) Debit(ctx context.Context, p domain.Principal, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balances[p]
	if bal < amount {
		return fmt.Errorf("treasury: balance %d below %d: %w", bal, amount, domain.ErrInsufficientFunds)
	}
	m.balances[p] = bal - amount
	m.escrow += amount
	return nil
}

// Credit moves amount from escrow to p.
func (m *Memory) Credit(ctx context.Context, p domain.Principal, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.escrow < amount {
		return fmt.Errorf("treasury: escrow %d below %d: %w", m.escrow, amount, domain.ErrInsufficientFunds)
	}
	m.escrow -= amount
	m.balances[p] += amount
	return nil
}

// Balance returns p's available balance.
func (m *Memory) Balance(ctx context.Context, p domain.Principal) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[p], nil
}

// Escrowed returns the total value currently held in escrow.
func (m *Memory) Escrowed() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.escrow
}

// Mint credits amount to p out of thin air. Standalone faucet; the HTTP layer
// gates it behind the engine owner.
func (m *Memory) Mint(p domain.Principal, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[p] += amount
}

var _ domain.ValueLedger = (*Memory)(nil)
