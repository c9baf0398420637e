package domain

// MarketID is allocated from a single monotonic counter; ids are never
// reused, even after the market record is cleaned up.
type MarketID uint64

// MarketStatus is the lifecycle state of a market relative to a block height.
type MarketStatus string

const (
	MarketStatusOpen     MarketStatus = "open"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
	MarketStatusExpired  MarketStatus = "expired"
)

// Market is a binary-outcome proposition under escrow.
//
// Invariant: ExpiryBlock > CloseBlock > CreatedBlock. Outcome is nil while
// the market is unresolved and set exactly once; no transition reverses.
type Market struct {
	ID           MarketID  `json:"id"`
	Description  string    `json:"description"`
	Creator      Principal `json:"creator"`
	CreatedBlock uint64    `json:"created_block"`
	CloseBlock   uint64    `json:"close_block"`
	ExpiryBlock  uint64    `json:"expiry_block"`
	Outcome      *bool     `json:"outcome,omitempty"`
}

// StatusAt derives the lifecycle state at the given block height.
func (m Market) StatusAt(height uint64) MarketStatus {
	switch {
	case m.Outcome != nil:
		return MarketStatusResolved
	case height >= m.ExpiryBlock:
		return MarketStatusExpired
	case height >= m.CloseBlock:
		return MarketStatusClosed
	default:
		return MarketStatusOpen
	}
}

// Resolved reports whether an outcome has been recorded.
func (m Market) Resolved() bool {
	return m.Outcome != nil
}
