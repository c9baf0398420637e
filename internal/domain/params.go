package domain

// Description length bounds for new markets, in bytes.
const (
	MinDescriptionLen = 3
	MaxDescriptionLen = 256
)

// Scheduling bounds, in blocks relative to the current height.
const (
	// MinCloseDelay is the minimum gap between creation and close.
	MinCloseDelay = 10
	// MaxCloseDelay is the maximum gap between creation and close.
	MaxCloseDelay = 52_560
	// MaxScheduleHorizon bounds how far in the future an expiry may land.
	MaxScheduleHorizon = MaxCloseDelay + MaxExpiryPeriod
)

// Settable ranges for administrative parameters.
const (
	MinExpiryPeriod = 100
	MaxExpiryPeriod = 100_000
	// MaxBetCeiling caps the settable maximum bet.
	MaxBetCeiling = 1_000_000_000
)

// Defaults applied when no configuration overrides them.
const (
	DefaultExpiryPeriod = 10_000
	DefaultMinBet       = 10
	DefaultMaxBet       = 1_000_000
)

// Params is the process-wide administrative configuration. It is mutated
// only through the engine's owner-gated setters.
//
// Invariant: MinBet < MaxBet.
type Params struct {
	Owner        Principal `json:"owner"`
	MinBet       uint64    `json:"min_bet"`
	MaxBet       uint64    `json:"max_bet"`
	ExpiryPeriod uint64    `json:"expiry_period"`
}

// DefaultParams returns Params with the built-in defaults and the given
// initial owner.
func DefaultParams(owner Principal) Params {
	return Params{
		Owner:        owner,
		MinBet:       DefaultMinBet,
		MaxBet:       DefaultMaxBet,
		ExpiryPeriod: DefaultExpiryPeriod,
	}
}
