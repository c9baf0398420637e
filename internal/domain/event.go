package domain

// EventKind enumerates the journal entries the engine emits.
type EventKind string

const (
	EventMarketCreated    EventKind = "market_created"
	EventBetPlaced        EventKind = "bet_placed"
	EventMarketResolved   EventKind = "market_resolved"
	EventWinningsClaimed  EventKind = "winnings_claimed"
	EventBetRefunded      EventKind = "bet_refunded"
	EventMarketCleaned    EventKind = "market_cleaned"
	EventParamsUpdated    EventKind = "params_updated"
	EventOwnerTransferred EventKind = "owner_transferred"
)

// Event records one successful mutating operation. Events are emitted after
// the mutation commits, so the journal is an append-only history of what
// actually happened; it is never consulted by the engine itself.
type Event struct {
	ID       string    `json:"id"`
	Kind     EventKind `json:"kind"`
	Block    uint64    `json:"block"`
	MarketID MarketID  `json:"market_id,omitempty"`
	Actor    Principal `json:"actor"`
	Amount   uint64    `json:"amount,omitempty"`

	// Snapshots carried for observers that mirror state. Copies, never
	// pointers into engine-owned records.
	Market *Market `json:"market,omitempty"`
	Bet    *Bet    `json:"bet,omitempty"`
	Params *Params `json:"params,omitempty"`
}
