package domain

// BetKey uniquely identifies a bettor's position in one market. It is a
// comparable composite key: the bet map is keyed by (market, user) directly.
type BetKey struct {
	Market MarketID  `json:"market_id"`
	User   Principal `json:"user"`
}

// Bet is the accumulated stake of one user in one market.
//
// Amount only ever grows while the market is open; repeated bets add to it.
// Prediction is the most recently submitted direction and is overwritten
// unconditionally on every bet, regardless of how the accumulated stake was
// split between the two sides. A bet is deleted exactly once, by whichever
// of claim or refund first succeeds.
type Bet struct {
	Key          BetKey `json:"key"`
	Amount       uint64 `json:"amount"`
	Prediction   bool   `json:"prediction"`
	UpdatedBlock uint64 `json:"updated_block"`
}
