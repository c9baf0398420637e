package domain

import "errors"

// Sentinel errors returned by the engine. Callers distinguish failure kinds
// with errors.Is; every failed call leaves engine state untouched.
var (
	// Resource errors.
	ErrMarketNotFound = errors.New("market not found")
	ErrBetNotFound    = errors.New("bet not found")

	// Validation errors.
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrInvalidCloseBlock = errors.New("close block outside allowed window")
	ErrBetTooLow         = errors.New("bet amount below minimum")
	ErrBetTooHigh        = errors.New("bet amount above maximum")

	// Lifecycle-state errors.
	ErrMarketClosed          = errors.New("market closed to new bets")
	ErrMarketNotClosed       = errors.New("market not yet closed")
	ErrMarketAlreadyResolved = errors.New("market already resolved")
	ErrMarketNotResolved     = errors.New("market not resolved")
	ErrMarketExpired         = errors.New("market expired")
	ErrMarketNotExpired      = errors.New("market not yet expired")
	ErrBetLost               = errors.New("bet prediction did not match outcome")

	// Authorization errors.
	ErrUnauthorized = errors.New("unauthorized")

	// Funds errors.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
