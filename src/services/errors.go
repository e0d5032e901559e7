package services

import "errors"

// The engine's error taxonomy. Every rejection is local to a single call and
// leaves no mutation behind; retry policy belongs to the caller.
var (
	// ErrInvalidOrder: malformed input (non-positive quantity or price,
	// unknown asset class). Never worth retrying as-is.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrTradeNotPermitted: the account's role does not allow trading.
	ErrTradeNotPermitted = errors.New("account not permitted to trade")

	// ErrInsufficientFunds: a buy exceeds the available balance in the
	// account's preferred currency.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientHoldings: a sell exceeds the held quantity.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrPriceUnavailable: no price was supplied and the oracle failed.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrStorageUnavailable: the ledger store could not complete the trade's
	// writes; none of them are visible.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
