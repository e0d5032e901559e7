package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Transaction is one immutable ledger record. ID is a monotonic ULID, so
// records sort by creation time and insertion order breaks timestamp ties.
// Price and Currency are in the instrument's quote currency, not the
// account's preferred one.
type Transaction struct {
	ID        string          `db:"id" json:"id"`
	AccountID uuid.UUID       `db:"account_id" json:"accountId"`
	Symbol    string          `db:"symbol" json:"symbol"`
	AssetType AssetType       `db:"asset_type" json:"assetType"`
	Side      Side            `db:"side" json:"side"`
	Quantity  decimal.Decimal `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Currency  string          `db:"currency" json:"currency"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
}
