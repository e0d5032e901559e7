package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is the cash amount an account holds in one currency. There is at
// most one row per (account, currency) pair; rows are created lazily on the
// first credit or debit and never deleted, a zero amount is a valid terminal
// state. The storage layer applies deltas without clamping; non-negativity
// on debits is enforced by the accounting service.
type Balance struct {
	AccountID uuid.UUID       `db:"account_id" json:"accountId"`
	Currency  string          `db:"currency" json:"currency"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}
