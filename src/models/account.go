package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleViewer Role = "viewer"
	RoleUser   Role = "user"
	RoleTrader Role = "trader"
	RoleAdmin  Role = "admin"
)

// CanTrade reports whether the role is allowed to execute orders.
func (r Role) CanTrade() bool {
	switch r {
	case RoleUser, RoleTrader, RoleAdmin:
		return true
	}
	return false
}

type Account struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Username          string    `db:"username" json:"username"`
	PreferredCurrency string    `db:"preferred_currency" json:"preferredCurrency"`
	Role              Role      `db:"role" json:"role"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}
