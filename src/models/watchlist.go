package models

import (
	"time"

	"github.com/google/uuid"
)

// WatchItem marks an instrument an account wants on its watch page.
// Unique per (account, symbol, asset type); adding twice is a no-op.
type WatchItem struct {
	AccountID uuid.UUID `db:"account_id" json:"accountId"`
	Symbol    string    `db:"symbol" json:"symbol"`
	AssetType AssetType `db:"asset_type" json:"assetType"`
	AddedAt   time.Time `db:"added_at" json:"addedAt"`
}
