package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AssetType string

const (
	AssetStock     AssetType = "stock"
	AssetCrypto    AssetType = "crypto"
	AssetForex     AssetType = "forex"
	AssetCommodity AssetType = "commodity"
	AssetIndex     AssetType = "index"
)

// ValidAssetType reports whether s names a known asset class.
func ValidAssetType(s string) bool {
	switch AssetType(s) {
	case AssetStock, AssetCrypto, AssetForex, AssetCommodity, AssetIndex:
		return true
	}
	return false
}

// Holding is the aggregated position an account has in one instrument,
// keyed by (account, symbol, asset type). AvgPrice is the quantity-weighted
// average acquisition price in the instrument's trade currency. A row exists
// iff Quantity > 0.
type Holding struct {
	AccountID   uuid.UUID       `db:"account_id" json:"accountId"`
	Symbol      string          `db:"symbol" json:"symbol"`
	AssetType   AssetType       `db:"asset_type" json:"assetType"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	AvgPrice    decimal.Decimal `db:"avg_price" json:"avgPrice"`
	LastUpdated time.Time       `db:"last_updated" json:"lastUpdated"`
}

// Apply folds a signed quantity delta into the holding and returns the new
// quantity. On a net increase the average price is re-weighted with the
// trade price; on a decrease the average price of the remaining units is
// unchanged. Callers remove the row when the returned quantity is not
// positive.
//
// Every store backend routes its holding mutation through here so the
// cost-basis arithmetic has exactly one implementation.
func (h *Holding) Apply(quantityDelta, tradePrice decimal.Decimal) decimal.Decimal {
	newQty := h.Quantity.Add(quantityDelta)
	if quantityDelta.IsPositive() {
		if h.Quantity.IsZero() {
			h.AvgPrice = tradePrice
		} else {
			cost := h.Quantity.Mul(h.AvgPrice).Add(quantityDelta.Mul(tradePrice))
			h.AvgPrice = cost.Div(newQty)
		}
	}
	h.Quantity = newQty
	return newQty
}
