package schemas

import (
	"portfolio/src/models"

	"github.com/shopspring/decimal"
)

// CreateAccountRequest registers a new trading account. Role defaults to
// "user" when omitted.
type CreateAccountRequest struct {
	Username          string `json:"username" validate:"required,min=3,max=40"`
	PreferredCurrency string `json:"preferredCurrency" validate:"omitempty,uppercase,min=3,max=4"`
	Role              string `json:"role" validate:"omitempty,oneof=viewer user trader admin"`
}

// TradeRequest places one buy or sell order. Price omitted or zero asks the
// service to resolve the current market price.
type TradeRequest struct {
	Symbol        string          `json:"symbol" validate:"required"`
	AssetType     string          `json:"assetType" validate:"required,oneof=stock crypto forex commodity index"`
	Side          string          `json:"side" validate:"required,oneof=BUY SELL"`
	Quantity      decimal.Decimal `json:"quantity" validate:"required"`
	Price         decimal.Decimal `json:"price"`
	QuoteCurrency string          `json:"quoteCurrency" validate:"omitempty,uppercase,min=3,max=4"`
}

// UpdateCurrencyRequest changes the account's preferred currency.
type UpdateCurrencyRequest struct {
	Currency string `json:"currency" validate:"required,uppercase,min=3,max=4"`
}

// UpdateRoleRequest changes the account's role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=viewer user trader admin"`
}

// WatchRequest adds or removes a watchlist entry.
type WatchRequest struct {
	Symbol    string `json:"symbol" validate:"required"`
	AssetType string `json:"assetType" validate:"required,oneof=stock crypto forex commodity index"`
}

// AccountResponse is the public shape of an account.
type AccountResponse struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	PreferredCurrency string `json:"preferredCurrency"`
	Role              string `json:"role"`
	CreatedAt         string `json:"createdAt"`
}

func NewAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		ID:                a.ID.String(),
		Username:          a.Username,
		PreferredCurrency: a.PreferredCurrency,
		Role:              string(a.Role),
		CreatedAt:         a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// PortfolioResponse bundles everything the portfolio view needs.
type PortfolioResponse struct {
	Balances     []models.Balance     `json:"balances"`
	Holdings     []models.Holding     `json:"holdings"`
	Transactions []models.Transaction `json:"transactions"`
}
