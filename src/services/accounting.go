package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio/src/models"
	"portfolio/src/repositories"
	"portfolio/src/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PriceOracle resolves a current price and its quote currency for a symbol.
// Implemented by the marketdata client; external and allowed to be slow, so
// the engine always calls it before taking the account lock.
type PriceOracle interface {
	ResolvePrice(ctx context.Context, symbol string, assetType models.AssetType) (decimal.Decimal, string, error)
}

// CurrencyConverter converts an amount between currencies. Identity
// conversions must not reach the external service.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// TradeOrder is one buy or sell request. Price zero means "resolve via the
// oracle"; a supplied price must be positive and is quoted in QuoteCurrency
// (defaulting to the account's preferred currency when empty).
type TradeOrder struct {
	Symbol        string
	AssetType     models.AssetType
	Side          models.Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	QuoteCurrency string
}

// TradeResult is the committed outcome of a trade. ConversionDegraded is
// set when the currency converter failed and the unconverted notional was
// used as the settlement amount; callers must surface it to the user.
type TradeResult struct {
	Transaction        models.Transaction `json:"transaction"`
	Balance            decimal.Decimal    `json:"balance"`
	SettlementAmount   decimal.Decimal    `json:"settlementAmount"`
	SettlementCurrency string             `json:"settlementCurrency"`
	ConversionDegraded bool               `json:"conversionDegraded"`
}

// AccountingService is the only entry point that produces ledger
// transactions. It enforces solvency and holding sufficiency before any
// mutation and keeps balances, holdings and the transaction ledger mutually
// consistent: per account, the validation and the three writes happen under
// an exclusive lock, and the writes themselves inside one store transaction.
type AccountingService struct {
	store     repositories.LedgerStore
	oracle    PriceOracle
	converter CurrencyConverter
	locks     *accountLocks

	defaultCurrency string
	seedBalance     decimal.Decimal
}

func NewAccountingService(
	store repositories.LedgerStore,
	oracle PriceOracle,
	converter CurrencyConverter,
	defaultCurrency string,
	seedBalance decimal.Decimal,
) *AccountingService {
	return &AccountingService{
		store:           store,
		oracle:          oracle,
		converter:       converter,
		locks:           newAccountLocks(),
		defaultCurrency: defaultCurrency,
		seedBalance:     seedBalance,
	}
}

// ExecuteTrade validates and commits one trade.
//
// Price resolution and currency conversion run before the per-account lock
// is acquired, so a slow oracle never blocks other trades on the account
// longer than necessary; balance and holding checks re-read current state
// inside the lock, which is what makes concurrent buys on one account
// serialize correctly.
func (s *AccountingService) ExecuteTrade(ctx context.Context, accountID uuid.UUID, order TradeOrder) (*TradeResult, error) {
	logger := utils.LoggerFromContext(ctx)

	if !order.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if order.Side != models.SideBuy && order.Side != models.SideSell {
		return nil, fmt.Errorf("%w: side must be BUY or SELL", ErrInvalidOrder)
	}
	if !models.ValidAssetType(string(order.AssetType)) {
		return nil, fmt.Errorf("%w: unknown asset type %q", ErrInvalidOrder, order.AssetType)
	}
	if order.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol required", ErrInvalidOrder)
	}

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.Role.CanTrade() {
		return nil, ErrTradeNotPermitted
	}

	price, quoteCurrency := order.Price, order.QuoteCurrency
	if price.IsZero() {
		if s.oracle == nil {
			return nil, ErrPriceUnavailable
		}
		price, quoteCurrency, err = s.oracle.ResolvePrice(ctx, order.Symbol, order.AssetType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
		}
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	if quoteCurrency == "" {
		quoteCurrency = account.PreferredCurrency
	}

	notional := order.Quantity.Mul(price)
	settlement := notional
	degraded := false
	if quoteCurrency != account.PreferredCurrency {
		converted, convErr := s.convert(ctx, notional, quoteCurrency, account.PreferredCurrency)
		if convErr != nil {
			// Degraded mode: trade proceeds at the unconverted notional, but
			// the caller is told so. Aborting here would block trading on
			// every forex outage.
			degraded = true
			logger.WithFields(logrus.Fields{
				"account": accountID,
				"from":    quoteCurrency,
				"to":      account.PreferredCurrency,
			}).WithError(convErr).Warn("currency conversion degraded, settling at notional")
		} else {
			settlement = converted
		}
	}

	record := models.Transaction{
		ID:        utils.NewID(),
		AccountID: accountID,
		Symbol:    order.Symbol,
		AssetType: order.AssetType,
		Side:      order.Side,
		Quantity:  order.Quantity,
		Price:     price,
		Currency:  quoteCurrency,
		Timestamp: time.Now().UTC(),
	}

	lock := s.locks.get(accountID)
	lock.Lock()
	defer lock.Unlock()

	err = s.store.ExecTx(ctx, func(tx repositories.LedgerStore) error {
		switch order.Side {
		case models.SideBuy:
			balance, err := tx.GetBalance(ctx, accountID, account.PreferredCurrency)
			if err != nil {
				return err
			}
			if balance.LessThan(settlement) {
				return fmt.Errorf("%w: have %s %s, need %s %s", ErrInsufficientFunds,
					balance, account.PreferredCurrency, settlement, account.PreferredCurrency)
			}
			if err := tx.ApplyBalanceDelta(ctx, accountID, account.PreferredCurrency, settlement.Neg()); err != nil {
				return err
			}
			if _, err := tx.ApplyHoldingDelta(ctx, accountID, order.Symbol, order.AssetType, order.Quantity, price); err != nil {
				return err
			}
		case models.SideSell:
			holding, err := tx.GetHolding(ctx, accountID, order.Symbol, order.AssetType)
			if err != nil {
				return err
			}
			if holding == nil || holding.Quantity.LessThan(order.Quantity) {
				return fmt.Errorf("%w: %s %s", ErrInsufficientHoldings, order.Symbol, order.AssetType)
			}
			if err := tx.ApplyBalanceDelta(ctx, accountID, account.PreferredCurrency, settlement); err != nil {
				return err
			}
			if _, err := tx.ApplyHoldingDelta(ctx, accountID, order.Symbol, order.AssetType, order.Quantity.Neg(), price); err != nil {
				return err
			}
		}
		return tx.AppendTransaction(ctx, &record)
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInsufficientHoldings) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	balance, err := s.store.GetBalance(ctx, accountID, account.PreferredCurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	logger.WithFields(logrus.Fields{
		"account":    accountID,
		"symbol":     order.Symbol,
		"side":       order.Side,
		"quantity":   order.Quantity,
		"price":      price,
		"settlement": settlement,
		"currency":   account.PreferredCurrency,
		"degraded":   degraded,
	}).Info("trade committed")

	return &TradeResult{
		Transaction:        record,
		Balance:            balance,
		SettlementAmount:   settlement,
		SettlementCurrency: account.PreferredCurrency,
		ConversionDegraded: degraded,
	}, nil
}

func (s *AccountingService) convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	if s.converter == nil {
		return decimal.Zero, errors.New("no currency converter configured")
	}
	return s.converter.Convert(ctx, amount, from, to)
}

// GetBalance reads the cash amount for one currency. Display reads never
// take the account lock; they may observe the state mid-trade of a
// concurrent request, which is fine for presentation.
func (s *AccountingService) GetBalance(ctx context.Context, accountID uuid.UUID, currency string) (decimal.Decimal, error) {
	return s.store.GetBalance(ctx, accountID, currency)
}

func (s *AccountingService) ListBalances(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error) {
	return s.store.ListBalances(ctx, accountID)
}

func (s *AccountingService) ListHoldings(ctx context.Context, accountID uuid.UUID) ([]models.Holding, error) {
	return s.store.ListHoldings(ctx, accountID)
}

func (s *AccountingService) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, accountID)
}
