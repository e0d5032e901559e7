package services

import (
	"context"
	"fmt"
	"regexp"

	"portfolio/src/models"
	"portfolio/src/repositories"
	"portfolio/src/utils"

	"github.com/google/uuid"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,40}$`)
	currencyRe = regexp.MustCompile(`^[A-Z]{3,4}$`)
)

// CreateAccount registers a trading participant and seeds the configured
// starting balance in the default currency, both inside one store
// transaction so no account ever exists without its seed cash.
func (s *AccountingService) CreateAccount(ctx context.Context, username, preferredCurrency string, role models.Role) (*models.Account, error) {
	if !usernameRe.MatchString(username) {
		return nil, fmt.Errorf("%w: invalid username", ErrInvalidOrder)
	}
	if preferredCurrency == "" {
		preferredCurrency = s.defaultCurrency
	}
	if !currencyRe.MatchString(preferredCurrency) {
		return nil, fmt.Errorf("%w: invalid currency code", ErrInvalidOrder)
	}
	if role == "" {
		role = models.RoleUser
	}

	account := &models.Account{
		Username:          username,
		PreferredCurrency: preferredCurrency,
		Role:              role,
	}
	err := s.store.ExecTx(ctx, func(tx repositories.LedgerStore) error {
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		return tx.ApplyBalanceDelta(ctx, account.ID, s.defaultCurrency, s.seedBalance)
	})
	if err != nil {
		return nil, err
	}

	utils.LoggerFromContext(ctx).WithField("account", account.ID).Info("account created")
	return account, nil
}

func (s *AccountingService) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *AccountingService) SetPreferredCurrency(ctx context.Context, id uuid.UUID, currency string) error {
	if !currencyRe.MatchString(currency) {
		return fmt.Errorf("%w: invalid currency code", ErrInvalidOrder)
	}
	return s.store.UpdatePreferredCurrency(ctx, id, currency)
}

func (s *AccountingService) SetRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	switch role {
	case models.RoleViewer, models.RoleUser, models.RoleTrader, models.RoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidOrder, role)
	}
	return s.store.UpdateRole(ctx, id, role)
}

func (s *AccountingService) AddWatch(ctx context.Context, id uuid.UUID, symbol string, assetType models.AssetType) error {
	if symbol == "" || !models.ValidAssetType(string(assetType)) {
		return fmt.Errorf("%w: symbol and asset type required", ErrInvalidOrder)
	}
	return s.store.AddWatch(ctx, id, symbol, assetType)
}

func (s *AccountingService) RemoveWatch(ctx context.Context, id uuid.UUID, symbol string, assetType models.AssetType) error {
	return s.store.RemoveWatch(ctx, id, symbol, assetType)
}

func (s *AccountingService) ListWatchlist(ctx context.Context, id uuid.UUID) ([]models.WatchItem, error) {
	return s.store.ListWatchlist(ctx, id)
}

// PortfolioCSV renders the account's full portfolio as a downloadable CSV.
func (s *AccountingService) PortfolioCSV(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	transactions, err := s.store.ListTransactions(ctx, id)
	if err != nil {
		return "", nil, err
	}
	holdings, err := s.store.ListHoldings(ctx, id)
	if err != nil {
		return "", nil, err
	}
	balances, err := s.store.ListBalances(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return utils.PortfolioToCSV(transactions, holdings, balances)
}
