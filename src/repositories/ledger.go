package repositories

import (
	"context"
	"errors"

	"portfolio/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound is returned by account lookups for unknown ids.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateUsername is returned when creating an account with a
	// username that is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
)

// LedgerStore is durable keyed storage for the four ledger collections:
// accounts, balances, holdings and transactions (plus the watchlist).
// Each mutation is atomic per key; cross-entity consistency is the
// accounting service's job, which sequences its writes inside ExecTx under a
// per-account lock.
//
// Business rules do not live here: ApplyBalanceDelta never clamps,
// AppendTransaction never rejects. The one piece of shared arithmetic,
// weighted-average cost basis, is delegated to models.Holding.Apply.
type LedgerStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdatePreferredCurrency(ctx context.Context, id uuid.UUID, currency string) error
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error

	// GetBalance returns the cash amount for (account, currency), zero when
	// no row exists.
	GetBalance(ctx context.Context, accountID uuid.UUID, currency string) (decimal.Decimal, error)
	// ApplyBalanceDelta atomically adds delta to the (account, currency)
	// amount, creating the row when missing.
	ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, currency string, delta decimal.Decimal) error
	ListBalances(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error)

	// GetHolding returns the position for (account, symbol, assetType), nil
	// when absent.
	GetHolding(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) (*models.Holding, error)
	// ApplyHoldingDelta folds a signed quantity delta into the position using
	// the weighted-average cost-basis rule and returns the new quantity. A
	// resulting quantity <= 0 removes the row; oversells are rejected by the
	// accounting service before this is ever reached.
	ApplyHoldingDelta(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType, quantityDelta, tradePrice decimal.Decimal) (decimal.Decimal, error)
	ListHoldings(ctx context.Context, accountID uuid.UUID) ([]models.Holding, error)

	// AppendTransaction appends an immutable ledger record. It fails only on
	// storage unavailability, never on business grounds.
	AppendTransaction(ctx context.Context, t *models.Transaction) error
	// ListTransactions returns the account's records newest first; timestamp
	// ties resolve by insertion order via the ULID id.
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error)

	AddWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error
	RemoveWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error
	ListWatchlist(ctx context.Context, accountID uuid.UUID) ([]models.WatchItem, error)

	// ExecTx runs fn against a transactional view of the store: either every
	// write fn performs becomes visible, or none does. SQL backends use a
	// database transaction; the in-memory backend runs fn under its write
	// lock. Nested calls reuse the enclosing transaction.
	ExecTx(ctx context.Context, fn func(LedgerStore) error) error

	Close() error
}
