package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "github.com/mattn/go-sqlite3"
)

// sqliteSchema mirrors the goose migrations for the embedded backend.
// Decimal columns are stored as TEXT so amounts survive round-trips exactly.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	preferred_currency TEXT NOT NULL DEFAULT 'USD',
	role TEXT NOT NULL DEFAULT 'user',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS balances (
	account_id TEXT NOT NULL,
	currency TEXT NOT NULL,
	amount TEXT NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(account_id, currency),
	FOREIGN KEY(account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS holdings (
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	asset_type TEXT NOT NULL,
	quantity TEXT NOT NULL,
	avg_price TEXT NOT NULL,
	last_updated DATETIME NOT NULL,
	UNIQUE(account_id, symbol, asset_type),
	FOREIGN KEY(account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	asset_type TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	currency TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	FOREIGN KEY(account_id) REFERENCES accounts(id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, timestamp);

CREATE TABLE IF NOT EXISTS watchlist (
	account_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	asset_type TEXT NOT NULL,
	added_at DATETIME NOT NULL,
	UNIQUE(account_id, symbol, asset_type),
	FOREIGN KEY(account_id) REFERENCES accounts(id)
);
`

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx so every query below
// can run standalone or inside ExecTx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore is the embedded LedgerStore backend. One pooled *sql.DB is
// opened for the process lifetime; individual operations never open or close
// connections themselves.
type SQLiteStore struct {
	db *sql.DB    // nil on transaction views
	q  sqlQuerier // db, or the enclosing *sql.Tx
}

// NewSQLiteStore opens (and if needed creates) the database at path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; a larger pool only produces SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, q: db}, nil
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO accounts (id, username, preferred_currency, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		account.ID, account.Username, account.PreferredCurrency, string(account.Role), account.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicateUsername
	}
	return err
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := s.q.QueryRowContext(ctx,
		`SELECT id, username, preferred_currency, role, created_at FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Username, &a.PreferredCurrency, &a.Role, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteStore) UpdatePreferredCurrency(ctx context.Context, id uuid.UUID, currency string) error {
	return s.updateAccountColumn(ctx, id, "preferred_currency", currency)
}

func (s *SQLiteStore) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	return s.updateAccountColumn(ctx, id, "role", string(role))
}

func (s *SQLiteStore) updateAccountColumn(ctx context.Context, id uuid.UUID, column, value string) error {
	res, err := s.q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE accounts SET %s = ? WHERE id = ?`, column), value, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *SQLiteStore) GetBalance(ctx context.Context, accountID uuid.UUID, currency string) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := s.q.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE account_id = ? AND currency = ?`, accountID, currency).
		Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (s *SQLiteStore) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, currency string, delta decimal.Decimal) error {
	return s.inTx(ctx, func(v *SQLiteStore) error {
		current, err := v.GetBalance(ctx, accountID, currency)
		if err != nil {
			return err
		}
		_, err = v.q.ExecContext(ctx,
			`INSERT INTO balances (account_id, currency, amount, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(account_id, currency) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`,
			accountID, currency, current.Add(delta), time.Now().UTC())
		return err
	})
}

func (s *SQLiteStore) ListBalances(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT account_id, currency, amount, updated_at FROM balances WHERE account_id = ? ORDER BY currency`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []models.Balance
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.AccountID, &b.Currency, &b.Amount, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *SQLiteStore) GetHolding(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) (*models.Holding, error) {
	var h models.Holding
	err := s.q.QueryRowContext(ctx,
		`SELECT account_id, symbol, asset_type, quantity, avg_price, last_updated
		 FROM holdings WHERE account_id = ? AND symbol = ? AND asset_type = ?`,
		accountID, symbol, string(assetType)).
		Scan(&h.AccountID, &h.Symbol, &h.AssetType, &h.Quantity, &h.AvgPrice, &h.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *SQLiteStore) ApplyHoldingDelta(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType, quantityDelta, tradePrice decimal.Decimal) (decimal.Decimal, error) {
	var newQty decimal.Decimal
	err := s.inTx(ctx, func(v *SQLiteStore) error {
		existing, err := v.GetHolding(ctx, accountID, symbol, assetType)
		if err != nil {
			return err
		}
		h := existing
		if h == nil {
			h = &models.Holding{AccountID: accountID, Symbol: symbol, AssetType: assetType}
		}

		newQty = h.Apply(quantityDelta, tradePrice)
		if !newQty.IsPositive() {
			if existing != nil {
				_, err = v.q.ExecContext(ctx,
					`DELETE FROM holdings WHERE account_id = ? AND symbol = ? AND asset_type = ?`,
					accountID, symbol, string(assetType))
			}
			return err
		}

		_, err = v.q.ExecContext(ctx,
			`INSERT INTO holdings (account_id, symbol, asset_type, quantity, avg_price, last_updated) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(account_id, symbol, asset_type) DO UPDATE SET
				quantity = excluded.quantity,
				avg_price = excluded.avg_price,
				last_updated = excluded.last_updated`,
			accountID, symbol, string(assetType), h.Quantity, h.AvgPrice, time.Now().UTC())
		return err
	})
	return newQty, err
}

func (s *SQLiteStore) ListHoldings(ctx context.Context, accountID uuid.UUID) ([]models.Holding, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT account_id, symbol, asset_type, quantity, avg_price, last_updated
		 FROM holdings WHERE account_id = ? ORDER BY symbol, asset_type`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.AccountID, &h.Symbol, &h.AssetType, &h.Quantity, &h.AvgPrice, &h.LastUpdated); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *SQLiteStore) AppendTransaction(ctx context.Context, t *models.Transaction) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, symbol, asset_type, side, quantity, price, currency, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Symbol, string(t.AssetType), string(t.Side), t.Quantity, t.Price, t.Currency, t.Timestamp)
	return err
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, account_id, symbol, asset_type, side, quantity, price, currency, timestamp
		 FROM transactions WHERE account_id = ? ORDER BY timestamp DESC, id DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &t.AssetType, &t.Side, &t.Quantity, &t.Price, &t.Currency, &t.Timestamp); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (s *SQLiteStore) AddWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO watchlist (account_id, symbol, asset_type, added_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(account_id, symbol, asset_type) DO NOTHING`,
		accountID, symbol, string(assetType), time.Now().UTC())
	return err
}

func (s *SQLiteStore) RemoveWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM watchlist WHERE account_id = ? AND symbol = ? AND asset_type = ?`,
		accountID, symbol, string(assetType))
	return err
}

func (s *SQLiteStore) ListWatchlist(ctx context.Context, accountID uuid.UUID) ([]models.WatchItem, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT account_id, symbol, asset_type, added_at FROM watchlist WHERE account_id = ? ORDER BY added_at`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.WatchItem
	for rows.Next() {
		var w models.WatchItem
		if err := rows.Scan(&w.AccountID, &w.Symbol, &w.AssetType, &w.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

// ExecTx runs fn inside a database transaction. When s already is a
// transaction view, fn joins the enclosing transaction.
func (s *SQLiteStore) ExecTx(ctx context.Context, fn func(LedgerStore) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	view := &SQLiteStore{q: tx}
	if err := fn(view); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// inTx runs fn inside the enclosing transaction if there is one, otherwise
// inside a fresh one, so read-modify-write mutations stay atomic per key.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(*SQLiteStore) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&SQLiteStore{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
