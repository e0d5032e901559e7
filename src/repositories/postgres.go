package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio/src/config"
	"portfolio/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the pooled postgres LedgerStore backend. Schema lives in
// the goose migrations under migrations/.
type PostgresStore struct {
	pool *pgxpool.Pool // nil on transaction views
	q    pgxQuerier
}

// NewPostgresStore builds the connection pool from configuration and
// verifies connectivity.
func NewPostgresStore(ctx context.Context, cfg config.SQLConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, q: pool}, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := s.q.Exec(ctx,
		`INSERT INTO accounts (id, username, preferred_currency, role, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5)`,
		account.ID.String(), account.Username, account.PreferredCurrency, string(account.Role), account.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateUsername
	}
	return err
}

func (s *PostgresStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var (
		a     models.Account
		rawID string
		role  string
	)
	err := s.q.QueryRow(ctx,
		`SELECT id::text, username, preferred_currency, role, created_at FROM accounts WHERE id = $1::uuid`,
		id.String()).
		Scan(&rawID, &a.Username, &a.PreferredCurrency, &role, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	a.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	return &a, nil
}

func (s *PostgresStore) UpdatePreferredCurrency(ctx context.Context, id uuid.UUID, currency string) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE accounts SET preferred_currency = $1 WHERE id = $2::uuid`, currency, id.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE accounts SET role = $1 WHERE id = $2::uuid`, string(role), id.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, accountID uuid.UUID, currency string) (decimal.Decimal, error) {
	var raw string
	err := s.q.QueryRow(ctx,
		`SELECT amount::text FROM balances WHERE account_id = $1::uuid AND currency = $2`,
		accountID.String(), currency).
		Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (s *PostgresStore) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, currency string, delta decimal.Decimal) error {
	// Numeric addition happens server side, so the upsert is atomic per key
	// without a round trip.
	_, err := s.q.Exec(ctx,
		`INSERT INTO balances (account_id, currency, amount, updated_at)
		 VALUES ($1::uuid, $2, $3::numeric, $4)
		 ON CONFLICT (account_id, currency) DO UPDATE SET
			amount = balances.amount + EXCLUDED.amount,
			updated_at = EXCLUDED.updated_at`,
		accountID.String(), currency, delta.String(), time.Now().UTC())
	return err
}

func (s *PostgresStore) ListBalances(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error) {
	rows, err := s.q.Query(ctx,
		`SELECT currency, amount::text, updated_at FROM balances WHERE account_id = $1::uuid ORDER BY currency`,
		accountID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []models.Balance
	for rows.Next() {
		b := models.Balance{AccountID: accountID}
		var raw string
		if err := rows.Scan(&b.Currency, &raw, &b.UpdatedAt); err != nil {
			return nil, err
		}
		if b.Amount, err = decimal.NewFromString(raw); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *PostgresStore) GetHolding(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) (*models.Holding, error) {
	return s.getHolding(ctx, accountID, symbol, assetType, false)
}

func (s *PostgresStore) getHolding(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType, forUpdate bool) (*models.Holding, error) {
	query := `SELECT quantity::text, avg_price::text, last_updated
		 FROM holdings WHERE account_id = $1::uuid AND symbol = $2 AND asset_type = $3`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	h := models.Holding{AccountID: accountID, Symbol: symbol, AssetType: assetType}
	var rawQty, rawAvg string
	err := s.q.QueryRow(ctx, query, accountID.String(), symbol, string(assetType)).
		Scan(&rawQty, &rawAvg, &h.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if h.Quantity, err = decimal.NewFromString(rawQty); err != nil {
		return nil, err
	}
	if h.AvgPrice, err = decimal.NewFromString(rawAvg); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *PostgresStore) ApplyHoldingDelta(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType, quantityDelta, tradePrice decimal.Decimal) (decimal.Decimal, error) {
	var newQty decimal.Decimal
	err := s.inTx(ctx, func(v *PostgresStore) error {
		existing, err := v.getHolding(ctx, accountID, symbol, assetType, true)
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
				_, err = v.q.Exec(ctx,
					`DELETE FROM holdings WHERE account_id = $1::uuid AND symbol = $2 AND asset_type = $3`,
					accountID.String(), symbol, string(assetType))
			}
			return err
		}

		_, err = v.q.Exec(ctx,
			`INSERT INTO holdings (account_id, symbol, asset_type, quantity, avg_price, last_updated)
			 VALUES ($1::uuid, $2, $3, $4::numeric, $5::numeric, $6)
			 ON CONFLICT (account_id, symbol, asset_type) DO UPDATE SET
				quantity = EXCLUDED.quantity,
				avg_price = EXCLUDED.avg_price,
				last_updated = EXCLUDED.last_updated`,
			accountID.String(), symbol, string(assetType), h.Quantity.String(), h.AvgPrice.String(), time.Now().UTC())
		return err
	})
	return newQty, err
}

func (s *PostgresStore) ListHoldings(ctx context.Context, accountID uuid.UUID) ([]models.Holding, error) {
	rows, err := s.q.Query(ctx,
		`SELECT symbol, asset_type, quantity::text, avg_price::text, last_updated
		 FROM holdings WHERE account_id = $1::uuid ORDER BY symbol, asset_type`,
		accountID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		h := models.Holding{AccountID: accountID}
		var assetType, rawQty, rawAvg string
		if err := rows.Scan(&h.Symbol, &assetType, &rawQty, &rawAvg, &h.LastUpdated); err != nil {
			return nil, err
		}
		h.AssetType = models.AssetType(assetType)
		if h.Quantity, err = decimal.NewFromString(rawQty); err != nil {
			return nil, err
		}
		if h.AvgPrice, err = decimal.NewFromString(rawAvg); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (s *PostgresStore) AppendTransaction(ctx context.Context, t *models.Transaction) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO transactions (id, account_id, symbol, asset_type, side, quantity, price, currency, timestamp)
		 VALUES ($1, $2::uuid, $3, $4, $5, $6::numeric, $7::numeric, $8, $9)`,
		t.ID, t.AccountID.String(), t.Symbol, string(t.AssetType), string(t.Side),
		t.Quantity.String(), t.Price.String(), t.Currency, t.Timestamp)
	return err
}

func (s *PostgresStore) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	rows, err := s.q.Query(ctx,
		`SELECT id, symbol, asset_type, side, quantity::text, price::text, currency, timestamp
		 FROM transactions WHERE account_id = $1::uuid ORDER BY timestamp DESC, id DESC`,
		accountID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t := models.Transaction{AccountID: accountID}
		var assetType, side, rawQty, rawPrice string
		if err := rows.Scan(&t.ID, &t.Symbol, &assetType, &side, &rawQty, &rawPrice, &t.Currency, &t.Timestamp); err != nil {
			return nil, err
		}
		t.AssetType = models.AssetType(assetType)
		t.Side = models.Side(side)
		if t.Quantity, err = decimal.NewFromString(rawQty); err != nil {
			return nil, err
		}
		if t.Price, err = decimal.NewFromString(rawPrice); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (s *PostgresStore) AddWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO watchlist (account_id, symbol, asset_type, added_at) VALUES ($1::uuid, $2, $3, $4)
		 ON CONFLICT (account_id, symbol, asset_type) DO NOTHING`,
		accountID.String(), symbol, string(assetType), time.Now().UTC())
	return err
}

func (s *PostgresStore) RemoveWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error {
	_, err := s.q.Exec(ctx,
		`DELETE FROM watchlist WHERE account_id = $1::uuid AND symbol = $2 AND asset_type = $3`,
		accountID.String(), symbol, string(assetType))
	return err
}

func (s *PostgresStore) ListWatchlist(ctx context.Context, accountID uuid.UUID) ([]models.WatchItem, error) {
	rows, err := s.q.Query(ctx,
		`SELECT symbol, asset_type, added_at FROM watchlist WHERE account_id = $1::uuid ORDER BY added_at`,
		accountID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.WatchItem
	for rows.Next() {
		w := models.WatchItem{AccountID: accountID}
		var assetType string
		if err := rows.Scan(&w.Symbol, &assetType, &w.AddedAt); err != nil {
			return nil, err
		}
		w.AssetType = models.AssetType(assetType)
		items = append(items, w)
	}
	return items, rows.Err()
}

// ExecTx runs fn inside a database transaction; nested calls join the
// enclosing one.
func (s *PostgresStore) ExecTx(ctx context.Context, fn func(LedgerStore) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}

	view := &PostgresStore{q: tx}
	if err := fn(view); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(*PostgresStore) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(&PostgresStore{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
