package repositories_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"portfolio/src/models"
	"portfolio/src/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMemoryStore(t *testing.T) {
	runLedgerStoreSuite(t, repositories.NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := repositories.NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	runLedgerStoreSuite(t, store)
}

// runLedgerStoreSuite exercises the LedgerStore contract; both backends must
// behave identically.
func runLedgerStoreSuite(t *testing.T, store repositories.LedgerStore) {
	ctx := context.Background()

	account := &models.Account{
		Username:          "alice",
		PreferredCurrency: "USD",
		Role:              models.RoleUser,
	}
	require.NoError(t, store.CreateAccount(ctx, account))
	require.NotEqual(t, uuid.Nil, account.ID)

	t.Run("accounts", func(t *testing.T) {
		got, err := store.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "USD", got.PreferredCurrency)

		dup := &models.Account{Username: "alice", PreferredCurrency: "EUR", Role: models.RoleUser}
		assert.ErrorIs(t, store.CreateAccount(ctx, dup), repositories.ErrDuplicateUsername)

		_, err = store.GetAccount(ctx, uuid.New())
		assert.ErrorIs(t, err, repositories.ErrAccountNotFound)

		require.NoError(t, store.UpdatePreferredCurrency(ctx, account.ID, "EUR"))
		require.NoError(t, store.UpdateRole(ctx, account.ID, models.RoleTrader))
		got, err = store.GetAccount(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "EUR", got.PreferredCurrency)
		assert.Equal(t, models.RoleTrader, got.Role)

		assert.ErrorIs(t, store.UpdateRole(ctx, uuid.New(), models.RoleAdmin), repositories.ErrAccountNotFound)

		require.NoError(t, store.UpdatePreferredCurrency(ctx, account.ID, "USD"))
	})

	t.Run("balance delta creates row lazily", func(t *testing.T) {
		amount, err := store.GetBalance(ctx, account.ID, "USD")
		require.NoError(t, err)
		assert.True(t, amount.IsZero())

		require.NoError(t, store.ApplyBalanceDelta(ctx, account.ID, "USD", d("100000")))
		require.NoError(t, store.ApplyBalanceDelta(ctx, account.ID, "USD", d("-250.50")))

		amount, err = store.GetBalance(ctx, account.ID, "USD")
		require.NoError(t, err)
		assert.True(t, amount.Equal(d("99749.5")), "got %s", amount)

		// second currency lands in its own row
		require.NoError(t, store.ApplyBalanceDelta(ctx, account.ID, "EUR", d("10")))
		balances, err := store.ListBalances(ctx, account.ID)
		require.NoError(t, err)
		require.Len(t, balances, 2)
		assert.Equal(t, "EUR", balances[0].Currency)
		assert.Equal(t, "USD", balances[1].Currency)
	})

	t.Run("holding lifecycle", func(t *testing.T) {
		h, err := store.GetHolding(ctx, account.ID, "AAPL", models.AssetStock)
		require.NoError(t, err)
		assert.Nil(t, h)

		newQty, err := store.ApplyHoldingDelta(ctx, account.ID, "AAPL", models.AssetStock, d("10"), d("50"))
		require.NoError(t, err)
		assert.True(t, newQty.Equal(d("10")))

		newQty, err = store.ApplyHoldingDelta(ctx, account.ID, "AAPL", models.AssetStock, d("5"), d("60"))
		require.NoError(t, err)
		assert.True(t, newQty.Equal(d("15")))

		h, err = store.GetHolding(ctx, account.ID, "AAPL", models.AssetStock)
		require.NoError(t, err)
		require.NotNil(t, h)
		assert.True(t, h.AvgPrice.Equal(d("800").Div(d("15"))), "got %s", h.AvgPrice)

		// sells never move the average
		newQty, err = store.ApplyHoldingDelta(ctx, account.ID, "AAPL", models.AssetStock, d("-8"), d("70"))
		require.NoError(t, err)
		assert.True(t, newQty.Equal(d("7")))
		h, err = store.GetHolding(ctx, account.ID, "AAPL", models.AssetStock)
		require.NoError(t, err)
		require.NotNil(t, h)
		assert.True(t, h.AvgPrice.Equal(d("800").Div(d("15"))))

		// exact liquidation removes the row
		newQty, err = store.ApplyHoldingDelta(ctx, account.ID, "AAPL", models.AssetStock, d("-7"), d("70"))
		require.NoError(t, err)
		assert.True(t, newQty.IsZero())
		h, err = store.GetHolding(ctx, account.ID, "AAPL", models.AssetStock)
		require.NoError(t, err)
		assert.Nil(t, h)

		// same symbol under a different asset class is a distinct position
		_, err = store.ApplyHoldingDelta(ctx, account.ID, "GLD", models.AssetStock, d("1"), d("180"))
		require.NoError(t, err)
		_, err = store.ApplyHoldingDelta(ctx, account.ID, "GLD", models.AssetCommodity, d("2"), d("175"))
		require.NoError(t, err)
		holdings, err := store.ListHoldings(ctx, account.ID)
		require.NoError(t, err)
		assert.Len(t, holdings, 2)
	})

	t.Run("transactions newest first", func(t *testing.T) {
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		for i, id := range []string{"01A", "01B", "01C"} {
			tx := &models.Transaction{
				ID:        id,
				AccountID: account.ID,
				Symbol:    "AAPL",
				AssetType: models.AssetStock,
				Side:      models.SideBuy,
				Quantity:  d("1"),
				Price:     d("50"),
				Currency:  "USD",
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, store.AppendTransaction(ctx, tx))
		}
		// timestamp tie: insertion order (id) breaks it
		require.NoError(t, store.AppendTransaction(ctx, &models.Transaction{
			ID: "01D", AccountID: account.ID, Symbol: "AAPL", AssetType: models.AssetStock,
			Side: models.SideSell, Quantity: d("1"), Price: d("55"), Currency: "USD",
			Timestamp: base.Add(2 * time.Minute),
		}))

		transactions, err := store.ListTransactions(ctx, account.ID)
		require.NoError(t, err)
		require.Len(t, transactions, 4)
		assert.Equal(t, "01D", transactions[0].ID)
		assert.Equal(t, "01C", transactions[1].ID)
		assert.Equal(t, "01B", transactions[2].ID)
		assert.Equal(t, "01A", transactions[3].ID)
	})

	t.Run("watchlist add is idempotent", func(t *testing.T) {
		require.NoError(t, store.AddWatch(ctx, account.ID, "BTC/USDT", models.AssetCrypto))
		require.NoError(t, store.AddWatch(ctx, account.ID, "BTC/USDT", models.AssetCrypto))
		require.NoError(t, store.AddWatch(ctx, account.ID, "AAPL", models.AssetStock))

		items, err := store.ListWatchlist(ctx, account.ID)
		require.NoError(t, err)
		assert.Len(t, items, 2)

		require.NoError(t, store.RemoveWatch(ctx, account.ID, "BTC/USDT", models.AssetCrypto))
		items, err = store.ListWatchlist(ctx, account.ID)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("ExecTx rolls back on error", func(t *testing.T) {
		other := &models.Account{Username: "bob", PreferredCurrency: "USD", Role: models.RoleUser}
		require.NoError(t, store.CreateAccount(ctx, other))

		require.NoError(t, store.ExecTx(ctx, func(tx repositories.LedgerStore) error {
			return tx.ApplyBalanceDelta(ctx, other.ID, "USD", d("500"))
		}))
		amount, err := store.GetBalance(ctx, other.ID, "USD")
		require.NoError(t, err)
		assert.True(t, amount.Equal(d("500")))

		sentinel := assert.AnError
		err = store.ExecTx(ctx, func(tx repositories.LedgerStore) error {
			if err := tx.ApplyBalanceDelta(ctx, other.ID, "USD", d("-500")); err != nil {
				return err
			}
			if _, err := tx.ApplyHoldingDelta(ctx, other.ID, "AAPL", models.AssetStock, d("1"), d("500")); err != nil {
				return err
			}
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		if _, ok := store.(*repositories.MemoryStore); !ok {
			// SQL backends must leave no trace of the aborted sequence.
			amount, err = store.GetBalance(ctx, other.ID, "USD")
			require.NoError(t, err)
			assert.True(t, amount.Equal(d("500")), "got %s", amount)
			h, err := store.GetHolding(ctx, other.ID, "AAPL", models.AssetStock)
			require.NoError(t, err)
			assert.Nil(t, h)
		}
	})
}
