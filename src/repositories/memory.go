package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type instrumentKey struct {
	symbol    string
	assetType models.AssetType
}

// MemoryStore is a map-backed LedgerStore for tests and the "memory" driver.
// All methods are safe for concurrent use; ExecTx holds the write lock for
// the whole callback, so a trade's three writes are observed together or not
// at all.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
}

type memData struct {
	accounts     map[uuid.UUID]models.Account
	usernames    map[string]uuid.UUID
	balances     map[uuid.UUID]map[string]models.Balance
	holdings     map[uuid.UUID]map[instrumentKey]models.Holding
	transactions map[uuid.UUID][]models.Transaction
	watchlist    map[uuid.UUID]map[instrumentKey]models.WatchItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			accounts:     make(map[uuid.UUID]models.Account),
			usernames:    make(map[string]uuid.UUID),
			balances:     make(map[uuid.UUID]map[string]models.Balance),
			holdings:     make(map[uuid.UUID]map[instrumentKey]models.Holding),
			transactions: make(map[uuid.UUID][]models.Transaction),
			watchlist:    make(map[uuid.UUID]map[instrumentKey]models.WatchItem),
		},
	}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.createAccount(account)
}

func (s *MemoryStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getAccount(id)
}

func (s *MemoryStore) UpdatePreferredCurrency(ctx context.Context, id uuid.UUID, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.updateAccount(id, func(a *models.Account) { a.PreferredCurrency = currency })
}

func (s *MemoryStore) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.updateAccount(id, func(a *models.Account) { a.Role = role })
}

func (s *MemoryStore) GetBalance(ctx context.Context, accountID uuid.UUID, currency string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getBalance(accountID, currency), nil
}

func (s *MemoryStore) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, currency string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.applyBalanceDelta(accountID, currency, delta)
	return nil
}

func (s *MemoryStore) ListBalances(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.listBalances(accountID), nil
}

func (s *MemoryStore) GetHolding(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) (*models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getHolding(accountID, symbol, assetType), nil
}

func (s *MemoryStore) ApplyHoldingDelta(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType, quantityDelta, tradePrice decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.applyHoldingDelta(accountID, symbol, assetType, quantityDelta, tradePrice), nil
}

func (s *MemoryStore) ListHoldings(ctx context.Context, accountID uuid.UUID) ([]models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.listHoldings(accountID), nil
}

func (s *MemoryStore) AppendTransaction(ctx context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.appendTransaction(t)
	return nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.listTransactions(accountID), nil
}

func (s *MemoryStore) AddWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.addWatch(accountID, symbol, assetType)
	return nil
}

func (s *MemoryStore) RemoveWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.watchlist[accountID], instrumentKey{symbol, assetType})
	return nil
}

func (s *MemoryStore) ListWatchlist(ctx context.Context, accountID uuid.UUID) ([]models.WatchItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.listWatchlist(accountID), nil
}

// ExecTx runs fn under the store's write lock. The memory backend cannot
// fail mid-sequence, so there is nothing to roll back; the lock alone makes
// the writes appear together to every reader.
func (s *MemoryStore) ExecTx(ctx context.Context, fn func(LedgerStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTxView{data: s.data})
}

func (s *MemoryStore) Close() error { return nil }

// memTxView exposes the store inside ExecTx without re-locking.
type memTxView struct {
	data *memData
}

func (v *memTxView) CreateAccount(ctx context.Context, account *models.Account) error {
	return v.data.createAccount(account)
}

func (v *memTxView) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return v.data.getAccount(id)
}

func (v *memTxView) UpdatePreferredCurrency(ctx context.Context, id uuid.UUID, currency string) error {
	return v.data.updateAccount(id, func(a *models.Account) { a.PreferredCurrency = currency })
}

func (v *memTxView) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	return v.data.updateAccount(id, func(a *models.Account) { a.Role = role })
}

func (v *memTxView) GetBalance(ctx context.Context, accountID uuid.UUID, currency string) (decimal.Decimal, error) {
	return v.data.getBalance(accountID, currency), nil
}

func (v *memTxView) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, currency string, delta decimal.Decimal) error {
	v.data.applyBalanceDelta(accountID, currency, delta)
	return nil
}

func (v *memTxView) ListBalances(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error) {
	return v.data.listBalances(accountID), nil
}

func (v *memTxView) GetHolding(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) (*models.Holding, error) {
	return v.data.getHolding(accountID, symbol, assetType), nil
}

func (v *memTxView) ApplyHoldingDelta(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType, quantityDelta, tradePrice decimal.Decimal) (decimal.Decimal, error) {
	return v.data.applyHoldingDelta(accountID, symbol, assetType, quantityDelta, tradePrice), nil
}

func (v *memTxView) ListHoldings(ctx context.Context, accountID uuid.UUID) ([]models.Holding, error) {
	return v.data.listHoldings(accountID), nil
}

func (v *memTxView) AppendTransaction(ctx context.Context, t *models.Transaction) error {
	v.data.appendTransaction(t)
	return nil
}

func (v *memTxView) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]models.Transaction, error) {
	return v.data.listTransactions(accountID), nil
}

func (v *memTxView) AddWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error {
	v.data.addWatch(accountID, symbol, assetType)
	return nil
}

func (v *memTxView) RemoveWatch(ctx context.Context, accountID uuid.UUID, symbol string, assetType models.AssetType) error {
	delete(v.data.watchlist[accountID], instrumentKey{symbol, assetType})
	return nil
}

func (v *memTxView) ListWatchlist(ctx context.Context, accountID uuid.UUID) ([]models.WatchItem, error) {
	return v.data.listWatchlist(accountID), nil
}

func (v *memTxView) ExecTx(ctx context.Context, fn func(LedgerStore) error) error {
	// Already inside the lock.
	return fn(v)
}

func (v *memTxView) Close() error { return nil }

func (d *memData) createAccount(account *models.Account) error {
	if _, ok := d.usernames[account.Username]; ok {
		return ErrDuplicateUsername
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	d.accounts[account.ID] = *account
	d.usernames[account.Username] = account.ID
	return nil
}

func (d *memData) getAccount(id uuid.UUID) (*models.Account, error) {
	a, ok := d.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (d *memData) updateAccount(id uuid.UUID, mutate func(*models.Account)) error {
	a, ok := d.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	mutate(&a)
	d.accounts[id] = a
	return nil
}

func (d *memData) getBalance(accountID uuid.UUID, currency string) decimal.Decimal {
	b, ok := d.balances[accountID][currency]
	if !ok {
		return decimal.Zero
	}
	return b.Amount
}

func (d *memData) applyBalanceDelta(accountID uuid.UUID, currency string, delta decimal.Decimal) {
	if d.balances[accountID] == nil {
		d.balances[accountID] = make(map[string]models.Balance)
	}
	b := d.balances[accountID][currency]
	d.balances[accountID][currency] = models.Balance{
		AccountID: accountID,
		Currency:  currency,
		Amount:    b.Amount.Add(delta),
		UpdatedAt: time.Now().UTC(),
	}
}

func (d *memData) listBalances(accountID uuid.UUID) []models.Balance {
	out := make([]models.Balance, 0, len(d.balances[accountID]))
	for _, b := range d.balances[accountID] {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

func (d *memData) getHolding(accountID uuid.UUID, symbol string, assetType models.AssetType) *models.Holding {
	h, ok := d.holdings[accountID][instrumentKey{symbol, assetType}]
	if !ok {
		return nil
	}
	return &h
}

func (d *memData) applyHoldingDelta(accountID uuid.UUID, symbol string, assetType models.AssetType, quantityDelta, tradePrice decimal.Decimal) decimal.Decimal {
	if d.holdings[accountID] == nil {
		d.holdings[accountID] = make(map[instrumentKey]models.Holding)
	}
	key := instrumentKey{symbol, assetType}
	h, ok := d.holdings[accountID][key]
	if !ok {
		h = models.Holding{AccountID: accountID, Symbol: symbol, AssetType: assetType}
	}

	newQty := h.Apply(quantityDelta, tradePrice)
	if !newQty.IsPositive() {
		delete(d.holdings[accountID], key)
		return newQty
	}

	h.LastUpdated = time.Now().UTC()
	d.holdings[accountID][key] = h
	return newQty
}

func (d *memData) listHoldings(accountID uuid.UUID) []models.Holding {
	out := make([]models.Holding, 0, len(d.holdings[accountID]))
	for _, h := range d.holdings[accountID] {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].AssetType < out[j].AssetType
	})
	return out
}

func (d *memData) appendTransaction(t *models.Transaction) {
	d.transactions[t.AccountID] = append(d.transactions[t.AccountID], *t)
}

func (d *memData) listTransactions(accountID uuid.UUID) []models.Transaction {
	src := d.transactions[accountID]
	out := make([]models.Transaction, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (d *memData) addWatch(accountID uuid.UUID, symbol string, assetType models.AssetType) {
	if d.watchlist[accountID] == nil {
		d.watchlist[accountID] = make(map[instrumentKey]models.WatchItem)
	}
	key := instrumentKey{symbol, assetType}
	if _, ok := d.watchlist[accountID][key]; ok {
		return
	}
	d.watchlist[accountID][key] = models.WatchItem{
		AccountID: accountID,
		Symbol:    symbol,
		AssetType: assetType,
		AddedAt:   time.Now().UTC(),
	}
}

func (d *memData) listWatchlist(accountID uuid.UUID) []models.WatchItem {
	out := make([]models.WatchItem, 0, len(d.watchlist[accountID]))
	for _, w := range d.watchlist[accountID] {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out
}
