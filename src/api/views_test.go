package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"portfolio/src/api"
	"portfolio/src/clients/marketdata"
	"portfolio/src/config"
	"portfolio/src/repositories"
	"portfolio/src/services"
	"portfolio/src/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := repositories.NewMemoryStore()
	accounting := services.NewAccountingService(store, nil, nil, "USD", decimal.NewFromInt(100000))
	marketData := marketdata.NewMarketDataService(config.MarketDataConfig{}, config.NewsConfig{}, nil)

	server := httptest.NewServer(api.NewRouter(api.Dependencies{
		Logger:     utils.NewLogger("error"),
		Accounting: accounting,
		MarketData: marketData,
	}))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createAccount(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/accounts", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var account struct {
		ID string `json:"id"`
	}
	decode(t, resp, &account)
	require.NotEmpty(t, account.ID)
	return account.ID
}

func TestAlive(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/alive")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccountAndTradeFlow(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server)

	// buy
	resp := postJSON(t, server.URL+"/api/accounts/"+id+"/trades", map[string]interface{}{
		"symbol": "AAPL", "assetType": "stock", "side": "BUY",
		"quantity": "10", "price": "50",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Balance            decimal.Decimal `json:"balance"`
		ConversionDegraded bool            `json:"conversionDegraded"`
	}
	decode(t, resp, &result)
	assert.True(t, result.Balance.Equal(decimal.NewFromInt(99500)))
	assert.False(t, result.ConversionDegraded)

	// portfolio view reflects the trade
	resp, err := http.Get(server.URL + "/api/accounts/" + id + "/portfolio")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var portfolio struct {
		Balances     []json.RawMessage `json:"balances"`
		Holdings     []json.RawMessage `json:"holdings"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	decode(t, resp, &portfolio)
	assert.Len(t, portfolio.Balances, 1)
	assert.Len(t, portfolio.Holdings, 1)
	assert.Len(t, portfolio.Transactions, 1)

	// CSV export
	resp, err = http.Get(server.URL + "/api/accounts/" + id + "/portfolio.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
}

func TestTradeErrorStatuses(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server)

	cases := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{
			"oversell is unprocessable",
			map[string]interface{}{"symbol": "AAPL", "assetType": "stock", "side": "SELL", "quantity": "1", "price": "50"},
			http.StatusUnprocessableEntity,
		},
		{
			"unaffordable buy is unprocessable",
			map[string]interface{}{"symbol": "AAPL", "assetType": "stock", "side": "BUY", "quantity": "1", "price": "100001"},
			http.StatusUnprocessableEntity,
		},
		{
			"bad side is a bad request",
			map[string]interface{}{"symbol": "AAPL", "assetType": "stock", "side": "HOLD", "quantity": "1", "price": "50"},
			http.StatusBadRequest,
		},
		{
			"zero quantity is a bad request",
			map[string]interface{}{"symbol": "AAPL", "assetType": "stock", "side": "BUY", "quantity": "0", "price": "50"},
			http.StatusBadRequest,
		},
		{
			"missing price without oracle is a bad gateway",
			map[string]interface{}{"symbol": "AAPL", "assetType": "stock", "side": "BUY", "quantity": "1"},
			http.StatusBadGateway,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/accounts/"+id+"/trades", tc.body)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestUnknownAccountIs404(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/accounts/0b2d9bfb-a1a3-4a78-b77e-5d63b8d7b4a5/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDuplicateUsernameIs422(t *testing.T) {
	server := newTestServer(t)
	createAccount(t, server)

	resp := postJSON(t, server.URL+"/api/accounts", map[string]string{"username": "alice"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestWatchlistEndpoints(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server)

	resp := postJSON(t, server.URL+"/api/accounts/"+id+"/watchlist", map[string]string{
		"symbol": "BTC/USDT", "assetType": "crypto",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp2, err := http.Get(server.URL + "/api/accounts/" + id + "/watchlist")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var items []json.RawMessage
	decode(t, resp2, &items)
	assert.Len(t, items, 1)
}

func TestRoleGateOverHTTP(t *testing.T) {
	server := newTestServer(t)
	id := createAccount(t, server)

	req, err := http.NewRequest(http.MethodPut, server.URL+"/api/accounts/"+id+"/role",
		bytes.NewReader([]byte(`{"role":"viewer"}`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = postJSON(t, server.URL+"/api/accounts/"+id+"/trades", map[string]interface{}{
		"symbol": "AAPL", "assetType": "stock", "side": "BUY", "quantity": "1", "price": "50",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
