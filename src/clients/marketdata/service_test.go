package marketdata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"portfolio/src/clients/marketdata"
	"portfolio/src/config"
	"portfolio/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(quoteURL, exchangeURL string, ttl int) *marketdata.MarketDataService {
	return marketdata.NewMarketDataService(config.MarketDataConfig{
		QuoteBaseURL:    quoteURL,
		ExchangeBaseURL: exchangeURL,
		CacheTTLSeconds: ttl,
	}, config.NewsConfig{}, nil)
}

func TestResolvePriceStock(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":187.44,"currency":"USD"}]}}`))
	}))
	defer server.Close()

	svc := newService(server.URL, "", 60)

	price, currency, err := svc.ResolvePrice(context.Background(), "AAPL", models.AssetStock)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromFloat(187.44)))
	assert.Equal(t, "USD", currency)

	// second call is served from cache
	_, _, err = svc.ResolvePrice(context.Background(), "AAPL", models.AssetStock)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolvePriceCryptoPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"64321.50000000"}`))
	}))
	defer server.Close()

	svc := newService("", server.URL, 60)

	price, currency, err := svc.ResolvePrice(context.Background(), "BTC/USDT", models.AssetCrypto)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("64321.5")))
	assert.Equal(t, "USDT", currency)
}

func TestResolvePriceUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[]}}`))
	}))
	defer server.Close()

	svc := newService(server.URL, "", 60)

	_, _, err := svc.ResolvePrice(context.Background(), "NOPE", models.AssetStock)
	assert.ErrorIs(t, err, marketdata.ErrSymbolNotFound)
}

func TestResolvePriceMalformedPair(t *testing.T) {
	svc := newService("", "http://127.0.0.1:0", 60)

	_, _, err := svc.ResolvePrice(context.Background(), "BTCUSDT", models.AssetCrypto)
	assert.ErrorIs(t, err, marketdata.ErrSymbolNotFound)
}

func TestResolvePriceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":10,"currency":"USD"}]}}`))
	}))
	defer server.Close()

	svc := newService(server.URL, "", 0)

	price, _, err := svc.ResolvePrice(context.Background(), "AAPL", models.AssetStock)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		w.Write([]byte(`{"quotes":[{"symbol":"AAPL","shortname":"Apple Inc.","quoteType":"EQUITY","exchange":"NMS"}]}`))
	}))
	defer server.Close()

	svc := newService(server.URL, "", 60)

	matches, err := svc.SearchSymbol(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "AAPL", matches[0].Symbol)
}

func TestMarketNewsWithoutProvider(t *testing.T) {
	svc := newService("", "", 60)

	articles, err := svc.MarketNews(context.Background(), "tesla")
	require.NoError(t, err)
	assert.Empty(t, articles)
}
