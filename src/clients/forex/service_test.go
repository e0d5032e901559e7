package forex_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"portfolio/src/clients/forex"
	"portfolio/src/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "EUR", r.URL.Query().Get("base"))
		assert.Equal(t, "USD", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"base":"EUR","date":"2026-08-28","rates":{"USD":1.08}}`))
	}))
	defer server.Close()

	svc := forex.NewForexService(config.ForexConfig{BaseURL: server.URL, CacheTTLSeconds: 300})

	got, err := svc.Convert(context.Background(), decimal.NewFromInt(100), "EUR", "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(108)), "got %s", got)

	// same pair again hits the cache
	_, err = svc.Convert(context.Background(), decimal.NewFromInt(50), "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConvertIdentity(t *testing.T) {
	svc := forex.NewForexService(config.ForexConfig{BaseURL: "http://127.0.0.1:0"})

	got, err := svc.Convert(context.Background(), decimal.NewFromInt(42), "USD", "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(42)))
}

func TestConvertMissingRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"base":"EUR","rates":{}}`))
	}))
	defer server.Close()

	svc := forex.NewForexService(config.ForexConfig{BaseURL: server.URL})

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(1), "EUR", "XXX")
	assert.ErrorIs(t, err, forex.ErrRateUnavailable)
}

func TestConvertUpstreamDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := forex.NewForexService(config.ForexConfig{BaseURL: server.URL})

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(1), "EUR", "USD")
	assert.ErrorIs(t, err, forex.ErrRateUnavailable)
}
