package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio/src/config"
	"portfolio/src/models"
	"portfolio/src/utils"
	redis_utils "portfolio/src/utils/redis"
	"portfolio/src/utils/requests"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

var (
	// ErrSymbolNotFound means the upstream answered but knows no such symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrUnavailable means the upstream could not be reached or answered
	// with a server error after retries.
	ErrUnavailable = errors.New("market data unavailable")
)

// MarketDataService resolves current prices for stocks, indices and
// commodities from a quote endpoint and for crypto and forex pairs from an
// exchange ticker. Quotes are cached, in redis when configured and in
// process otherwise, so a burst of trades on one symbol costs one upstream
// call.
type MarketDataService struct {
	api      *requests.ExternalAPIService
	redis    *redis_utils.RedisHandler
	cache    *utils.Cache[Quote]
	cfg      config.MarketDataConfig
	news     config.NewsConfig
	cacheTTL time.Duration
}

func NewMarketDataService(cfg config.MarketDataConfig, news config.NewsConfig, redis *redis_utils.RedisHandler) *MarketDataService {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &MarketDataService{
		api:      requests.NewExternalAPIService(),
		redis:    redis,
		cache:    utils.NewCache[Quote](),
		cfg:      cfg,
		news:     news,
		cacheTTL: ttl,
	}
}

// ResolvePrice returns the current price and quote currency for a symbol.
// Crypto and forex symbols are pairs like "BTC/USDT"; everything else goes
// to the quote endpoint as-is.
func (s *MarketDataService) ResolvePrice(ctx context.Context, symbol string, assetType models.AssetType) (decimal.Decimal, string, error) {
	quote, err := s.GetQuote(ctx, symbol, assetType)
	if err != nil {
		return decimal.Zero, "", err
	}
	return quote.Price, quote.Currency, nil
}

// GetQuote fetches a price snapshot, serving from cache when fresh.
func (s *MarketDataService) GetQuote(ctx context.Context, symbol string, assetType models.AssetType) (*Quote, error) {
	cacheKey := fmt.Sprintf("quote:%s:%s", assetType, symbol)
	if quote, ok := s.cached(ctx, cacheKey); ok {
		return quote, nil
	}

	var quote *Quote
	var err error
	switch assetType {
	case models.AssetCrypto, models.AssetForex:
		quote, err = s.fetchTicker(ctx, symbol)
	default:
		quote, err = s.fetchQuote(ctx, symbol)
	}
	if err != nil {
		return nil, err
	}

	s.store(ctx, cacheKey, *quote)
	return quote, nil
}

func (s *MarketDataService) cached(ctx context.Context, key string) (*Quote, bool) {
	if s.redis != nil {
		var quote Quote
		if ok, err := s.redis.Get(ctx, key, &quote); err == nil && ok {
			return &quote, true
		}
	}
	if quote, ok := s.cache.Get(key); ok {
		return &quote, true
	}
	return nil, false
}

func (s *MarketDataService) store(ctx context.Context, key string, quote Quote) {
	if s.redis != nil {
		// Cache write failures are not worth failing the quote over.
		_ = s.redis.Set(ctx, key, quote, s.cacheTTL)
	}
	s.cache.Set(key, quote, s.cacheTTL)
}

func (s *MarketDataService) fetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("symbols", symbol)

	var parsed yahooQuoteResponse
	if err := s.getJSON(ctx, s.cfg.QuoteBaseURL+"/v7/finance/quote", params, nil, &parsed); err != nil {
		return nil, err
	}
	if parsed.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, parsed.QuoteResponse.Error.Description)
	}
	if len(parsed.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	result := parsed.QuoteResponse.Result[0]
	if result.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("%w: no market price for %s", ErrSymbolNotFound, symbol)
	}
	currency := result.Currency
	if currency == "" {
		currency = "USD"
	}
	return &Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(result.RegularMarketPrice),
		Currency:  currency,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// fetchTicker resolves a pair like "BTC/USDT" against the exchange. The
// quote currency is the right-hand leg of the pair.
func (s *MarketDataService) fetchTicker(ctx context.Context, symbol string) (*Quote, error) {
	base, quoteCurrency, ok := strings.Cut(symbol, "/")
	if !ok || base == "" || quoteCurrency == "" {
		return nil, fmt.Errorf("%w: pair symbol required, got %q", ErrSymbolNotFound, symbol)
	}

	params := url.Values{}
	params.Set("symbol", base+quoteCurrency)

	var ticker exchangeTicker
	if err := s.getJSON(ctx, s.cfg.ExchangeBaseURL+"/api/v3/ticker/price", params, nil, &ticker); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil || !price.IsPositive() {
		return nil, fmt.Errorf("%w: bad ticker price %q for %s", ErrUnavailable, ticker.Price, symbol)
	}
	return &Quote{
		Symbol:    symbol,
		Price:     price,
		Currency:  quoteCurrency,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// SearchSymbol looks up tradable symbols matching a free-text query.
func (s *MarketDataService) SearchSymbol(ctx context.Context, query string) ([]SymbolMatch, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", "10")

	var parsed yahooSearchResponse
	if err := s.getJSON(ctx, s.cfg.QuoteBaseURL+"/v1/finance/search", params, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Quotes, nil
}

// MarketNews returns recent headlines for a query, empty when no news
// provider is configured.
func (s *MarketDataService) MarketNews(ctx context.Context, query string) ([]NewsArticle, error) {
	if s.news.BaseURL == "" || s.news.APIKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", "20")
	headers := map[string]string{"X-Api-Key": s.news.APIKey}

	var parsed newsResponse
	if err := s.getJSON(ctx, s.news.BaseURL+"/v2/everything", params, headers, &parsed); err != nil {
		return nil, err
	}
	return parsed.Articles, nil
}

// getJSON performs a GET with retries on transient failures and decodes the
// body into out. 4xx answers are terminal, 5xx and transport errors retry.
func (s *MarketDataService) getJSON(ctx context.Context, endpoint string, params url.Values, headers map[string]string, out interface{}) error {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := s.api.GetWithHeaders(ctx, endpoint, params, headers)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrSymbolNotFound
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode))
		case resp.StatusCode >= 400:
			return fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
		}
		return nil
	})
	return err
}
