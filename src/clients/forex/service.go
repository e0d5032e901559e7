package forex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"portfolio/src/config"
	"portfolio/src/utils"
	"portfolio/src/utils/requests"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

// ErrRateUnavailable means no exchange rate could be obtained for the pair.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

type ratesResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// ForexService converts amounts between fiat currencies using a public
// rates API. Rates move slowly, so they are cached for minutes rather than
// seconds.
type ForexService struct {
	api      *requests.ExternalAPIService
	cache    *utils.Cache[decimal.Decimal]
	cfg      config.ForexConfig
	cacheTTL time.Duration
}

func NewForexService(cfg config.ForexConfig) *ForexService {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ForexService{
		api:      requests.NewExternalAPIService(),
		cache:    utils.NewCache[decimal.Decimal](),
		cfg:      cfg,
		cacheTTL: ttl,
	}
}

// Convert translates amount from one currency to another at the current
// rate. Identity conversions short-circuit without touching the network.
func (s *ForexService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	rate, err := s.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// Rate returns the from->to exchange rate, cached per pair.
func (s *ForexService) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	cacheKey := from + "/" + to
	if rate, ok := s.cache.Get(cacheKey); ok {
		return rate, nil
	}

	params := url.Values{}
	params.Set("base", from)
	params.Set("symbols", to)

	var parsed ratesResponse
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := s.api.Get(ctx, s.cfg.BaseURL+"/latest", params)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrRateUnavailable, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("%w: upstream status %d", ErrRateUnavailable, resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: upstream status %d", ErrRateUnavailable, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrRateUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	raw, ok := parsed.Rates[to]
	if !ok || raw <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no %s rate in response", ErrRateUnavailable, to)
	}

	rate := decimal.NewFromFloat(raw)
	s.cache.Set(cacheKey, rate, s.cacheTTL)
	return rate, nil
}
