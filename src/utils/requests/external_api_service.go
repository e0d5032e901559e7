package requests

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// ExternalAPIService is a thin wrapper over http.Client shared by the
// market-data, forex and news clients. Callers bound each request with the
// context; the client timeout is only a backstop.
type ExternalAPIService struct {
	client *http.Client
}

// NewExternalAPIService creates a new instance of ExternalAPIService.
func NewExternalAPIService() *ExternalAPIService {
	return &ExternalAPIService{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *ExternalAPIService) makeRequest(ctx context.Context, method, endpoint string, params url.Values, headers map[string]string) (*http.Response, error) {
	if params != nil {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return s.client.Do(req)
}

// Get makes a GET request to the external service, accepting optional query
// parameters.
func (s *ExternalAPIService) Get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	return s.makeRequest(ctx, "GET", endpoint, params, nil)
}

// GetWithHeaders makes a GET request with custom headers, used by clients
// that authenticate with an API key header.
func (s *ExternalAPIService) GetWithHeaders(ctx context.Context, endpoint string, params url.Values, headers map[string]string) (*http.Response, error) {
	return s.makeRequest(ctx, "GET", endpoint, params, headers)
}
