// Package charterapi wraps the external charter booking API: per-boat
// reservation calendars, weekly price quoting, and the paginated boat search.
//
// All lookups share the same miss semantics: a non-success payload, a 4xx
// response, or an empty data array yields (nil, nil), meaning "no data" rather
// than a failure. Only transport-level errors and exhausted retries surface as
// errors.
package charterapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/mateusz-wlodarczyk/boatwatch/pkg/clients/resilient"
)

const statusSuccess = "success"

// Client talks to the charter booking API through a resilient HTTP client.
type Client struct {
	baseURL string
	apiKey  string
	http    *resilient.Client
	logger  *zap.Logger
}

// NewClient creates a charter API client. baseURL must not have a trailing
// slash; apiKey is sent as the `key` query parameter on every request.
func NewClient(baseURL, apiKey string, httpClient *resilient.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger,
	}
}

// get performs a GET against path and returns the response, injecting the API
// key into the query.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*resilient.Response, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.apiKey)

	resp, err := c.http.Do(ctx, http.MethodGet, c.baseURL+path, query)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return resp, nil
}
