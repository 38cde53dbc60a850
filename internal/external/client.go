// Package external holds the HTTP clients for the public market-data APIs.
package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoPrice indicates the provider answered but had no price for the symbol.
var ErrNoPrice = errors.New("no price in provider response")

// retryClient performs GET requests with exponential backoff on HTTP 429.
type retryClient struct {
	name       string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

func newRetryClient(name string, maxRetries int, baseDelay time.Duration) retryClient {
	return retryClient{
		name:       name,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

func (c retryClient) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating %s request: %w", c.name, err)
		}
		req.Header.Set("Accept", "application/json")
		// Yahoo rejects requests without a browser-like agent.
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; wealth/1.0)")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", c.name, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s response: %w", c.name, err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("%s rate limited (attempt %d/%d)", c.name, attempt+1, c.maxRetries+1)
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		return nil, fmt.Errorf("%s HTTP %d: %s", c.name, resp.StatusCode, string(body))
	}

	return nil, lastErr
}

func (c retryClient) getJSON(ctx context.Context, url string, dest any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing %s response: %w", c.name, err)
	}
	return nil
}
