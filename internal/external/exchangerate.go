package external

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateClient fetches currency tables from exchangerate-api.
type ExchangeRateClient struct {
	baseURL string
	retryClient
}

// NewExchangeRateClient creates an exchange-rate API client.
func NewExchangeRateClient(baseURL string, maxRetries int, baseDelay time.Duration) *ExchangeRateClient {
	return &ExchangeRateClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		retryClient: newRetryClient("exchangerate-api", maxRetries, baseDelay),
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// FetchRates returns units of each currency per one unit of reference.
func (c *ExchangeRateClient) FetchRates(ctx context.Context, reference string) (map[string]decimal.Decimal, error) {
	reference = strings.ToUpper(reference)

	var resp latestResponse
	if err := c.getJSON(ctx, c.baseURL+"/latest/"+reference, &resp); err != nil {
		return nil, err
	}
	if len(resp.Rates) == 0 {
		return nil, fmt.Errorf("%w: empty rate table for %s", ErrNoPrice, reference)
	}

	rates := make(map[string]decimal.Decimal, len(resp.Rates)+1)
	for code, r := range resp.Rates {
		rates[strings.ToUpper(code)] = r
	}
	rates[reference] = decimal.NewFromInt(1)
	return rates, nil
}
