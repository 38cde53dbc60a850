package external

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

const regularMarketPricePath = "$.chart.result[0].meta.regularMarketPrice"

// YahooClient fetches equity prices from the Yahoo Finance chart API.
type YahooClient struct {
	baseURL string
	suffix  string
	retryClient
}

// NewYahooClient creates a chart API client. suffix is appended to bare symbols, e.g. ".TW".
func NewYahooClient(baseURL, suffix string, maxRetries int, baseDelay time.Duration) *YahooClient {
	return &YahooClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		suffix:      suffix,
		retryClient: newRetryClient("Yahoo Finance", maxRetries, baseDelay),
	}
}

// Ticker returns the exchange ticker for a ledger symbol. Symbols that already
// carry an exchange suffix are left alone.
func (c *YahooClient) Ticker(symbol string) string {
	if c.suffix == "" || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + c.suffix
}

// FetchPrice returns the regular market price of one symbol.
func (c *YahooClient) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ticker := c.Ticker(symbol)

	var jobj any
	if err := c.getJSON(ctx, c.baseURL+"/v8/finance/chart/"+url.PathEscape(ticker), &jobj); err != nil {
		return decimal.Zero, fmt.Errorf("fetching %s: %w", ticker, err)
	}

	jval, err := jsonpath.Get(regularMarketPricePath, jobj)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrNoPrice, ticker, err)
	}
	// jsonpath may wrap a single answer in a list
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}

	price, ok := jval.(float64)
	if !ok || price <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s: unexpected value %v", ErrNoPrice, ticker, jval)
	}
	return decimal.NewFromFloat(price), nil
}
