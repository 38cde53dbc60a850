package external

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SymbolMapping maps ticker symbols to CoinGecko coin IDs.
// Unknown symbols fall back to their lowercase form.
var SymbolMapping = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDT": "tether",
	"BNB":  "binancecoin",
	"ADA":  "cardano",
	"SOL":  "solana",
	"XRP":  "ripple",
	"DOT":  "polkadot",
	"DOGE": "dogecoin",
	"AVAX": "avalanche-2",
}

// CoinID returns the CoinGecko ID for a ticker symbol.
func CoinID(symbol string) string {
	if id, ok := SymbolMapping[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// CoinGeckoClient fetches crypto prices from the CoinGecko simple price API.
type CoinGeckoClient struct {
	baseURL string
	retryClient
}

// NewCoinGeckoClient creates a new CoinGecko API client.
func NewCoinGeckoClient(baseURL string, maxRetries int, baseDelay time.Duration) *CoinGeckoClient {
	if baseDelay == 0 {
		baseDelay = 10 * time.Second
	}
	return &CoinGeckoClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		retryClient: newRetryClient("CoinGecko", maxRetries, baseDelay),
	}
}

// FetchPrices returns symbol -> currency -> price for the requested symbols in one request.
// Currencies are returned upper-cased; symbols the API does not know are omitted.
func (c *CoinGeckoClient) FetchPrices(ctx context.Context, symbols []string, currencies []string) (map[string]map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		return map[string]map[string]decimal.Decimal{}, nil
	}

	idSet := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		idSet[CoinID(s)] = true
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	vs := make([]string, 0, len(currencies))
	for _, cur := range currencies {
		vs = append(vs, strings.ToLower(cur))
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", strings.Join(vs, ","))

	// Parse: {"bitcoin":{"usd":65000,"twd":2050000},...}
	var raw map[string]map[string]decimal.Decimal
	if err := c.getJSON(ctx, c.baseURL+"/simple/price?"+q.Encode(), &raw); err != nil {
		return nil, err
	}

	result := make(map[string]map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		prices, ok := raw[CoinID(symbol)]
		if !ok {
			continue
		}
		byCurrency := make(map[string]decimal.Decimal, len(prices))
		for cur, p := range prices {
			byCurrency[strings.ToUpper(cur)] = p
		}
		result[symbol] = byCurrency
	}
	return result, nil
}

// FetchPrice returns the price of one symbol in one currency.
func (c *CoinGeckoClient) FetchPrice(ctx context.Context, symbol, currency string) (decimal.Decimal, error) {
	prices, err := c.FetchPrices(ctx, []string{symbol}, []string{currency})
	if err != nil {
		return decimal.Zero, err
	}
	p, ok := prices[symbol][strings.ToUpper(currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s in %s", ErrNoPrice, symbol, currency)
	}
	return p, nil
}
