// Package price is the provider facade: it turns ledger assets into quotes and
// builds the exchange-rate table for one refresh cycle.
package price

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/external"
)

// CryptoSource fetches crypto prices in several currencies at once.
type CryptoSource interface {
	FetchPrices(ctx context.Context, symbols []string, currencies []string) (map[string]map[string]decimal.Decimal, error)
}

// EquitySource fetches one equity price per call.
type EquitySource interface {
	FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// RateSource fetches a currency table quoted per one unit of reference.
type RateSource interface {
	FetchRates(ctx context.Context, reference string) (map[string]decimal.Decimal, error)
}

// QuoteStore records the latest fetched quotes. Optional.
type QuoteStore interface {
	SaveQuote(ctx context.Context, q external.StoredQuote) error
}

// Provider is the market-data contract consumed by the refresh pipeline.
// Both methods return usable partial results alongside a non-nil error.
type Provider interface {
	Rates(ctx context.Context) (domain.RateTable, error)
	Quotes(ctx context.Context, category domain.Category, assets []domain.Asset, rates domain.RateTable) (domain.Quotes, error)
}

// Options configures a Service.
type Options struct {
	BaseCurrency      string
	ReferenceCurrency string
	FallbackRate      decimal.Decimal
	EquityDelay       time.Duration
	CacheTTL          time.Duration
}

// Service implements Provider over the external HTTP clients.
type Service struct {
	crypto CryptoSource
	equity EquitySource
	rates  RateSource
	store  QuoteStore
	opts   Options

	quotes    *ttlCache[domain.Quote]
	rateCache *ttlCache[map[string]decimal.Decimal]
	now       func() time.Time
}

// NewService creates a new price Service. store may be nil.
func NewService(crypto CryptoSource, equity EquitySource, rates RateSource, store QuoteStore, opts Options) *Service {
	if crypto == nil {
		panic("price.NewService: crypto is nil")
	}
	if equity == nil {
		panic("price.NewService: equity is nil")
	}
	if rates == nil {
		panic("price.NewService: rates is nil")
	}
	opts.BaseCurrency = strings.ToUpper(opts.BaseCurrency)
	opts.ReferenceCurrency = strings.ToUpper(opts.ReferenceCurrency)
	return &Service{
		crypto:    crypto,
		equity:    equity,
		rates:     rates,
		store:     store,
		opts:      opts,
		quotes:    newTTLCache[domain.Quote](opts.CacheTTL),
		rateCache: newTTLCache[map[string]decimal.Decimal](opts.CacheTTL),
		now:       time.Now,
	}
}

// Rates returns the base-currency rate table. When the provider fails, the table
// still carries the configured fallback for the reference currency.
func (s *Service) Rates(ctx context.Context) (domain.RateTable, error) {
	key := s.opts.ReferenceCurrency
	perReference, ok := s.rateCache.get(key)
	if !ok {
		fetched, err := s.rates.FetchRates(ctx, s.opts.ReferenceCurrency)
		if err != nil {
			slog.Warn("exchange rates unavailable, using fallback reference rate",
				"reference", s.opts.ReferenceCurrency,
				"fallback", s.opts.FallbackRate,
				"error", err,
			)
			return domain.NewRateTable(s.opts.BaseCurrency, s.opts.ReferenceCurrency, nil, s.opts.FallbackRate),
				fmt.Errorf("fetching exchange rates: %w", err)
		}
		perReference = fetched
		s.rateCache.set(key, perReference)
	}
	return domain.NewRateTable(s.opts.BaseCurrency, s.opts.ReferenceCurrency, perReference, s.opts.FallbackRate), nil
}

// Quotes returns the quotes for one category. Assets with a manual price are not fetched.
// Symbols that could not be priced are omitted and reported in the returned error.
func (s *Service) Quotes(ctx context.Context, category domain.Category, assets []domain.Asset, rates domain.RateTable) (domain.Quotes, error) {
	wanted := lo.Filter(assets, func(a domain.Asset, _ int) bool {
		return a.Category == category && !a.UseManualPrice && strings.TrimSpace(a.Symbol) != ""
	})

	quotes := make(domain.Quotes, len(wanted))
	var missing []domain.Asset
	for _, a := range wanted {
		if q, ok := s.quotes.get(quoteKey(a)); ok {
			quotes.Set(a, q)
			continue
		}
		missing = append(missing, a)
	}
	if len(missing) == 0 {
		return quotes, nil
	}

	var fetched domain.Quotes
	var err error
	switch category {
	case domain.CategoryCrypto:
		fetched, err = s.cryptoQuotes(ctx, missing, rates)
	case domain.CategoryStock:
		fetched, err = s.equityQuotes(ctx, missing)
	case domain.CategoryForex:
		fetched, err = forexQuotes(missing, rates)
	case domain.CategoryCash, domain.CategoryLiability:
		return quotes, nil
	default:
		return quotes, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}

	for _, a := range missing {
		q, ok := fetched.For(a)
		if !ok {
			continue
		}
		s.quotes.set(quoteKey(a), q)
		s.record(ctx, a, q)
	}
	quotes.Merge(fetched)
	return quotes, err
}

// quoteCurrency is the currency CoinGecko is asked for. Stablecoins track USD.
func quoteCurrency(code string) string {
	switch strings.ToUpper(code) {
	case "USDT", "USDC", "BUSD", "DAI":
		return "USD"
	default:
		return strings.ToUpper(code)
	}
}

func (s *Service) cryptoQuotes(ctx context.Context, assets []domain.Asset, rates domain.RateTable) (domain.Quotes, error) {
	base := s.opts.BaseCurrency
	currencies := []string{base}
	for _, a := range assets {
		if a.QuotedInForeignCurrency(base) {
			currencies = append(currencies, quoteCurrency(a.PriceCurrency))
		}
	}
	currencies = lo.Uniq(currencies)
	symbols := lo.Uniq(lo.Map(assets, func(a domain.Asset, _ int) string { return a.Symbol }))

	prices, err := s.crypto.FetchPrices(ctx, symbols, currencies)
	if err != nil {
		slog.Warn("crypto quotes unavailable, valuing at cost", "symbols", symbols, "error", err)
		return domain.Quotes{}, fmt.Errorf("fetching crypto quotes: %w", err)
	}

	quotes := make(domain.Quotes, len(assets))
	var errs []error
	for _, a := range assets {
		byCurrency, ok := prices[a.Symbol]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", external.ErrNoPrice, a.Symbol))
			continue
		}

		if !a.QuotedInForeignCurrency(base) {
			if p, ok := byCurrency[base]; ok {
				quotes.Set(a, domain.ScalarQuote(p))
			} else {
				errs = append(errs, fmt.Errorf("%w: %s in %s", external.ErrNoPrice, a.Symbol, base))
			}
			continue
		}

		native, ok := byCurrency[quoteCurrency(a.PriceCurrency)]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s in %s", external.ErrNoPrice, a.Symbol, a.PriceCurrency))
			continue
		}
		basePrice, ok := rates.Convert(native, a.PriceCurrency)
		if !ok {
			// no rate for the quote currency; the provider's direct base price still values the asset
			basePrice, ok = byCurrency[base]
		}
		if !ok {
			errs = append(errs, fmt.Errorf("no %s rate to value %s", a.PriceCurrency, a.Symbol))
			continue
		}
		quotes.Set(a, domain.StructuredQuote(native, strings.ToUpper(a.PriceCurrency), basePrice))
	}
	return quotes, errors.Join(errs...)
}

// equityQuotes fetches one symbol at a time with a delay between requests.
func (s *Service) equityQuotes(ctx context.Context, assets []domain.Asset) (domain.Quotes, error) {
	quotes := make(domain.Quotes, len(assets))
	var errs []error
	for i, a := range assets {
		if i > 0 && s.opts.EquityDelay > 0 {
			select {
			case <-ctx.Done():
				return quotes, ctx.Err()
			case <-time.After(s.opts.EquityDelay):
			}
		}

		p, err := s.equity.FetchPrice(ctx, a.Symbol)
		if err != nil {
			slog.Warn("equity quote unavailable, valuing at cost", "symbol", a.Symbol, "error", err)
			errs = append(errs, fmt.Errorf("fetching %s: %w", a.Symbol, err))
			continue
		}
		quotes.Set(a, domain.ScalarQuote(p))
	}
	return quotes, errors.Join(errs...)
}

// forexQuotes prices currency holdings from the rate table.
func forexQuotes(assets []domain.Asset, rates domain.RateTable) (domain.Quotes, error) {
	quotes := make(domain.Quotes, len(assets))
	var errs []error
	for _, a := range assets {
		r, ok := rates.Rate(a.Symbol)
		if !ok {
			errs = append(errs, fmt.Errorf("no rate for %s", a.Symbol))
			continue
		}
		quotes.Set(a, domain.ScalarQuote(r))
	}
	return quotes, errors.Join(errs...)
}

func (s *Service) record(ctx context.Context, a domain.Asset, q domain.Quote) {
	if s.store == nil {
		return
	}
	stored := external.StoredQuote{
		Category:  string(a.Category),
		Symbol:    a.Symbol,
		Price:     q.Price,
		Currency:  s.opts.BaseCurrency,
		UpdatedAt: s.now(),
	}
	if err := s.store.SaveQuote(ctx, stored); err != nil {
		slog.Warn("failed to store quote", "symbol", a.Symbol, "error", err)
	}
}
