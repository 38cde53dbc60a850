package price

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/external"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockCrypto struct {
	prices     map[string]map[string]decimal.Decimal
	err        error
	calls      int
	currencies []string
}

func (m *mockCrypto) FetchPrices(_ context.Context, _ []string, currencies []string) (map[string]map[string]decimal.Decimal, error) {
	m.calls++
	m.currencies = currencies
	return m.prices, m.err
}

type mockEquity struct {
	prices map[string]decimal.Decimal
	calls  []string
}

func (m *mockEquity) FetchPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	m.calls = append(m.calls, symbol)
	p, ok := m.prices[symbol]
	if !ok {
		return decimal.Zero, external.ErrNoPrice
	}
	return p, nil
}

type mockRates struct {
	rates map[string]decimal.Decimal
	err   error
}

func (m *mockRates) FetchRates(_ context.Context, _ string) (map[string]decimal.Decimal, error) {
	return m.rates, m.err
}

type mockStore struct {
	saved []external.StoredQuote
}

func (m *mockStore) SaveQuote(_ context.Context, q external.StoredQuote) error {
	m.saved = append(m.saved, q)
	return nil
}

func testOptions() Options {
	return Options{
		BaseCurrency:      "TWD",
		ReferenceCurrency: "USD",
		FallbackRate:      d("31.5"),
		CacheTTL:          time.Minute,
	}
}

func TestRates(t *testing.T) {
	rates := &mockRates{rates: map[string]decimal.Decimal{"USD": d("1"), "TWD": d("32"), "JPY": d("160")}}
	svc := NewService(&mockCrypto{}, &mockEquity{}, rates, nil, testOptions())

	table, err := svc.Rates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, _ := table.Rate("USD"); !r.Equal(d("32")) {
		t.Errorf("USD rate = %s, want 32", r)
	}
	if r, _ := table.Rate("JPY"); !r.Equal(d("0.2")) {
		t.Errorf("JPY rate = %s, want 0.2", r)
	}
}

func TestRatesFallback(t *testing.T) {
	rates := &mockRates{err: errors.New("timeout")}
	svc := NewService(&mockCrypto{}, &mockEquity{}, rates, nil, testOptions())

	table, err := svc.Rates(context.Background())
	if err == nil {
		t.Fatal("expected provider error")
	}
	if r, ok := table.Rate("USD"); !ok || !r.Equal(d("31.5")) {
		t.Errorf("USD rate = %s (%v), want fallback 31.5", r, ok)
	}
}

func testRates() domain.RateTable {
	return domain.NewRateTable("TWD", "USD", map[string]decimal.Decimal{"USD": d("1"), "TWD": d("32")}, d("31.5"))
}

func TestCryptoQuotesStructured(t *testing.T) {
	crypto := &mockCrypto{prices: map[string]map[string]decimal.Decimal{
		"ADA": {"USD": d("0.37"), "TWD": d("11.9")},
		"BTC": {"USD": d("65000"), "TWD": d("2080000")},
	}}
	store := &mockStore{}
	svc := NewService(crypto, &mockEquity{}, &mockRates{}, store, testOptions())

	assets := []domain.Asset{
		{ID: "1", Category: domain.CategoryCrypto, Symbol: "ADA", PriceCurrency: "USDT"},
		{ID: "2", Category: domain.CategoryCrypto, Symbol: "BTC"},
		{ID: "3", Category: domain.CategoryCrypto, Symbol: "ETH", UseManualPrice: true},
	}
	quotes, err := svc.Quotes(context.Background(), domain.CategoryCrypto, assets, testRates())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ada := quotes["crypto:ADA"]
	if !ada.Structured || ada.NativeCurrency != "USDT" || !ada.NativePrice.Equal(d("0.37")) {
		t.Errorf("ADA quote = %+v, want structured 0.37 USDT", ada)
	}
	// 0.37 USD * 32 TWD/USD
	if !ada.Price.Equal(d("11.84")) {
		t.Errorf("ADA base price = %s, want 11.84", ada.Price)
	}
	if btc := quotes["crypto:BTC"]; btc.Structured || !btc.Price.Equal(d("2080000")) {
		t.Errorf("BTC quote = %+v, want scalar 2080000", btc)
	}
	if _, ok := quotes["crypto:ETH"]; ok {
		t.Error("manual-price asset should not be fetched")
	}
	if len(crypto.currencies) != 2 || crypto.currencies[0] != "TWD" || crypto.currencies[1] != "USD" {
		t.Errorf("currencies = %v, want [TWD USD]", crypto.currencies)
	}
	if len(store.saved) != 2 {
		t.Errorf("stored quotes = %d, want 2", len(store.saved))
	}

	if _, err := svc.Quotes(context.Background(), domain.CategoryCrypto, assets, testRates()); err != nil {
		t.Fatalf("cached call error: %v", err)
	}
	if crypto.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (second call cached)", crypto.calls)
	}
}

func TestCryptoProviderDownYieldsNoQuotes(t *testing.T) {
	crypto := &mockCrypto{err: errors.New("503")}
	svc := NewService(crypto, &mockEquity{}, &mockRates{}, nil, testOptions())

	assets := []domain.Asset{{ID: "1", Category: domain.CategoryCrypto, Symbol: "BTC"}}
	quotes, err := svc.Quotes(context.Background(), domain.CategoryCrypto, assets, testRates())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(quotes) != 0 {
		t.Errorf("quotes = %v, want none", quotes)
	}
}

func TestEquityQuotesPartial(t *testing.T) {
	equity := &mockEquity{prices: map[string]decimal.Decimal{"2330": d("1025"), "0050": d("180")}}
	svc := NewService(&mockCrypto{}, equity, &mockRates{}, nil, testOptions())

	assets := []domain.Asset{
		{ID: "1", Category: domain.CategoryStock, Symbol: "2330"},
		{ID: "2", Category: domain.CategoryStock, Symbol: "9999"},
		{ID: "3", Category: domain.CategoryStock, Symbol: "0050"},
	}
	quotes, err := svc.Quotes(context.Background(), domain.CategoryStock, assets, testRates())
	if !errors.Is(err, external.ErrNoPrice) {
		t.Errorf("error = %v, want ErrNoPrice for 9999", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("quotes = %v, want 2", quotes)
	}
	if len(equity.calls) != 3 {
		t.Errorf("calls = %v, want one per symbol", equity.calls)
	}
}

func TestEquityQuotesDelayHonoursContext(t *testing.T) {
	equity := &mockEquity{prices: map[string]decimal.Decimal{"2330": d("1025"), "0050": d("180")}}
	opts := testOptions()
	opts.EquityDelay = time.Hour
	svc := NewService(&mockCrypto{}, equity, &mockRates{}, nil, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assets := []domain.Asset{
		{ID: "1", Category: domain.CategoryStock, Symbol: "2330"},
		{ID: "2", Category: domain.CategoryStock, Symbol: "0050"},
	}
	quotes, err := svc.Quotes(ctx, domain.CategoryStock, assets, testRates())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if len(quotes) != 1 {
		t.Errorf("quotes = %v, want the first symbol only", quotes)
	}
}

func TestForexQuotesFromRates(t *testing.T) {
	svc := NewService(&mockCrypto{}, &mockEquity{}, &mockRates{}, nil, testOptions())

	assets := []domain.Asset{
		{ID: "1", Category: domain.CategoryForex, Symbol: "USD"},
		{ID: "2", Category: domain.CategoryForex, Symbol: "XYZ"},
	}
	quotes, err := svc.Quotes(context.Background(), domain.CategoryForex, assets, testRates())
	if err == nil {
		t.Error("expected error for XYZ")
	}
	if !quotes["forex:USD"].Price.Equal(d("32")) {
		t.Errorf("USD quote = %s, want 32", quotes["forex:USD"].Price)
	}
}

func TestCashNeedsNoQuotes(t *testing.T) {
	svc := NewService(&mockCrypto{}, &mockEquity{}, &mockRates{}, nil, testOptions())

	for _, c := range []domain.Category{domain.CategoryCash, domain.CategoryLiability} {
		assets := []domain.Asset{{ID: "1", Category: c, Symbol: "TWD"}}
		quotes, err := svc.Quotes(context.Background(), c, assets, testRates())
		if err != nil || len(quotes) != 0 {
			t.Errorf("%s: quotes = %v, err = %v, want none", c, quotes, err)
		}
	}
}
