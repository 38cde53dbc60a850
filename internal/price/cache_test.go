package price

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
)

func TestQuoteKey(t *testing.T) {
	a := domain.Asset{Category: domain.CategoryCrypto, Symbol: "btc"}
	if key := quoteKey(a); key != "crypto:BTC" {
		t.Errorf("quoteKey() = %q, want crypto:BTC", key)
	}
}

func TestCacheHitAndMiss(t *testing.T) {
	c := newTTLCache[domain.Quote](time.Minute)

	c.set("test-key", domain.ScalarQuote(decimal.RequireFromString("1.5")))

	got, ok := c.get("test-key")
	if !ok {
		t.Fatal("expected cache hit, got miss")
	}
	if !got.Price.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("cached price = %s, want 1.5", got.Price)
	}

	if _, ok := c.get("missing-key"); ok {
		t.Error("expected cache miss for missing key")
	}
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	c := newTTLCache[domain.Quote](time.Minute)
	c.now = func() time.Time { return now }

	c.set("expire-key", domain.ScalarQuote(decimal.NewFromInt(2)))

	now = now.Add(59 * time.Second)
	if _, ok := c.get("expire-key"); !ok {
		t.Error("expected cache hit before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.get("expire-key"); ok {
		t.Error("expected cache miss for expired entry")
	}
}

func TestCacheDefaultTTL(t *testing.T) {
	c := newTTLCache[int](0)
	if c.ttl != defaultCacheTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, defaultCacheTTL)
	}
}
