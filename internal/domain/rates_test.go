package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewRateTableDerivesThroughReference(t *testing.T) {
	// 1 USD = 31.5 TWD = 0.9 EUR = 150 JPY
	table := NewRateTable("TWD", "USD", map[string]decimal.Decimal{
		"TWD": d("31.5"),
		"EUR": d("0.9"),
		"JPY": d("150"),
		"USD": d("1"),
	}, decimal.Zero)

	tests := []struct {
		code string
		want string
	}{
		{"TWD", "1"},
		{"USD", "31.5"},
		{"EUR", "35"},
		{"JPY", "0.21"},
		{"usdt", "31.5"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := table.Rate(tt.code)
			if !ok {
				t.Fatalf("Rate(%q) not found", tt.code)
			}
			if !got.Equal(d(tt.want)) {
				t.Errorf("Rate(%q) = %s, want %s", tt.code, got, tt.want)
			}
		})
	}
}

func TestRateTableMissingReferenceUsesFallback(t *testing.T) {
	table := NewRateTable("TWD", "USD", nil, d("31.5"))

	got, ok := table.Rate("USDT")
	if !ok {
		t.Fatal("expected fallback rate for USDT")
	}
	if !got.Equal(d("31.5")) {
		t.Errorf("Rate(USDT) = %s, want fallback 31.5", got)
	}
	if !table.HasReference() {
		t.Error("HasReference() = false with fallback configured")
	}

	if _, ok := table.Rate("EUR"); ok {
		t.Error("Rate(EUR) should be unknown without provider data")
	}
}

func TestRateTableNoFallback(t *testing.T) {
	table := NewRateTable("TWD", "USD", nil, decimal.Zero)
	if table.HasReference() {
		t.Error("HasReference() = true without rates or fallback")
	}

	amount, ok := table.Convert(d("10"), "USD")
	if ok {
		t.Error("Convert() reported success without a rate")
	}
	if !amount.Equal(d("10")) {
		t.Errorf("Convert() = %s, want unconverted 10", amount)
	}
}

func TestRateTableBaseEqualsReference(t *testing.T) {
	table := NewRateTable("USD", "USD", map[string]decimal.Decimal{"EUR": d("0.8")}, decimal.Zero)
	got, ok := table.Rate("EUR")
	if !ok || !got.Equal(d("1.25")) {
		t.Errorf("Rate(EUR) = %s, %v, want 1.25", got, ok)
	}
}
