package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// stablecoins are quote currencies pegged to USD.
var stablecoins = map[string]bool{
	"USDT": true,
	"USDC": true,
	"BUSD": true,
	"DAI":  true,
}

// RateTable maps currency codes to units of base currency per one unit of that currency.
type RateTable struct {
	Base      string                     `json:"base"`
	Reference string                     `json:"reference"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	// Fallback is the configured base-per-reference rate used when the provider has
	// not delivered the reference rate.
	Fallback decimal.Decimal `json:"fallback"`
}

// NewRateTable derives base-per-unit rates from a provider table quoted per one unit of
// reference currency (perReference[X] = units of X per 1 reference).
// Every rate is the ratio perReference[base] / perReference[code].
func NewRateTable(base, reference string, perReference map[string]decimal.Decimal, fallback decimal.Decimal) RateTable {
	base = strings.ToUpper(base)
	reference = strings.ToUpper(reference)
	t := RateTable{
		Base:      base,
		Reference: reference,
		Rates:     make(map[string]decimal.Decimal, len(perReference)),
		Fallback:  fallback,
	}

	basePerRef, ok := perReference[base]
	if base == reference {
		basePerRef, ok = decimal.NewFromInt(1), true
	}
	if !ok || !basePerRef.IsPositive() {
		return t
	}

	t.Rates[reference] = basePerRef
	for code, perRef := range perReference {
		code = strings.ToUpper(code)
		if !perRef.IsPositive() || code == reference {
			continue
		}
		t.Rates[code] = basePerRef.Div(perRef)
	}
	return t
}

// HasReference reports whether the table can value reference-denominated assets.
func (t RateTable) HasReference() bool {
	_, ok := t.Rate(t.Reference)
	return ok
}

// Rate returns units of base per one unit of code.
func (t RateTable) Rate(code string) (decimal.Decimal, bool) {
	code = strings.ToUpper(code)
	if code == "" {
		return decimal.Decimal{}, false
	}
	if code == strings.ToUpper(t.Base) {
		return decimal.NewFromInt(1), true
	}
	if r, ok := t.Rates[code]; ok && r.IsPositive() {
		return r, true
	}
	if stablecoins[code] {
		return t.Rate("USD")
	}
	if code == strings.ToUpper(t.Reference) && t.Fallback.IsPositive() {
		return t.Fallback, true
	}
	return decimal.Decimal{}, false
}

// Convert converts amount denominated in code into base currency.
// ok is false when no rate is known; the amount is then returned unconverted.
func (t RateTable) Convert(amount decimal.Decimal, code string) (decimal.Decimal, bool) {
	r, ok := t.Rate(code)
	if !ok {
		return amount, false
	}
	return amount.Mul(r), true
}
