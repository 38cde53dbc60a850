package domain

import "github.com/shopspring/decimal"

// Quote is a provider-sourced unit price for one symbol.
// Scalar quotes (stocks, forex) set Price only. Structured crypto quotes also keep
// the native quote so performance can be measured in the quote currency.
type Quote struct {
	Price          decimal.Decimal `json:"price"`
	NativePrice    decimal.Decimal `json:"nativePrice,omitempty"`
	NativeCurrency string          `json:"nativeCurrency,omitempty"`
	Structured     bool            `json:"structured,omitempty"`
}

// ScalarQuote creates a quote carrying a single base-currency price.
func ScalarQuote(price decimal.Decimal) Quote {
	return Quote{Price: price}
}

// StructuredQuote creates a quote carrying both the native and the base-currency price.
func StructuredQuote(native decimal.Decimal, nativeCurrency string, basePrice decimal.Decimal) Quote {
	return Quote{
		Price:          basePrice,
		NativePrice:    native,
		NativeCurrency: nativeCurrency,
		Structured:     true,
	}
}

// Quotes maps asset keys (category and symbol, see Asset.Key) to their latest quote,
// so a crypto and a stock sharing a ticker never collide.
type Quotes map[string]Quote

// For returns the quote of a.
func (q Quotes) For(a Asset) (Quote, bool) {
	quote, ok := q[a.Key()]
	return quote, ok
}

// Set stores the quote of a.
func (q Quotes) Set(a Asset, quote Quote) {
	q[a.Key()] = quote
}

// Merge copies every quote from other into q, overwriting existing keys.
func (q Quotes) Merge(other Quotes) {
	for key, quote := range other {
		q[key] = quote
	}
}
