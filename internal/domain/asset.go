package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// YearMonthLayout formats the payment period guard, e.g. "2026-10".
const YearMonthLayout = "2006-01"

// DateLayout formats calendar dates stored on assets.
const DateLayout = "2006-01-02"

// Asset is one holding or liability in the ledger.
type Asset struct {
	ID            string          `json:"id"`
	Category      Category        `json:"category"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	AverageCost   decimal.Decimal `json:"averageCost"`
	PriceCurrency string          `json:"priceCurrency,omitempty"`

	UseManualPrice bool            `json:"useManualPrice,omitempty"`
	ManualPrice    decimal.Decimal `json:"manualPrice"`

	DividendRate decimal.Decimal `json:"dividendRate"`
	InterestRate decimal.Decimal `json:"interestRate"`
	PurchaseDate string          `json:"purchaseDate,omitempty"`

	// Liability-only fields.
	Amount               decimal.Decimal `json:"amount"`
	AutoPayment          bool            `json:"autoPayment,omitempty"`
	PaymentDay           int             `json:"paymentDay,omitempty"`
	MonthlyPayment       decimal.Decimal `json:"monthlyPayment"`
	LastPaymentYearMonth string          `json:"lastPaymentYearMonth,omitempty"`
	LastPaymentDate      string          `json:"lastPaymentDate,omitempty"`
}

// Key identifies an asset by its (category, symbol) pair.
func (a Asset) Key() string {
	return string(a.Category) + ":" + strings.ToUpper(a.Symbol)
}

// QuotedInForeignCurrency reports whether the asset's prices are denominated in a
// currency other than base. Only crypto assets carry a quote currency.
func (a Asset) QuotedInForeignCurrency(base string) bool {
	return a.Category == CategoryCrypto && a.PriceCurrency != "" && !strings.EqualFold(a.PriceCurrency, base)
}

// ErrMalformedAsset is wrapped by every ValidationError.
var ErrMalformedAsset = errors.New("malformed asset")

// ValidationError describes one invalid field of one asset record.
type ValidationError struct {
	AssetID string
	Symbol  string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("asset %s (%s): %s %s", e.AssetID, e.Symbol, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrMalformedAsset }

// Validate checks the fields the engine relies on. It returns nil or a *ValidationError
// for the first failing field.
func (a Asset) Validate() error {
	invalid := func(field, reason string) error {
		return &ValidationError{AssetID: a.ID, Symbol: a.Symbol, Field: field, Reason: reason}
	}

	if a.ID == "" {
		return invalid("id", "is required")
	}
	if !a.Category.Valid() {
		return invalid("category", fmt.Sprintf("%q is not a known category", a.Category))
	}
	if strings.TrimSpace(a.Symbol) == "" {
		return invalid("symbol", "is required")
	}

	switch a.Category {
	case CategoryLiability:
		if a.Amount.IsNegative() {
			return invalid("amount", "must not be negative")
		}
		if a.PaymentDay < 0 || a.PaymentDay > 31 {
			return invalid("paymentDay", "must be between 1 and 31")
		}
		if a.MonthlyPayment.IsNegative() {
			return invalid("monthlyPayment", "must not be negative")
		}
	case CategoryCash:
		if !a.Quantity.IsPositive() {
			return invalid("quantity", "must be greater than 0")
		}
	case CategoryCrypto, CategoryStock, CategoryForex:
		if !a.Quantity.IsPositive() {
			return invalid("quantity", "must be greater than 0")
		}
		if a.AverageCost.IsNegative() {
			return invalid("averageCost", "must not be negative")
		}
		if a.UseManualPrice && a.ManualPrice.IsNegative() {
			return invalid("manualPrice", "must not be negative")
		}
	}

	if a.DividendRate.IsNegative() {
		return invalid("dividendRate", "must not be negative")
	}
	if a.InterestRate.IsNegative() {
		return invalid("interestRate", "must not be negative")
	}
	return nil
}
