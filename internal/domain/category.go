package domain

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// Category classifies a holding and selects its valuation and cost rules.
type Category string

const (
	CategoryCrypto    Category = "crypto"
	CategoryStock     Category = "stock"
	CategoryCash      Category = "cash"
	CategoryForex     Category = "forex"
	CategoryLiability Category = "liability"
)

// ErrUnknownCategory is returned for a category outside the enumeration.
var ErrUnknownCategory = errors.New("unknown asset category")

var categories = []Category{
	CategoryCrypto,
	CategoryStock,
	CategoryCash,
	CategoryForex,
	CategoryLiability,
}

// Categories returns every category in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// AssetCategories returns the categories that count towards total assets.
func AssetCategories() []Category {
	return lo.Filter(categories, func(c Category, _ int) bool {
		return !c.IsLiability()
	})
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	return lo.Contains(categories, c)
}

// IsLiability reports whether the category holds debts rather than assets.
func (c Category) IsLiability() bool {
	return c == CategoryLiability
}

// Label returns a human readable category name.
func (c Category) Label() string {
	switch c {
	case CategoryCrypto:
		return "Crypto"
	case CategoryStock:
		return "Stocks"
	case CategoryCash:
		return "Cash"
	case CategoryForex:
		return "Foreign exchange"
	case CategoryLiability:
		return "Liabilities"
	default:
		return string(c)
	}
}
