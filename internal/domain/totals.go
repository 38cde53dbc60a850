package domain

import "github.com/shopspring/decimal"

// Direction is the sign of a reported change.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Change is a signed percentage movement.
type Change struct {
	Direction Direction       `json:"direction"`
	Percent   decimal.Decimal `json:"percent"`
}

// NeutralChange is the zero-movement result.
func NeutralChange() Change {
	return Change{Direction: DirectionFlat, Percent: decimal.Zero}
}

// NewChange builds a Change whose direction follows the sign of percent.
func NewChange(percent decimal.Decimal) Change {
	switch {
	case percent.IsPositive():
		return Change{Direction: DirectionUp, Percent: percent}
	case percent.IsNegative():
		return Change{Direction: DirectionDown, Percent: percent}
	default:
		return NeutralChange()
	}
}

// Price is the current unit price of an asset.
// Base is denominated in the base currency. For crypto quoted in another currency,
// Quote holds the same price in QuoteCurrency.
type Price struct {
	Base          decimal.Decimal `json:"base"`
	Quote         decimal.Decimal `json:"quote,omitempty"`
	QuoteCurrency string          `json:"quoteCurrency,omitempty"`
	// Source is "manual", "market", "cost" or "unconverted".
	Source string `json:"source"`
}

// Price sources.
const (
	PriceSourceManual = "manual"
	PriceSourceMarket = "market"
	PriceSourceCost   = "cost"
	// PriceSourceUnconverted marks a quote-currency amount that could not be converted
	// for lack of a rate; Base then carries the unconverted amount.
	PriceSourceUnconverted = "unconverted"
)

// Assessment is the per-asset engine output consumed by presentation.
type Assessment struct {
	AssetID  string          `json:"assetId"`
	Category Category        `json:"category"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Price    Price           `json:"price"`
	Value    decimal.Decimal `json:"value"`
	Cost     decimal.Decimal `json:"cost"`
	Change   Change          `json:"change"`
}

// CategoryTotal aggregates one category.
type CategoryTotal struct {
	Category      Category        `json:"category"`
	Count         int             `json:"count"`
	Value         decimal.Decimal `json:"value"`
	Cost          decimal.Decimal `json:"cost"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	// AverageRate is the amount-weighted interest rate; set for liabilities only.
	AverageRate decimal.Decimal `json:"averageRate"`
}

// SkippedAsset records an asset left out of aggregation.
type SkippedAsset struct {
	AssetID string `json:"assetId"`
	Symbol  string `json:"symbol"`
	Reason  string `json:"reason"`
}

// Totals is the portfolio-wide aggregation.
type Totals struct {
	Categories       map[Category]CategoryTotal `json:"categories"`
	TotalAssets      decimal.Decimal            `json:"totalAssets"`
	TotalCost        decimal.Decimal            `json:"totalCost"`
	TotalLiabilities decimal.Decimal            `json:"totalLiabilities"`
	LiabilityRate    decimal.Decimal            `json:"liabilityRate"`
	NetWorth         decimal.Decimal            `json:"netWorth"`
	ChangePercent    decimal.Decimal            `json:"changePercent"`
	Skipped          []SkippedAsset             `json:"skipped,omitempty"`
}

// Category returns the aggregate of c, or a zero total.
func (t Totals) Category(c Category) CategoryTotal {
	if ct, ok := t.Categories[c]; ok {
		return ct
	}
	return CategoryTotal{Category: c}
}

// Weight is a category's share of total assets, or the debt ratio for liabilities.
type Weight struct {
	Category  Category        `json:"category"`
	Value     decimal.Decimal `json:"value"`
	Percent   decimal.Decimal `json:"percent"`
	DebtRatio bool            `json:"debtRatio,omitempty"`
}
