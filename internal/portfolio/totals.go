// Package portfolio aggregates per-asset valuations into category and portfolio totals.
package portfolio

import (
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/valuation"
)

// CalculateTotals sums asset values per category and across the portfolio.
// A malformed asset is logged, reported in Totals.Skipped and left out; it never aborts aggregation.
func CalculateTotals(l domain.Ledger, quotes domain.Quotes, rates domain.RateTable) domain.Totals {
	totals := domain.Totals{
		Categories:       make(map[domain.Category]domain.CategoryTotal, len(domain.Categories())),
		TotalAssets:      decimal.Zero,
		TotalCost:        decimal.Zero,
		TotalLiabilities: decimal.Zero,
	}

	for _, c := range domain.Categories() {
		ct, skipped := categoryTotal(c, l.ByCategory(c), quotes, rates)
		totals.Categories[c] = ct
		totals.Skipped = append(totals.Skipped, skipped...)

		if c.IsLiability() {
			totals.TotalLiabilities = ct.Value
			totals.LiabilityRate = ct.AverageRate
			continue
		}
		totals.TotalAssets = totals.TotalAssets.Add(ct.Value)
		totals.TotalCost = totals.TotalCost.Add(ct.Cost)
	}

	totals.NetWorth = totals.TotalAssets.Sub(totals.TotalLiabilities)
	totals.ChangePercent = changePercent(totals.TotalAssets, totals.TotalCost)
	return totals
}

func categoryTotal(c domain.Category, assets []domain.Asset, quotes domain.Quotes, rates domain.RateTable) (domain.CategoryTotal, []domain.SkippedAsset) {
	ct := domain.CategoryTotal{Category: c, Value: decimal.Zero, Cost: decimal.Zero}
	weightedRate := decimal.Zero
	var skipped []domain.SkippedAsset

	for _, a := range assets {
		value, err := valuation.Value(a, quotes, rates)
		if err != nil {
			skipped = append(skipped, skip(a, err))
			continue
		}

		cost := decimal.Zero
		if !c.IsLiability() {
			if cost, err = valuation.Cost(a, rates); err != nil {
				skipped = append(skipped, skip(a, err))
				continue
			}
		} else {
			// Zero-rate liabilities still weigh in the denominator.
			weightedRate = weightedRate.Add(a.InterestRate.Mul(value))
		}

		ct.Count++
		ct.Value = ct.Value.Add(value)
		ct.Cost = ct.Cost.Add(cost)
	}

	if c.IsLiability() {
		ct.AverageRate = domain.SafeDiv(weightedRate, ct.Value)
		return ct, skipped
	}
	ct.ChangePercent = changePercent(ct.Value, ct.Cost)
	return ct, skipped
}

func changePercent(value, cost decimal.Decimal) decimal.Decimal {
	if !cost.IsPositive() {
		return decimal.Zero
	}
	return domain.PercentChange(value, cost)
}

func skip(a domain.Asset, err error) domain.SkippedAsset {
	slog.Warn("skipping asset in aggregation", "id", a.ID, "symbol", a.Symbol, "category", a.Category, "error", err)
	return domain.SkippedAsset{AssetID: a.ID, Symbol: a.Symbol, Reason: err.Error()}
}

// Allocation returns each asset category's share of total assets, in display order.
// The liability entry carries the debt ratio instead of a share.
func Allocation(totals domain.Totals) []domain.Weight {
	return lo.Map(domain.Categories(), func(c domain.Category, _ int) domain.Weight {
		ct := totals.Category(c)
		return domain.Weight{
			Category:  c,
			Value:     ct.Value,
			Percent:   domain.PercentOf(ct.Value, totals.TotalAssets),
			DebtRatio: c.IsLiability(),
		}
	})
}

// Valuations returns the per-asset output for every well-formed asset in display order.
func Valuations(l domain.Ledger, quotes domain.Quotes, rates domain.RateTable) []domain.Assessment {
	return lo.FilterMap(l.All(), func(a domain.Asset, _ int) (domain.Assessment, bool) {
		assessment, err := valuation.Assess(a, quotes, rates)
		if err != nil {
			slog.Warn("skipping asset valuation", "id", a.ID, "symbol", a.Symbol, "error", err)
			return domain.Assessment{}, false
		}
		return assessment, true
	})
}

// Summary is the headline block of the dashboard.
type Summary struct {
	NetWorth         decimal.Decimal `json:"netWorth"`
	TotalAssets      decimal.Decimal `json:"totalAssets"`
	TotalLiabilities decimal.Decimal `json:"totalLiabilities"`
	LiabilityRate    decimal.Decimal `json:"liabilityRate"`
	Change           domain.Change   `json:"change"`
	AssetCount       int             `json:"assetCount"`
	CategoryCount    int             `json:"categoryCount"`
	LastUpdate       time.Time       `json:"lastUpdate"`
	Allocation       []domain.Weight `json:"allocation"`
}

// Summarize builds the headline block from a ledger and its totals.
func Summarize(l domain.Ledger, totals domain.Totals, lastUpdate time.Time) Summary {
	return Summary{
		NetWorth:         totals.NetWorth,
		TotalAssets:      totals.TotalAssets,
		TotalLiabilities: totals.TotalLiabilities,
		LiabilityRate:    totals.LiabilityRate,
		Change:           domain.NewChange(totals.ChangePercent),
		AssetCount:       l.Len(),
		CategoryCount:    l.CategoryCount(),
		LastUpdate:       lastUpdate,
		Allocation:       Allocation(totals),
	}
}
