// Package valuation turns one asset record plus market data into its current
// price, position value, cost basis and change. Every function is pure.
package valuation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
)

// ErrNoCostBasis is returned by Cost for liabilities, which only carry an outstanding balance.
var ErrNoCostBasis = errors.New("liabilities have no cost basis")

var one = decimal.NewFromInt(1)

// CurrentPrice returns the current unit price of a holding.
// Missing market data never fails: the price degrades to the asset's cost.
func CurrentPrice(a domain.Asset, quotes domain.Quotes, rates domain.RateTable) (domain.Price, error) {
	switch a.Category {
	case domain.CategoryCash:
		cost := a.AverageCost
		if !cost.IsPositive() {
			cost = one
		}
		return domain.Price{Base: cost, Source: domain.PriceSourceCost}, nil
	case domain.CategoryLiability:
		return domain.Price{Base: a.Amount, Source: domain.PriceSourceCost}, nil
	case domain.CategoryCrypto:
		return cryptoPrice(a, quotes, rates), nil
	case domain.CategoryStock, domain.CategoryForex:
		if a.UseManualPrice {
			return domain.Price{Base: a.ManualPrice, Source: domain.PriceSourceManual}, nil
		}
		if q, ok := quotes.For(a); ok && q.Price.IsPositive() {
			return domain.Price{Base: q.Price, Source: domain.PriceSourceMarket}, nil
		}
		return domain.Price{Base: a.AverageCost, Source: domain.PriceSourceCost}, nil
	default:
		return domain.Price{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, a.Category)
	}
}

func cryptoPrice(a domain.Asset, quotes domain.Quotes, rates domain.RateTable) domain.Price {
	foreign := a.QuotedInForeignCurrency(rates.Base)

	// quoted builds a price from a quote-currency amount.
	quoted := func(native decimal.Decimal, source string) domain.Price {
		base, ok := rates.Convert(native, a.PriceCurrency)
		if !ok {
			source = domain.PriceSourceUnconverted
		}
		return domain.Price{Base: base, Quote: native, QuoteCurrency: a.PriceCurrency, Source: source}
	}

	if a.UseManualPrice {
		if foreign {
			return quoted(a.ManualPrice, domain.PriceSourceManual)
		}
		return domain.Price{Base: a.ManualPrice, Source: domain.PriceSourceManual}
	}

	if q, ok := quotes.For(a); ok && q.Price.IsPositive() {
		if q.Structured {
			return domain.Price{
				Base:          q.Price,
				Quote:         q.NativePrice,
				QuoteCurrency: q.NativeCurrency,
				Source:        domain.PriceSourceMarket,
			}
		}
		p := domain.Price{Base: q.Price, Source: domain.PriceSourceMarket}
		if foreign {
			p.QuoteCurrency = a.PriceCurrency
			p.Quote = q.Price
			if r, ok := rates.Rate(a.PriceCurrency); ok {
				p.Quote = q.Price.Div(r)
			}
		}
		return p
	}

	if foreign {
		return quoted(a.AverageCost, domain.PriceSourceCost)
	}
	return domain.Price{Base: a.AverageCost, Source: domain.PriceSourceCost}
}

// Value returns the position value in base currency.
// Cash is worth its quantity and a liability its outstanding amount.
func Value(a domain.Asset, quotes domain.Quotes, rates domain.RateTable) (decimal.Decimal, error) {
	if err := a.Validate(); err != nil {
		return decimal.Zero, err
	}
	switch a.Category {
	case domain.CategoryCash:
		return a.Quantity, nil
	case domain.CategoryLiability:
		return a.Amount, nil
	default:
		p, err := CurrentPrice(a, quotes, rates)
		if err != nil {
			return decimal.Zero, err
		}
		return p.Base.Mul(a.Quantity), nil
	}
}

// Cost returns the cost basis in base currency.
func Cost(a domain.Asset, rates domain.RateTable) (decimal.Decimal, error) {
	if err := a.Validate(); err != nil {
		return decimal.Zero, err
	}
	switch a.Category {
	case domain.CategoryLiability:
		return decimal.Zero, ErrNoCostBasis
	case domain.CategoryCash:
		return a.Quantity, nil
	case domain.CategoryCrypto:
		cost := a.AverageCost.Mul(a.Quantity)
		if a.QuotedInForeignCurrency(rates.Base) {
			cost, _ = rates.Convert(cost, a.PriceCurrency)
		}
		return cost, nil
	case domain.CategoryStock, domain.CategoryForex:
		return a.AverageCost.Mul(a.Quantity), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, a.Category)
	}
}

// Change reports the movement of an asset against its purchase price.
// Cash and liabilities report their nominal annual rate instead. Crypto quoted in a
// foreign currency compares quote-currency prices so exchange-rate drift is excluded.
func Change(a domain.Asset, p domain.Price) domain.Change {
	switch a.Category {
	case domain.CategoryCash:
		rate := a.InterestRate
		if rate.IsZero() {
			rate = a.DividendRate
		}
		return rateChange(rate)
	case domain.CategoryLiability:
		return rateChange(a.InterestRate)
	case domain.CategoryCrypto:
		if p.QuoteCurrency != "" {
			return priceChange(p.Quote, a.AverageCost)
		}
		return priceChange(p.Base, a.AverageCost)
	default:
		return priceChange(p.Base, a.AverageCost)
	}
}

func rateChange(rate decimal.Decimal) domain.Change {
	if !rate.IsPositive() {
		return domain.Change{Direction: domain.DirectionFlat, Percent: rate}
	}
	return domain.Change{Direction: domain.DirectionUp, Percent: rate}
}

// priceChange is neutral for an unknown purchase price and for an unchanged price.
func priceChange(current, purchase decimal.Decimal) domain.Change {
	if !purchase.IsPositive() || current.Equal(purchase) {
		return domain.NeutralChange()
	}
	return domain.NewChange(domain.PercentChange(current, purchase))
}

// Assess computes the full per-asset output in one pass.
func Assess(a domain.Asset, quotes domain.Quotes, rates domain.RateTable) (domain.Assessment, error) {
	value, err := Value(a, quotes, rates)
	if err != nil {
		return domain.Assessment{}, err
	}
	p, err := CurrentPrice(a, quotes, rates)
	if err != nil {
		return domain.Assessment{}, err
	}

	cost := decimal.Zero
	if !a.Category.IsLiability() {
		if cost, err = Cost(a, rates); err != nil {
			return domain.Assessment{}, err
		}
	}

	return domain.Assessment{
		AssetID:  a.ID,
		Category: a.Category,
		Symbol:   a.Symbol,
		Name:     a.Name,
		Price:    p,
		Value:    value,
		Cost:     cost,
		Change:   Change(a, p),
	}, nil
}
