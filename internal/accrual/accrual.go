// Package accrual computes periodic dividend/interest income and liability interest expense.
package accrual

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/valuation"
)

// Common divisors.
const (
	PeriodsAnnual  = 1
	PeriodsMonthly = 12
)

// ErrInvalidPeriods is returned for a non-positive periods-per-year divisor.
var ErrInvalidPeriods = errors.New("periods per year must be positive")

// Result is the accrual output for one period.
type Result struct {
	Income         decimal.Decimal `json:"income"`
	Expense        decimal.Decimal `json:"expense"`
	Net            decimal.Decimal `json:"net"`
	PeriodsPerYear int             `json:"periodsPerYear"`
}

// Healthy reports whether income covers expense.
func (r Result) Healthy() bool {
	return !r.Net.IsNegative()
}

// Income sums value × dividendRate / 100 / periodsPerYear over every non-liability asset
// with a positive dividend rate.
func Income(l domain.Ledger, quotes domain.Quotes, rates domain.RateTable, periodsPerYear int) (decimal.Decimal, error) {
	divisor, err := periods(periodsPerYear)
	if err != nil {
		return decimal.Zero, err
	}

	assets := lo.Filter(l.All(), func(a domain.Asset, _ int) bool {
		return !a.Category.IsLiability() && a.DividendRate.IsPositive()
	})

	return lo.Reduce(assets, func(acc decimal.Decimal, a domain.Asset, _ int) decimal.Decimal {
		value, err := valuation.Value(a, quotes, rates)
		if err != nil {
			slog.Warn("skipping asset in income accrual", "id", a.ID, "symbol", a.Symbol, "error", err)
			return acc
		}
		return acc.Add(value.Mul(a.DividendRate).Div(domain.Hundred).Div(divisor))
	}, decimal.Zero), nil
}

// Expense sums amount × interestRate / 100 / periodsPerYear over liabilities with a
// positive rate and balance.
func Expense(liabilities []domain.Asset, periodsPerYear int) (decimal.Decimal, error) {
	divisor, err := periods(periodsPerYear)
	if err != nil {
		return decimal.Zero, err
	}

	return lo.Reduce(liabilities, func(acc decimal.Decimal, a domain.Asset, _ int) decimal.Decimal {
		if !a.InterestRate.IsPositive() || !a.Amount.IsPositive() {
			return acc
		}
		return acc.Add(a.Amount.Mul(a.InterestRate).Div(domain.Hundred).Div(divisor))
	}, decimal.Zero), nil
}

// Accrue computes income, expense and net for the ledger.
func Accrue(l domain.Ledger, quotes domain.Quotes, rates domain.RateTable, periodsPerYear int) (Result, error) {
	income, err := Income(l, quotes, rates, periodsPerYear)
	if err != nil {
		return Result{}, fmt.Errorf("accruing income: %w", err)
	}
	expense, err := Expense(l.Liabilities(), periodsPerYear)
	if err != nil {
		return Result{}, fmt.Errorf("accruing expense: %w", err)
	}
	return Result{
		Income:         income,
		Expense:        expense,
		Net:            income.Sub(expense),
		PeriodsPerYear: periodsPerYear,
	}, nil
}

func periods(n int) (decimal.Decimal, error) {
	if n <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidPeriods, n)
	}
	return decimal.NewFromInt(int64(n)), nil
}
