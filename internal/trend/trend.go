// Package trend summarizes a snapshot series: period change, volatility and drawdown.
package trend

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/wealth/internal/domain"
	"github.com/mtlprog/wealth/internal/snapshot"
)

// Point is one (time, value) pair for charting.
type Point struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// Report describes the movement of net worth over a window.
type Report struct {
	Points        []Point         `json:"points"`
	Start         decimal.Decimal `json:"start"`
	End           decimal.Decimal `json:"end"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Median        decimal.Decimal `json:"median"`
	// MaxDrawdown is the largest peak-to-trough fall in percent, reported as a positive number.
	MaxDrawdown decimal.Decimal `json:"maxDrawdown"`
	// Volatility is the standard deviation of snapshot-to-snapshot returns in percent.
	Volatility     decimal.Decimal `json:"volatility"`
	DownsideRisk   decimal.Decimal `json:"downsideRisk"`
	ValueAtRisk95  decimal.Decimal `json:"valueAtRisk95"`
	AverageIncome  decimal.Decimal `json:"averageIncome"`
	AverageExpense decimal.Decimal `json:"averageExpense"`
}

// NetWorthSeries extracts the net-worth points of entries.
func NetWorthSeries(entries []snapshot.Snapshot) []Point {
	points := make([]Point, len(entries))
	for i, s := range entries {
		points[i] = Point{Timestamp: s.Timestamp, Value: s.NetWorth}
	}
	return points
}

// Returns computes the percent change between consecutive values, skipping zero bases.
func Returns(values []decimal.Decimal) []decimal.Decimal {
	var out []decimal.Decimal
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev.IsZero() {
			continue
		}
		out = append(out, domain.PercentChange(values[i], prev.Abs()))
	}
	return out
}

// MaxDrawdown returns the largest fall from a running peak, in percent of that peak.
// Only positive peaks count.
func MaxDrawdown(values []decimal.Decimal) decimal.Decimal {
	worst := decimal.Zero
	if len(values) == 0 {
		return worst
	}
	peak := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(peak) {
			peak = v
			continue
		}
		if !peak.IsPositive() {
			continue
		}
		if dd := domain.PercentOf(peak.Sub(v), peak); dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst
}

// Analyze builds a Report over entries, which must be in chronological order.
func Analyze(entries []snapshot.Snapshot) Report {
	r := Report{Points: NetWorthSeries(entries)}
	if len(entries) == 0 {
		return r
	}

	values := make([]decimal.Decimal, len(entries))
	incomes := make([]decimal.Decimal, len(entries))
	expenses := make([]decimal.Decimal, len(entries))
	for i, s := range entries {
		values[i] = s.NetWorth
		incomes[i] = s.PeriodicIncome
		expenses[i] = s.PeriodicExpense
	}

	r.Start = values[0]
	r.End = values[len(values)-1]
	r.Change = r.End.Sub(r.Start)
	if !r.Start.IsZero() {
		r.ChangePercent = domain.PercentChange(r.End, r.Start.Abs())
	}
	r.High, r.Low = values[0], values[0]
	for _, v := range values[1:] {
		r.High = decimal.Max(r.High, v)
		r.Low = decimal.Min(r.Low, v)
	}
	r.Median = Median(values)
	r.MaxDrawdown = MaxDrawdown(values)

	returns := Returns(values)
	r.Volatility = StdDev(returns)
	r.DownsideRisk = DownsideStdDev(returns, decimal.Zero)
	r.ValueAtRisk95 = valueAtRisk(returns, 0.95)

	r.AverageIncome = Mean(incomes)
	r.AverageExpense = Mean(expenses)
	return r
}

// valueAtRisk is the parametric one-period loss in percent not exceeded with the given confidence.
func valueAtRisk(returns []decimal.Decimal, confidence float64) decimal.Decimal {
	if len(returns) < 2 {
		return decimal.Zero
	}
	z := decimal.NewFromFloat(NormalQuantile(1 - confidence))
	loss := Mean(returns).Add(z.Mul(StdDev(returns))).Neg()
	if loss.IsNegative() {
		return decimal.Zero
	}
	return loss
}
