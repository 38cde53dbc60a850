package trend

import (
	"log/slog"
	"math"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

func sum(values []decimal.Decimal) decimal.Decimal {
	return lo.Reduce(values, func(acc decimal.Decimal, v decimal.Decimal, _ int) decimal.Decimal {
		return acc.Add(v)
	}, decimal.Zero)
}

// Mean returns the arithmetic mean, or zero for an empty series.
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return sum(values).Div(decimal.NewFromInt(int64(len(values))))
}

// Variance returns the sample variance, or zero for fewer than two values.
func Variance(values []decimal.Decimal) decimal.Decimal {
	if len(values) < 2 {
		return decimal.Zero
	}
	mean := Mean(values)
	squares := lo.Map(values, func(v decimal.Decimal, _ int) decimal.Decimal {
		diff := v.Sub(mean)
		return diff.Mul(diff)
	})
	return sum(squares).Div(decimal.NewFromInt(int64(len(values) - 1)))
}

// StdDev returns the sample standard deviation.
func StdDev(values []decimal.Decimal) decimal.Decimal {
	return sqrt(Variance(values))
}

// DownsideStdDev is the deviation of the values below threshold only.
func DownsideStdDev(values []decimal.Decimal, threshold decimal.Decimal) decimal.Decimal {
	below := lo.Filter(values, func(v decimal.Decimal, _ int) bool {
		return v.LessThan(threshold)
	})
	if len(below) == 0 {
		return decimal.Zero
	}
	squares := lo.Map(below, func(v decimal.Decimal, _ int) decimal.Decimal {
		diff := v.Sub(threshold)
		return diff.Mul(diff)
	})
	return sqrt(sum(squares).Div(decimal.NewFromInt(int64(len(below)))))
}

func sqrt(v decimal.Decimal) decimal.Decimal {
	f, exact := v.Float64()
	if !exact {
		slog.Debug("precision loss in float64 conversion", "value", v.String())
	}
	return decimal.NewFromFloat(math.Sqrt(f))
}

// Median returns the middle value, averaging the two middle values of an even series.
func Median(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b decimal.Decimal) int { return a.Cmp(b) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return sorted[mid-1].Add(sorted[mid]).Div(two)
	}
	return sorted[mid]
}

// NormalQuantile approximates the inverse normal CDF (Abramowitz and Stegun 26.2.23).
func NormalQuantile(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	if p < 0.5 {
		return -rationalApprox(math.Sqrt(-2.0 * math.Log(p)))
	}
	return rationalApprox(math.Sqrt(-2.0 * math.Log(1-p)))
}

func rationalApprox(t float64) float64 {
	c := []float64{2.515517, 0.802853, 0.010328}
	d := []float64{1.432788, 0.189269, 0.001308}
	return t - (c[0]+c[1]*t+c[2]*t*t)/(1.0+d[0]*t+d[1]*t*t+d[2]*t*t*t)
}
