package domain

import "github.com/shopspring/decimal"

// Hundred is the percentage scale factor.
var Hundred = decimal.NewFromInt(100)

// SafeDiv divides a by b, returning zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// PercentOf returns part / whole * 100, or zero when whole is zero.
func PercentOf(part, whole decimal.Decimal) decimal.Decimal {
	return SafeDiv(part, whole).Mul(Hundred)
}

// PercentChange returns (current - base) / base * 100, or zero when base is zero.
func PercentChange(current, base decimal.Decimal) decimal.Decimal {
	return PercentOf(current.Sub(base), base)
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
