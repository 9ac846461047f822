package model

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Percent returns part/whole*100 as a float, or 0 when whole is not positive.
func Percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

// DivOrZero divides a by b, returning zero when b is zero.
func DivOrZero(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// DivAtLeastOne divides a by max(n, 1).
func DivAtLeastOne(a decimal.Decimal, n int) decimal.Decimal {
	if n < 1 {
		n = 1
	}
	return a.Div(decimal.NewFromInt(int64(n)))
}
