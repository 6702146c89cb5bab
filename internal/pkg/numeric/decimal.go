// Package numeric provides decimal-backed rounding and arithmetic for prices,
// quantities and PnL.
package numeric

import (
	"math"

	"github.com/shopspring/decimal"
)

func dec(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	return toFloat(dec(v).Round(int32(places)))
}

// Fixed formats v with exactly places decimals, as sent to the exchange.
func Fixed(v float64, places int) string {
	if places < 0 {
		places = 0
	}
	return dec(v).StringFixed(int32(places))
}

func Mul(a, b float64) float64 {
	return toFloat(dec(a).Mul(dec(b)))
}

func Sub(a, b float64) float64 {
	return toFloat(dec(a).Sub(dec(b)))
}

func Add(a, b float64) float64 {
	return toFloat(dec(a).Add(dec(b)))
}

// Div returns a/b; a zero divisor yields 0.
func Div(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return toFloat(dec(a).Div(dec(b)))
}
