// Package money does exact paise-level arithmetic on payslip amounts.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// Sum adds the values of m without float accumulation error.
func Sum(m map[string]float64) float64 {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}

// Add returns a+b rounded to paise.
func Add(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Sub returns a-b rounded to paise.
func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Round rounds v to paise.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// RelErr returns |a-b| / |base|. A zero base yields 0 when a == b and 1 otherwise.
func RelErr(a, b, base float64) float64 {
	diff := math.Abs(a - b)
	if base == 0 {
		if diff < 0.005 {
			return 0
		}
		return 1
	}
	return diff / math.Abs(base)
}
