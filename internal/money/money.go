package money

import "github.com/shopspring/decimal"

// Tolerance is the largest difference between two amounts that is still
// treated as equal when comparing client totals with server totals.
var Tolerance = decimal.New(1, -2)

func init() {
	// prices travel as JSON numbers, matching what storefront clients send
	decimal.MarshalJSONWithoutQuotes = true
}

// Round rounds an amount to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Close reports whether a and b differ by at most Tolerance.
func Close(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
