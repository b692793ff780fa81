package handler

import "github.com/shopspring/decimal"

// toDecimal converts a request float64 amount to a decimal.Decimal
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
