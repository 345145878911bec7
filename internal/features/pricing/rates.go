// Package pricing computes what a print order costs.
// rates.go holds the per-sheet rate table; pricing.go turns order
// parameters and account state into a settled quote.
package pricing

import "github.com/shopspring/decimal"

// RateTable is the per-sheet price for each (color, duplex) combination.
type RateTable struct {
	BWSingle    decimal.Decimal
	BWDouble    decimal.Decimal
	ColorSingle decimal.Decimal
	ColorDouble decimal.Decimal
}

// DefaultRates are the kiosk prices the service ships with.
var DefaultRates = RateTable{
	BWSingle:    decimal.RequireFromString("1.5"),
	BWDouble:    decimal.RequireFromString("1.0"),
	ColorSingle: decimal.RequireFromString("5.0"),
	ColorDouble: decimal.RequireFromString("4.5"),
}

// Rate returns the price of one sheet.
func (t RateTable) Rate(isColor, isDuplex bool) decimal.Decimal {
	switch {
	case isColor && isDuplex:
		return t.ColorDouble
	case isColor:
		return t.ColorSingle
	case isDuplex:
		return t.BWDouble
	default:
		return t.BWSingle
	}
}
