// Package admin serves the aggregate views of the staff dashboard.
// models.go declares the statistics returned by /admin/stats.
package admin

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayRevenue is the paid total of one local calendar day.
type DayRevenue struct {
	Day   time.Time
	Total decimal.Decimal
	Count int
}

// ChartPoint is one bar of the weekly chart.
type ChartPoint struct {
	Name  string  `json:"name"`  // short weekday, "Mon"
	Value float64 `json:"value"` // revenue
}

type Stats struct {
	Date       string       `json:"date"`
	DayRevenue float64      `json:"dayRevenue"`
	DayCount   int          `json:"dayCount"`
	ChartData  []ChartPoint `json:"chartData"`
}
