// Package common holds the small utilities used across the project:
// money rounding, time zone handling, day boundaries.
package common

import (
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// MoneyPlaces is the monetary precision of persisted amounts.
const MoneyPlaces = 2

// RoundMoney rounds an amount to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ClampZero returns max(0, d).
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// LoadLocation resolves an IANA zone name. On hosts without tzdata it falls
// back to UTC instead of refusing to start.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.WithError(err).Warnf("failed to load time zone %s, using UTC", name)
		return time.UTC
	}
	return loc
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// WeekdayLabel returns the three letter weekday name ("Mon").
func WeekdayLabel(t time.Time) string {
	return t.Weekday().String()[:3]
}
