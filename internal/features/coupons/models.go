// Package coupons validates promotional codes.
// models.go holds the coupon definition and the redemption record.
package coupons

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coupon is an administrative definition. The service never writes it.
type Coupon struct {
	Code            string          `db:"code" json:"code"`
	Active          bool            `db:"active" json:"active"`
	DiscountPercent decimal.Decimal `db:"discount_percent" json:"discountPercent"` // 0..100
	IsOneTime       bool            `db:"is_one_time" json:"isOneTime"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// Usage records that a user redeemed a one-time coupon.
// (user_id, coupon_code) is unique.
type Usage struct {
	ID         int64     `db:"id"`
	UserID     string    `db:"user_id"`
	CouponCode string    `db:"coupon_code"`
	UsedAt     time.Time `db:"used_at"`
}

// Normalize trims the code and upper-cases it. Codes are stored upper-case.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
