// Package orders owns the print order and its QR lifecycle.
// models.go declares the order record and its JSON view.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status of an order. PAID is the only non-terminal status.
type Status string

const (
	StatusPaid    Status = "PAID"
	StatusPrinted Status = "PRINTED"
	StatusExpired Status = "EXPIRED"
)

// DefaultLocation is the kiosk site used when the client does not send one.
const DefaultLocation = "Library"

// Order is one print job.
// FilePath is set only while the uploaded blob exists.
type Order struct {
	ID         int64   `db:"id"`
	OrderID    string  `db:"order_id"` // human readable, from the client
	UserID     string  `db:"user_id"`
	UserEmail  string  `db:"user_email"`
	QRCode     string  `db:"qr_code"`
	FilePath   *string `db:"file_path"`
	Location   string  `db:"location"`
	Pages      int     `db:"pages"`
	Copies     int     `db:"copies"`
	Sheets     int     `db:"sheets"`
	IsColor    bool    `db:"is_color"`
	IsDuplex   bool    `db:"is_duplex"`
	CouponCode *string `db:"coupon_code"`

	Subtotal      decimal.Decimal `db:"subtotal"`
	Tax           decimal.Decimal `db:"tax"`
	Discount      decimal.Decimal `db:"discount"`
	CoinsRedeemed decimal.Decimal `db:"coins_redeemed"`
	CoinsEarned   decimal.Decimal `db:"coins_earned"`
	TotalAmount   decimal.Decimal `db:"total_amount"`

	Status    Status     `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt time.Time  `db:"expires_at"`
	Printed   bool       `db:"printed"`
	PrintedAt *time.Time `db:"printed_at"`
	Expired   bool       `db:"expired"`
}

// Terminal reports whether the order was printed or expired.
func (o *Order) Terminal() bool {
	return o.Printed || o.Expired
}

// Settlement is everything written atomically at checkout.
type Settlement struct {
	Order         *Order
	OneTimeCoupon string // recorded as used when non-empty
	CoinsRedeemed decimal.Decimal
	CoinsEarned   decimal.Decimal
}

// View is the JSON shape of an order. Field names follow the column names
// the web client reads.
type View struct {
	ID            int64      `json:"id"`
	OrderID       string     `json:"order_id"`
	UserID        string     `json:"user_id"`
	UserEmail     string     `json:"user_email"`
	QRCode        string     `json:"qr_code"`
	FilePath      *string    `json:"file_path"`
	Location      string     `json:"location"`
	Pages         int        `json:"pages"`
	Copies        int        `json:"copies"`
	Sheets        int        `json:"pages_selected"`
	Color         bool       `json:"color"`
	DoubleSided   bool       `json:"double_sided"`
	CouponCode    *string    `json:"coupon_code"`
	Subtotal      float64    `json:"subtotal"`
	Tax           float64    `json:"tax"`
	Discount      float64    `json:"discount"`
	CoinsRedeemed float64    `json:"coins_redeemed"`
	CoinsEarned   float64    `json:"coins_earned"`
	TotalAmount   float64    `json:"total_amount"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Printed       bool       `json:"printed"`
	PrintedAt     *time.Time `json:"printed_at"`
	Expired       bool       `json:"expired"`
}

func (o *Order) View() View {
	return View{
		ID:            o.ID,
		OrderID:       o.OrderID,
		UserID:        o.UserID,
		UserEmail:     o.UserEmail,
		QRCode:        o.QRCode,
		FilePath:      o.FilePath,
		Location:      o.Location,
		Pages:         o.Pages,
		Copies:        o.Copies,
		Sheets:        o.Sheets,
		Color:         o.IsColor,
		DoubleSided:   o.IsDuplex,
		CouponCode:    o.CouponCode,
		Subtotal:      o.Subtotal.InexactFloat64(),
		Tax:           o.Tax.InexactFloat64(),
		Discount:      o.Discount.InexactFloat64(),
		CoinsRedeemed: o.CoinsRedeemed.InexactFloat64(),
		CoinsEarned:   o.CoinsEarned.InexactFloat64(),
		TotalAmount:   o.TotalAmount.InexactFloat64(),
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		ExpiresAt:     o.ExpiresAt,
		Printed:       o.Printed,
		PrintedAt:     o.PrintedAt,
		Expired:       o.Expired,
	}
}

// Views converts a list for JSON output. Never returns nil.
func Views(list []Order) []View {
	out := make([]View, 0, len(list))
	for i := range list {
		out = append(out, list[i].View())
	}
	return out
}
