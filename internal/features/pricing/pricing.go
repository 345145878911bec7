// Package pricing: pricing.go is the settlement calculation.
// The engine is a pure function: no I/O, no clock, no hidden state.
// Callers validate page and copy counts before asking for a quote.
package pricing

import (
	"github.com/shopspring/decimal"

	"serotonyl.ru/printvend/internal/common"
)

var hundred = decimal.NewFromInt(100)

// Settings are the product constants of the pricing model.
type Settings struct {
	Rates           RateTable
	TaxRate         decimal.Decimal // 0.18 = 18%
	CoinValue       decimal.Decimal // currency value of one coin
	CashbackDivisor decimal.Decimal // one coin earned per this much subtotal
}

// DefaultSettings match the prices printed on the kiosks.
var DefaultSettings = Settings{
	Rates:           DefaultRates,
	TaxRate:         decimal.RequireFromString("0.18"),
	CoinValue:       decimal.RequireFromString("0.1"),
	CashbackDivisor: decimal.NewFromInt(10),
}

// Input describes the order and the state of the paying account.
type Input struct {
	IsColor       bool
	IsDuplex      bool
	PageCount     int
	Copies        int
	IsVIP         bool
	CouponPercent decimal.Decimal // zero when no valid coupon applies
	WalletBalance decimal.Decimal // coins
	UseCoins      bool
}

// Quote is the full breakdown of a settled order.
type Quote struct {
	SheetsPerCopy int
	TotalSheets   int
	Rate          decimal.Decimal
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Discount      decimal.Decimal
	CoinsRedeemed decimal.Decimal // coins, not currency
	CoinValueUsed decimal.Decimal // currency covered by the redeemed coins
	FinalTotal    decimal.Decimal // payable, clamped at zero, two decimals
	CoinsEarned   decimal.Decimal // whole coins
}

// Engine prices orders with fixed settings.
type Engine struct {
	s Settings
}

func NewEngine(s Settings) *Engine {
	return &Engine{s: s}
}

// SheetsPerCopy maps document pages to physical sheets. A trailing odd page
// of a duplex job still takes a whole sheet.
func SheetsPerCopy(pageCount int, isDuplex bool) int {
	if isDuplex {
		return (pageCount + 1) / 2
	}
	return pageCount
}

// Quote prices one order.
//
// Order of application:
//  1. rate × sheets = subtotal, plus tax
//  2. VIP zeroes everything and stops
//  3. coupon percent off the post-tax total
//  4. wallet coins cover what is left, never more
//  5. clamp at zero, round to cents
//
// Cashback is counted on the pre-tax, pre-discount subtotal.
func (e *Engine) Quote(in Input) Quote {
	q := Quote{
		Rate:          e.s.Rates.Rate(in.IsColor, in.IsDuplex),
		SheetsPerCopy: SheetsPerCopy(in.PageCount, in.IsDuplex),
		Discount:      decimal.Zero,
		CoinsRedeemed: decimal.Zero,
		CoinValueUsed: decimal.Zero,
		CoinsEarned:   decimal.Zero,
	}
	q.TotalSheets = q.SheetsPerCopy * in.Copies

	q.Subtotal = q.Rate.Mul(decimal.NewFromInt(int64(q.TotalSheets)))
	q.Tax = q.Subtotal.Mul(e.s.TaxRate)
	total := q.Subtotal.Add(q.Tax)

	if in.IsVIP {
		q.Subtotal = decimal.Zero
		q.Tax = decimal.Zero
		q.FinalTotal = decimal.Zero
		return q
	}

	if in.CouponPercent.IsPositive() && total.IsPositive() {
		q.Discount = total.Mul(in.CouponPercent).Div(hundred)
		total = total.Sub(q.Discount)
	}

	if in.UseCoins && total.IsPositive() && in.WalletBalance.IsPositive() {
		available := in.WalletBalance.Mul(e.s.CoinValue)
		covered := decimal.Min(total, available)
		q.CoinValueUsed = covered
		q.CoinsRedeemed = covered.Div(e.s.CoinValue)
		// Division precision can nudge the coin count past the balance.
		if q.CoinsRedeemed.GreaterThan(in.WalletBalance) {
			q.CoinsRedeemed = in.WalletBalance
		}
		total = total.Sub(covered)
	}

	q.FinalTotal = common.RoundMoney(common.ClampZero(total))
	q.CoinsEarned = q.Subtotal.Div(e.s.CashbackDivisor).Floor()
	return q
}
