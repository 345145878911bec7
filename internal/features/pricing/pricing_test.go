package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestRateTable(t *testing.T) {
	r := DefaultRates
	assertDec(t, "1.5", r.Rate(false, false), "bw single")
	assertDec(t, "1.0", r.Rate(false, true), "bw double")
	assertDec(t, "5.0", r.Rate(true, false), "color single")
	assertDec(t, "4.5", r.Rate(true, true), "color double")
}

func TestQuoteWorkedExample(t *testing.T) {
	e := NewEngine(DefaultSettings)

	base := Input{PageCount: 11, Copies: 2, IsDuplex: true}
	q := e.Quote(base)
	assert.Equal(t, 6, q.SheetsPerCopy)
	assert.Equal(t, 12, q.TotalSheets)
	assertDec(t, "12", q.Subtotal, "subtotal")
	assertDec(t, "2.16", q.Tax, "tax")
	assertDec(t, "14.16", q.FinalTotal, "total")

	withCoupon := base
	withCoupon.CouponPercent = dec("10")
	q = e.Quote(withCoupon)
	assertDec(t, "1.416", q.Discount, "discount")
	assertDec(t, "12.74", q.FinalTotal, "total after coupon")

	withCoins := withCoupon
	withCoins.UseCoins = true
	withCoins.WalletBalance = dec("50")
	q = e.Quote(withCoins)
	assertDec(t, "5", q.CoinValueUsed, "coin value used")
	assertDec(t, "50", q.CoinsRedeemed, "coins redeemed")
	assertDec(t, "7.74", q.FinalTotal, "final")
	assertDec(t, "1", q.CoinsEarned, "coins earned")
}

func TestQuoteZeroWalletIsNoop(t *testing.T) {
	e := NewEngine(DefaultSettings)
	in := Input{PageCount: 4, Copies: 1, UseCoins: true, WalletBalance: decimal.Zero}

	q := e.Quote(in)
	assert.True(t, q.CoinsRedeemed.IsZero())
	assertDec(t, "7.08", q.FinalTotal, "final") // 4 × 1.5 = 6.00 + 18%
}

func TestQuoteCoinsNeverOverpay(t *testing.T) {
	e := NewEngine(DefaultSettings)
	in := Input{PageCount: 2, Copies: 1, UseCoins: true, WalletBalance: dec("10000")}

	q := e.Quote(in)
	// 2 × 1.5 = 3.00 + 0.54 tax
	assertDec(t, "3.54", q.CoinValueUsed, "coin value used")
	assertDec(t, "35.4", q.CoinsRedeemed, "coins redeemed")
	assert.True(t, q.FinalTotal.IsZero())
}

func TestQuoteCoinsIgnoredWhenNotRequested(t *testing.T) {
	e := NewEngine(DefaultSettings)
	q := e.Quote(Input{PageCount: 2, Copies: 1, WalletBalance: dec("100")})
	assert.True(t, q.CoinsRedeemed.IsZero())
	assertDec(t, "3.54", q.FinalTotal, "final")
}

func TestQuoteVIP(t *testing.T) {
	e := NewEngine(DefaultSettings)
	for _, in := range []Input{
		{PageCount: 10, Copies: 3, IsVIP: true},
		{PageCount: 7, Copies: 1, IsColor: true, IsVIP: true, CouponPercent: dec("50")},
		{PageCount: 1, Copies: 9, IsDuplex: true, IsVIP: true, UseCoins: true, WalletBalance: dec("500")},
	} {
		q := e.Quote(in)
		assert.True(t, q.FinalTotal.IsZero(), "vip pays nothing")
		assert.True(t, q.CoinsEarned.IsZero(), "vip earns nothing")
		assert.True(t, q.CoinsRedeemed.IsZero(), "vip spends no coins")
		assert.True(t, q.Discount.IsZero(), "vip gets no coupon")
		assert.Equal(t, SheetsPerCopy(in.PageCount, in.IsDuplex)*in.Copies, q.TotalSheets)
	}
}

func TestQuoteCashbackUsesSubtotal(t *testing.T) {
	e := NewEngine(DefaultSettings)
	// 5 colour sheets × 5.0 = 25 subtotal → 2 coins, coupon does not change it
	q := e.Quote(Input{PageCount: 5, Copies: 1, IsColor: true, CouponPercent: dec("90")})
	assertDec(t, "2", q.CoinsEarned, "coins earned")

	custom := DefaultSettings
	custom.CashbackDivisor = decimal.NewFromInt(50)
	q = NewEngine(custom).Quote(Input{PageCount: 5, Copies: 1, IsColor: true})
	assert.True(t, q.CoinsEarned.IsZero())
}

func TestQuoteProperties(t *testing.T) {
	e := NewEngine(DefaultSettings)
	for pages := 1; pages <= 15; pages++ {
		for copies := 1; copies <= 4; copies++ {
			for _, color := range []bool{false, true} {
				for _, duplex := range []bool{false, true} {
					in := Input{
						PageCount:     pages,
						Copies:        copies,
						IsColor:       color,
						IsDuplex:      duplex,
						CouponPercent: dec("100"),
						UseCoins:      true,
						WalletBalance: dec("7"),
					}
					q := e.Quote(in)

					perCopy := pages
					if duplex {
						perCopy = (pages + 1) / 2
					}
					require.Equal(t, perCopy*copies, q.TotalSheets)
					require.GreaterOrEqual(t, q.TotalSheets, copies)
					require.False(t, q.FinalTotal.IsNegative())

					bound := decimal.Min(q.Subtotal.Add(q.Tax).Sub(q.Discount), in.WalletBalance.Mul(DefaultSettings.CoinValue))
					require.True(t, q.CoinValueUsed.LessThanOrEqual(bound))
					require.True(t, q.CoinsRedeemed.LessThanOrEqual(in.WalletBalance))
				}
			}
		}
	}
}

func TestQuoteZeroPagesCostsNothing(t *testing.T) {
	q := NewEngine(DefaultSettings).Quote(Input{PageCount: 0, Copies: 3})
	assert.Equal(t, 0, q.TotalSheets)
	assert.True(t, q.FinalTotal.IsZero())
}
