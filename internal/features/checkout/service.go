// Package checkout turns an upload and its print options into a paid order.
//
// Steps: validate input, look up role, coupon and balance, price the order,
// mint its QR code, then hand the file and the settlement to the order
// lifecycle, which stores both.
package checkout

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/printvend/internal/common"
	"serotonyl.ru/printvend/internal/features/coupons"
	"serotonyl.ru/printvend/internal/features/orders"
	"serotonyl.ru/printvend/internal/features/pricing"
)

// mintAttempts bounds retries after a QR collision.
const mintAttempts = 3

var pdfMagic = []byte("%PDF")

type RoleChecker interface {
	IsVIP(ctx context.Context, userID string) (bool, error)
}

type CouponValidator interface {
	Validate(ctx context.Context, code, userID string) (*coupons.Coupon, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}

type OrderCreator interface {
	Create(ctx context.Context, s orders.Settlement, file []byte) (*orders.Order, error)
}

// Meta is the JSON "meta" part of the upload. Web clients of different ages
// send either userEmail or email, orderId or order_id, numPages or the list
// of selected pages.
type Meta struct {
	UserID       string `json:"userId"`
	UserEmail    string `json:"userEmail"`
	Email        string `json:"email"`
	OrderID      string `json:"orderId"`
	OrderIDSnake string `json:"order_id"`
	Color        bool   `json:"color"`
	DoubleSide   bool   `json:"doubleSide"`
	Copies       *int   `json:"copies"`
	NumPages     int    `json:"numPages"`
	Pages        []int  `json:"pages"`
	CouponCode   string `json:"couponCode"`
	UseCoins     bool   `json:"useCoins"`
	Location     string `json:"location"`
}

// Request is a validated Meta.
type Request struct {
	UserID     string
	UserEmail  string
	OrderID    string
	IsColor    bool
	IsDuplex   bool
	Copies     int
	PageCount  int
	CouponCode string
	UseCoins   bool
	Location   string
}

// Limits bound the size of one order. The orders table stores pages, copies
// and sheets as INTEGER, so MaxSheets must stay below 2^31.
type Limits struct {
	MaxPages  int
	MaxCopies int
	MaxSheets int
}

// DefaultLimits fit the paper trays of the campus kiosks.
var DefaultLimits = Limits{MaxPages: 1000, MaxCopies: 100, MaxSheets: 5000}

// Normalize validates m against l and fills defaults: one copy, the default
// location and a generated order id.
func (m Meta) Normalize(l Limits) (Request, error) {
	req := Request{
		UserID:     strings.TrimSpace(m.UserID),
		UserEmail:  firstNonEmpty(m.UserEmail, m.Email),
		OrderID:    firstNonEmpty(m.OrderID, m.OrderIDSnake),
		IsColor:    m.Color,
		IsDuplex:   m.DoubleSide,
		Copies:     1,
		PageCount:  m.NumPages,
		CouponCode: coupons.Normalize(m.CouponCode),
		UseCoins:   m.UseCoins,
		Location:   firstNonEmpty(m.Location, orders.DefaultLocation),
	}
	if req.UserID == "" {
		return Request{}, fmt.Errorf("%w: userId is required", common.ErrInvalidMeta)
	}
	if m.Copies != nil {
		req.Copies = *m.Copies
	}
	if req.Copies < 1 {
		return Request{}, fmt.Errorf("%w: copies must be at least 1", common.ErrInvalidMeta)
	}
	if req.PageCount == 0 {
		req.PageCount = len(m.Pages)
	}
	if req.PageCount < 1 {
		return Request{}, fmt.Errorf("%w: numPages must be at least 1", common.ErrInvalidMeta)
	}
	if req.Copies > l.MaxCopies {
		return Request{}, fmt.Errorf("%w: at most %d copies", common.ErrInvalidMeta, l.MaxCopies)
	}
	if req.PageCount > l.MaxPages {
		return Request{}, fmt.Errorf("%w: at most %d pages", common.ErrInvalidMeta, l.MaxPages)
	}
	// both factors are bounded above, the product cannot wrap
	if sheets := pricing.SheetsPerCopy(req.PageCount, req.IsDuplex) * req.Copies; sheets > l.MaxSheets {
		return Request{}, fmt.Errorf("%w: order needs %d sheets, at most %d", common.ErrInvalidMeta, sheets, l.MaxSheets)
	}
	if req.OrderID == "" {
		req.OrderID = NewOrderID()
	}
	return req, nil
}

// NewOrderID returns a short human readable order code.
func NewOrderID() string {
	return "PV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

type Service struct {
	profiles RoleChecker
	coupons  CouponValidator
	wallet   BalanceReader
	orders   OrderCreator
	engine   *pricing.Engine
	rand     io.Reader
	now      func() time.Time
}

func NewService(profiles RoleChecker, cv CouponValidator, wallet BalanceReader, oc OrderCreator, engine *pricing.Engine) *Service {
	return &Service{
		profiles: profiles,
		coupons:  cv,
		wallet:   wallet,
		orders:   oc,
		engine:   engine,
		rand:     rand.Reader,
		now:      time.Now,
	}
}

// WithEntropy replaces the QR randomness source.
func (s *Service) WithEntropy(r io.Reader) *Service {
	s.rand = r
	return s
}

// Checkout prices and stores one order. Invalid coupons do not fail the
// checkout, they are ignored.
func (s *Service) Checkout(ctx context.Context, req Request, file []byte) (*orders.Order, error) {
	// === 1. File ===
	if len(file) == 0 {
		return nil, common.ErrNoFile
	}
	if !bytes.HasPrefix(file, pdfMagic) {
		return nil, common.ErrNotPDF
	}

	logger := log.WithFields(log.Fields{"user_id": req.UserID, "order_id": req.OrderID})

	// === 2. Pricing inputs ===
	isVIP, err := s.profiles.IsVIP(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	in := pricing.Input{
		IsColor:       req.IsColor,
		IsDuplex:      req.IsDuplex,
		PageCount:     req.PageCount,
		Copies:        req.Copies,
		IsVIP:         isVIP,
		CouponPercent: decimal.Zero,
		WalletBalance: decimal.Zero,
		UseCoins:      req.UseCoins,
	}

	// a bad coupon prices the order without discount
	var coupon *coupons.Coupon
	if req.CouponCode != "" && !isVIP {
		c, err := s.coupons.Validate(ctx, req.CouponCode, req.UserID)
		switch {
		case err == nil:
			coupon = c
			in.CouponPercent = c.DiscountPercent
		case common.KindOf(err) == common.KindUpstream:
			return nil, err
		default:
			logger.WithError(err).WithField("coupon", req.CouponCode).Info("coupon ignored at checkout")
		}
	}

	if req.UseCoins && !isVIP {
		balance, err := s.wallet.Balance(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		in.WalletBalance = balance
	}

	// === 3. Quote ===
	q := s.engine.Quote(in)

	// === 4. Mint and settle ===
	var lastErr error
	for attempt := 0; attempt < mintAttempts; attempt++ {
		id, err := orders.Mint(s.rand, s.now(), req.IsColor, req.IsDuplex)
		if err != nil {
			return nil, err
		}

		settlement := s.settlement(req, q, coupon, id)
		o, err := s.orders.Create(ctx, settlement, file)
		if errors.Is(err, common.ErrDuplicateQR) {
			logger.WithField("qr", id.QRCode).Warn("qr code collision, minting again")
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return o, nil
	}
	return nil, lastErr
}

func (s *Service) settlement(req Request, q pricing.Quote, coupon *coupons.Coupon, id orders.Identity) orders.Settlement {
	fileName := id.FileName
	o := &orders.Order{
		OrderID:       req.OrderID,
		UserID:        req.UserID,
		UserEmail:     req.UserEmail,
		QRCode:        id.QRCode,
		FilePath:      &fileName,
		Location:      req.Location,
		Pages:         req.PageCount,
		Copies:        req.Copies,
		Sheets:        q.TotalSheets,
		IsColor:       req.IsColor,
		IsDuplex:      req.IsDuplex,
		Subtotal:      common.RoundMoney(q.Subtotal),
		Tax:           common.RoundMoney(q.Tax),
		Discount:      common.RoundMoney(q.Discount),
		CoinsRedeemed: q.CoinsRedeemed,
		CoinsEarned:   q.CoinsEarned,
		TotalAmount:   q.FinalTotal,
	}

	st := orders.Settlement{
		Order:         o,
		CoinsRedeemed: q.CoinsRedeemed,
		CoinsEarned:   q.CoinsEarned,
	}
	if coupon != nil && q.Discount.IsPositive() {
		code := coupon.Code
		o.CouponCode = &code
		if coupon.IsOneTime {
			st.OneTimeCoupon = coupon.Code
		}
	}
	return st
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
