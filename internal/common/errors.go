// Package common: errors.go defines the errors shared by all features.
// Every sentinel belongs to a Kind so that transports can pick a status code
// without knowing each feature's error list.
package common

import "errors"

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindUpstream     Kind = iota // database or blob store failure, anything unclassified
	KindValidation               // malformed input
	KindNotFound                 // unknown QR, order, coupon
	KindConflict                 // already printed, coupon used, code expired
	KindUnauthorized             // missing or wrong access token
)

type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

// NewError creates a sentinel error of the given kind.
func NewError(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// KindOf walks the wrap chain and returns the kind of the first classified error.
func KindOf(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUpstream
}

// Checkout input errors
var (
	// ErrNoFile: multipart request without a file part
	ErrNoFile = NewError(KindValidation, "no file uploaded")
	// ErrFileTooLarge: upload exceeds MAX_UPLOAD_MB
	ErrFileTooLarge = NewError(KindValidation, "file too large")
	// ErrNotPDF: uploaded file does not start with the PDF magic
	ErrNotPDF = NewError(KindValidation, "file is not a PDF document")
	// ErrInvalidMeta: meta JSON missing, unparsable or out of range
	ErrInvalidMeta = NewError(KindValidation, "invalid metadata")
	// ErrInvalidRequest: JSON body of a plain endpoint is malformed
	ErrInvalidRequest = NewError(KindValidation, "invalid request body")
)

// Order lifecycle errors
var (
	// ErrOrderNotFound: no order with this QR code
	ErrOrderNotFound = NewError(KindNotFound, "order not found")
	// ErrAlreadyPrinted: the QR code was already consumed
	ErrAlreadyPrinted = NewError(KindConflict, "already used")
	// ErrOrderExpired: the print window closed before consumption
	ErrOrderExpired = NewError(KindConflict, "code expired")
	// ErrDuplicateQR: freshly minted QR collided with an existing order
	ErrDuplicateQR = NewError(KindConflict, "qr code collision, retry the order")
)

// Coupon errors
var (
	// ErrCouponNotFound: no coupon with this code
	ErrCouponNotFound = NewError(KindNotFound, "invalid coupon")
	// ErrCouponInactive: coupon exists but is switched off
	ErrCouponInactive = NewError(KindConflict, "coupon inactive")
	// ErrCouponAlreadyUsed: one-time coupon already redeemed by this user
	ErrCouponAlreadyUsed = NewError(KindConflict, "coupon already used")
)

// Profile errors
var (
	// ErrProfileNotFound: no profile for this user id
	ErrProfileNotFound = NewError(KindNotFound, "profile not found")
	// ErrInvalidProfile: profile request without a user id
	ErrInvalidProfile = NewError(KindValidation, "userId is required")
)

// Support errors
var (
	// ErrInvalidTicket: ticket without user id or message
	ErrInvalidTicket = NewError(KindValidation, "userId and message are required")
)

// Wallet errors
var (
	// ErrInsufficientCoins: a debit would take the balance below zero
	ErrInsufficientCoins = NewError(KindConflict, "insufficient coins")
)

// Admin errors
var (
	// ErrInvalidDate: date query parameter is not YYYY-MM-DD
	ErrInvalidDate = NewError(KindValidation, "date must be YYYY-MM-DD")
)

// Access errors
var (
	// ErrUnauthorized: bearer token missing or not matching the configured hash
	ErrUnauthorized = NewError(KindUnauthorized, "unauthorized")
	// ErrRateLimited: too many requests in the window
	ErrRateLimited = NewError(KindConflict, "too many requests")
)
