// Package wallet keeps the coin ledger.
// models.go declares accounts and transactions.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType is the direction of a ledger entry.
type TxType string

const (
	TxDebit TxType = "DEBIT" // coins spent on an order, negative amount
	TxEarn  TxType = "EARN"  // cashback, positive amount
)

// Account is the stored balance of one user. It is created lazily with a
// zero balance and never deleted.
type Account struct {
	UserID    string          `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Transaction is an append-only ledger entry.
type Transaction struct {
	ID        int64           `db:"id"`
	UserID    string          `db:"user_id"`
	Amount    decimal.Decimal `db:"amount"` // signed
	Type      TxType          `db:"type"`
	Note      string          `db:"note"`
	CreatedAt time.Time       `db:"created_at"`
}

// Entry is a transaction before it is written.
type Entry struct {
	Amount decimal.Decimal
	Type   TxType
	Note   string
}

// Audit compares the stored balance with the sum of the ledger.
type Audit struct {
	UserID     string          `json:"userId"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledgerSum"`
	Consistent bool            `json:"consistent"`
}

// SettlementEntries returns the ledger entries for one settled order:
// a DEBIT of -redeemed and an EARN of +earned, each only when positive.
func SettlementEntries(redeemed, earned decimal.Decimal, orderRef string) []Entry {
	var out []Entry
	if redeemed.IsPositive() {
		out = append(out, Entry{Amount: redeemed.Neg(), Type: TxDebit, Note: "Paid for " + orderRef})
	}
	if earned.IsPositive() {
		out = append(out, Entry{Amount: earned, Type: TxEarn, Note: "Cashback " + orderRef})
	}
	return out
}

// Delta is the balance change of a set of entries.
func Delta(entries []Entry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum
}
