// Package orders: repository.go stores orders in PostgreSQL.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/printvend/internal/common"
	"serotonyl.ru/printvend/internal/db/postgres"
)

// qrConstraint is the unique index PostgreSQL names for orders.qr_code.
const qrConstraint = "orders_qr_code_key"

const orderColumns = `
	id, order_id, user_id, user_email, qr_code, file_path, location,
	pages, copies, sheets, is_color, is_duplex, coupon_code,
	subtotal, tax, discount, coins_redeemed, coins_earned, total_amount,
	status, created_at, expires_at, printed, printed_at, expired`

// CouponRecorder writes one-time coupon usage inside a transaction.
type CouponRecorder interface {
	RecordUsageTx(ctx context.Context, tx pgx.Tx, userID, code string) error
}

// LedgerWriter writes wallet entries inside a transaction.
type LedgerWriter interface {
	ApplySettlementTx(ctx context.Context, tx pgx.Tx, userID string, redeemed, earned decimal.Decimal, orderRef string) error
}

type Repository struct {
	db      *pgxpool.Pool
	coupons CouponRecorder
	ledger  LedgerWriter
}

func NewRepository(db *pgxpool.Pool, coupons CouponRecorder, ledger LedgerWriter) *Repository {
	return &Repository{db: db, coupons: coupons, ledger: ledger}
}

// Settle records coupon usage, inserts the order and applies the wallet
// entries in one transaction. Any of common.ErrCouponAlreadyUsed,
// common.ErrDuplicateQR or common.ErrInsufficientCoins rolls everything back.
func (r *Repository) Settle(ctx context.Context, s Settlement) (int64, error) {
	o := s.Order
	var id int64
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if s.OneTimeCoupon != "" {
			if err := r.coupons.RecordUsageTx(ctx, tx, o.UserID, s.OneTimeCoupon); err != nil {
				return err
			}
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO orders (
				order_id, user_id, user_email, qr_code, file_path, location,
				pages, copies, sheets, is_color, is_duplex, coupon_code,
				subtotal, tax, discount, coins_redeemed, coins_earned, total_amount,
				status, created_at, expires_at, printed, expired
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				$7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16, $17, $18,
				$19, $20, $21, FALSE, FALSE
			)
			RETURNING id
		`,
			o.OrderID, o.UserID, o.UserEmail, o.QRCode, o.FilePath, o.Location,
			o.Pages, o.Copies, o.Sheets, o.IsColor, o.IsDuplex, o.CouponCode,
			o.Subtotal, o.Tax, o.Discount, o.CoinsRedeemed, o.CoinsEarned, o.TotalAmount,
			o.Status, o.CreatedAt, o.ExpiresAt,
		).Scan(&id)
		if postgres.IsUniqueViolation(err, qrConstraint) {
			return common.ErrDuplicateQR
		}
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		return r.ledger.ApplySettlementTx(ctx, tx, o.UserID, s.CoinsRedeemed, s.CoinsEarned, o.QRCode)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) GetByQR(ctx context.Context, qr string) (*Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE qr_code = $1`, qr)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", qr, err)
	}
	return o, nil
}

func (r *Repository) MarkPrinted(ctx context.Context, qr string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET printed = TRUE, status = 'PRINTED', printed_at = $2
		WHERE qr_code = $1 AND printed = FALSE AND expired = FALSE
	`, qr, at)
	if err != nil {
		return false, fmt.Errorf("mark order printed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) MarkExpired(ctx context.Context, qr string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET expired = TRUE, status = 'EXPIRED'
		WHERE qr_code = $1 AND printed = FALSE AND expired = FALSE
	`, qr)
	if err != nil {
		return false, fmt.Errorf("mark order expired: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) ClearFilePath(ctx context.Context, qr string) error {
	_, err := r.db.Exec(ctx, `UPDATE orders SET file_path = NULL WHERE qr_code = $1`, qr)
	if err != nil {
		return fmt.Errorf("clear file path: %w", err)
	}
	return nil
}

func (r *Repository) ListStale(ctx context.Context, now time.Time) ([]Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE expires_at <= $1 AND printed = FALSE AND expired = FALSE
		ORDER BY expires_at
	`, now)
}

func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
}

func (r *Repository) ReferencedFiles(ctx context.Context, keys []string) (map[string]bool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT file_path FROM orders
		WHERE file_path = ANY($1) AND printed = FALSE AND expired = FALSE
	`, keys)
	if err != nil {
		return nil, fmt.Errorf("find referenced files: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool, len(keys))
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan file path: %w", err)
		}
		out[key] = true
	}
	return out, rows.Err()
}

func (r *Repository) ForgetFile(ctx context.Context, key string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE orders SET file_path = NULL
		WHERE file_path = $1 AND (printed = TRUE OR expired = TRUE)
	`, key)
	if err != nil {
		return fmt.Errorf("forget file %s: %w", key, err)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderID, &o.UserID, &o.UserEmail, &o.QRCode, &o.FilePath, &o.Location,
		&o.Pages, &o.Copies, &o.Sheets, &o.IsColor, &o.IsDuplex, &o.CouponCode,
		&o.Subtotal, &o.Tax, &o.Discount, &o.CoinsRedeemed, &o.CoinsEarned, &o.TotalAmount,
		&o.Status, &o.CreatedAt, &o.ExpiresAt, &o.Printed, &o.PrintedAt, &o.Expired,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
