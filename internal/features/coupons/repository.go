// Package coupons: repository.go reads coupons and writes redemptions.
package coupons

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/printvend/internal/common"
)

// Repository works with the coupons and used_coupons tables.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get returns the coupon or common.ErrCouponNotFound.
func (r *Repository) Get(ctx context.Context, code string) (*Coupon, error) {
	var c Coupon
	err := r.db.QueryRow(ctx, `
		SELECT code, active, discount_percent, is_one_time, created_at
		FROM coupons WHERE code = $1
	`, code).Scan(&c.Code, &c.Active, &c.DiscountPercent, &c.IsOneTime, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon %s: %w", code, err)
	}
	return &c, nil
}

// HasUsed reports whether userID already redeemed code.
func (r *Repository) HasUsed(ctx context.Context, userID, code string) (bool, error) {
	var used bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM used_coupons WHERE user_id = $1 AND coupon_code = $2)
	`, userID, code).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("check coupon usage: %w", err)
	}
	return used, nil
}

// RecordUsageTx inserts the redemption inside the settlement transaction.
// The unique (user_id, coupon_code) pair decides concurrent redemptions:
// the loser gets common.ErrCouponAlreadyUsed.
func (r *Repository) RecordUsageTx(ctx context.Context, tx pgx.Tx, userID, code string) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO used_coupons (user_id, coupon_code)
		VALUES ($1, $2)
		ON CONFLICT (user_id, coupon_code) DO NOTHING
	`, userID, code)
	if err != nil {
		return fmt.Errorf("record coupon usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrCouponAlreadyUsed
	}
	return nil
}
