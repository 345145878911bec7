// Package wallet: repository.go stores balances and the ledger.
// Balances change only through atomic increments, never read-modify-write.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/printvend/internal/common"
)

// Repository works with the wallets and wallet_transactions tables.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// EnsureAccount creates a zero balance for userID if none exists.
func (r *Repository) EnsureAccount(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

// Balance returns the stored balance. A user without a wallet has zero coins.
func (r *Repository) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get wallet balance: %w", err)
	}
	return balance, nil
}

// History returns the latest transactions, newest first.
func (r *Repository) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, amount, type, note, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get wallet history: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Note, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// LedgerSum is the sum of all transaction amounts of userID.
func (r *Repository) LedgerSum(ctx context.Context, userID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE user_id = $1
	`, userID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum wallet ledger: %w", err)
	}
	return sum, nil
}

// ApplySettlementTx writes the ledger entries of one order and moves the
// balance by their sum in a single guarded update. If the balance no longer
// covers redeemed (a concurrent spend won) it returns
// common.ErrInsufficientCoins and the caller rolls back.
func (r *Repository) ApplySettlementTx(ctx context.Context, tx pgx.Tx, userID string, redeemed, earned decimal.Decimal, orderRef string) error {
	entries := SettlementEntries(redeemed, earned, orderRef)
	if len(entries) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $3
	`, userID, Delta(entries), decimal.Max(redeemed, decimal.Zero))
	if err != nil {
		return fmt.Errorf("update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInsufficientCoins
	}

	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO wallet_transactions (user_id, amount, type, note)
			VALUES ($1, $2, $3, $4)
		`, userID, e.Amount, e.Type, e.Note); err != nil {
			return fmt.Errorf("write wallet transaction: %w", err)
		}
	}
	return nil
}
