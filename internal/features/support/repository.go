package support

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, t *Ticket) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO support_tickets (id, user_id, order_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.UserID, t.OrderID, t.Message, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert support ticket: %w", err)
	}
	return nil
}
