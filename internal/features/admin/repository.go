// Package admin: repository.go aggregates the orders table.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RevenueByDay sums total_amount per local day of loc over [from, to).
// Days without orders are absent.
func (r *Repository) RevenueByDay(ctx context.Context, from, to time.Time, loc *time.Location) ([]DayRevenue, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date_trunc('day', created_at AT TIME ZONE $3::text) AS day,
		       COALESCE(SUM(total_amount), 0),
		       COUNT(*)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY day
		ORDER BY day
	`, from, to, loc.String())
	if err != nil {
		return nil, fmt.Errorf("revenue by day: %w", err)
	}
	defer rows.Close()

	var out []DayRevenue
	for rows.Next() {
		var (
			day   time.Time
			total decimal.Decimal
			count int
		)
		if err := rows.Scan(&day, &total, &count); err != nil {
			return nil, fmt.Errorf("scan revenue: %w", err)
		}
		// the local wall clock day comes back as a zoneless timestamp
		out = append(out, DayRevenue{
			Day:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc),
			Total: total,
			Count: count,
		})
	}
	return out, rows.Err()
}
