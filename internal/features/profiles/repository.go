package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/printvend/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert creates the profile with role USER or refreshes email and name.
// Empty values never overwrite stored ones. The role is never changed here.
func (r *Repository) Upsert(ctx context.Context, id, email, fullName string) (*Profile, error) {
	var p Profile
	err := r.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email, full_name, role)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), 'USER')
		ON CONFLICT (id) DO UPDATE SET
			email     = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email),
			full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), profiles.full_name)
		RETURNING id, COALESCE(email, ''), COALESCE(full_name, ''), role, created_at
	`, id, email, fullName).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return &p, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := r.db.QueryRow(ctx, `
		SELECT id, COALESCE(email, ''), COALESCE(full_name, ''), role, created_at
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}
