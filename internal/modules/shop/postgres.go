package shop

import (
	"context"
	"database/sql"
	"errors"

	"github.com/inkwell/inkwell-backend/internal/platform/apperr"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL shop repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, shop *Shop) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shops (id, name, owner_name)
		VALUES ($1,$2,$3)`,
		shop.ID, shop.Name, shop.OwnerName)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Shop, error) {
	s := &Shop{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, owner_name, created_at, updated_at
		FROM shops WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.OwnerName, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("shop %s", id)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM shops WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}
