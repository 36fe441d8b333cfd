package repository

import (
	"context"
	"database/sql"
	"errors"

	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/otp/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an OTP repository that uses the given db.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the OTP. The OTP must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.OneTimePassword) error {
	_, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO one_time_passwords (id, code_hash, created_at, expires_at, is_used)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.CodeHash, o.CreatedAt, o.ExpiresAt, o.IsUsed)
	return err
}

// GetByID returns the OTP for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.OneTimePassword, error) {
	var o domain.OneTimePassword
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, code_hash, created_at, expires_at, is_used
		FROM one_time_passwords WHERE id = $1`, id).
		Scan(&o.ID, &o.CodeHash, &o.CreatedAt, &o.ExpiresAt, &o.IsUsed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id string) (bool, error) {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE one_time_passwords SET is_used = TRUE WHERE id = $1 AND NOT is_used`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
