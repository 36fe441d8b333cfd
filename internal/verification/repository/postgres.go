package repository

import (
	"context"
	"database/sql"
	"errors"

	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/verification/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a verification context repository that uses the given db.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) Create(ctx context.Context, c *domain.Context) error {
	_, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO verification_contexts (id, user_id, otp_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		c.ID, c.UserID, c.OTPID, c.CreatedAt)
	return err
}

func (r *PostgresRepository) GetLatestByUser(ctx context.Context, userID string) (*domain.Context, error) {
	var c domain.Context
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, user_id, otp_id, created_at
		FROM verification_contexts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID).
		Scan(&c.ID, &c.UserID, &c.OTPID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
