package repository

import (
	"context"
	"database/sql"
	"errors"

	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/tokencontext/domain"
)

const refreshTokenKey = "token_contexts_refresh_token_key"

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a token context repository that uses the given db.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const contextColumns = `id, user_id, device_id, refresh_token_id, is_revoked, created_at`

// Create persists the context. A second context for the same refresh token returns ErrDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.TokenContext) error {
	_, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO token_contexts (`+contextColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.UserID, c.DeviceID, c.RefreshTokenID, c.IsRevoked, c.CreatedAt)
	if db.IsUniqueViolation(err, refreshTokenKey) {
		return ErrDuplicate
	}
	return err
}

func (r *PostgresRepository) GetActiveByRefreshTokenID(ctx context.Context, refreshTokenID string) (*domain.TokenContext, error) {
	var c domain.TokenContext
	err := db.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+contextColumns+` FROM token_contexts WHERE refresh_token_id = $1 AND NOT is_revoked`, refreshTokenID).
		Scan(&c.ID, &c.UserID, &c.DeviceID, &c.RefreshTokenID, &c.IsRevoked, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) RevokeByRefreshTokenID(ctx context.Context, refreshTokenID string) (bool, error) {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE token_contexts SET is_revoked = TRUE WHERE refresh_token_id = $1 AND NOT is_revoked`, refreshTokenID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListActiveByUser returns the user's unrevoked contexts, newest first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.TokenContext, error) {
	rows, err := db.Executor(ctx, r.db).QueryContext(ctx,
		`SELECT `+contextColumns+` FROM token_contexts WHERE user_id = $1 AND NOT is_revoked ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.TokenContext
	for rows.Next() {
		var c domain.TokenContext
		if err := rows.Scan(&c.ID, &c.UserID, &c.DeviceID, &c.RefreshTokenID, &c.IsRevoked, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
