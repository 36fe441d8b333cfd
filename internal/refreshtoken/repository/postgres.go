package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/refreshtoken/domain"
)

const replacedByKey = "refresh_tokens_replaced_by_key"

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a refresh token repository that uses the given db.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const tokenColumns = `id, token_hash, created_at, expires_at, revoked_at, replaced_by_token_id`

func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	_, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		t.ID, t.TokenHash, t.CreatedAt, t.ExpiresAt)
	return err
}

// GetByHash returns the token with the given hash, or nil if not found.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	row := db.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	return scanToken(row)
}

// GetByID returns the token for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	row := db.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE id = $1`, id)
	return scanToken(row)
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Rotate claims the predecessor with a conditional update before writing anything, so a losing
// racer leaves no rows behind. The successor link is set after the insert to satisfy the foreign key.
func (r *PostgresRepository) Rotate(ctx context.Context, oldID string, next *domain.RefreshToken, at time.Time) error {
	claimed, err := r.Revoke(ctx, oldID, at)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyRotated
	}
	if err := r.Create(ctx, next); err != nil {
		return err
	}
	_, err = db.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE refresh_tokens SET replaced_by_token_id = $2 WHERE id = $1 AND replaced_by_token_id IS NULL`, oldID, next.ID)
	if db.IsUniqueViolation(err, replacedByKey) {
		return ErrAlreadyRotated
	}
	return err
}

func scanToken(row *sql.Row) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	var revokedAt sql.NullTime
	var replacedBy sql.NullString
	if err := row.Scan(&t.ID, &t.TokenHash, &t.CreatedAt, &t.ExpiresAt, &revokedAt, &replacedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	t.ReplacedByTokenID = replacedBy.String
	return &t, nil
}
