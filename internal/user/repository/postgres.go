package repository

import (
	"context"
	"database/sql"
	"errors"

	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/user/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
// Calls made with a context from db.TxManager.RunInTx join that transaction.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const userColumns = `id, email, created_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := db.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := db.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

// Exists reports whether a user with id exists.
func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

// GetOrCreate inserts the user, or returns the existing row when the email is taken.
// ON CONFLICT keeps a concurrent insert from aborting the surrounding transaction.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, u *domain.User) (*domain.User, bool, error) {
	exec := db.Executor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3)
		ON CONFLICT ((lower(email))) DO NOTHING
		RETURNING `+userColumns, u.ID, u.Email, u.CreatedAt)
	stored, err := scanUser(row)
	if err != nil {
		return nil, false, err
	}
	if stored != nil {
		return stored, true, nil
	}
	existing, err := r.GetByEmail(ctx, u.Email)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("user: conflicting row vanished")
	}
	return existing, false, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
