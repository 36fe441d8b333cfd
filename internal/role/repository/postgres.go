package repository

import (
	"context"
	"database/sql"
	"errors"

	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/role/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a role repository that uses the given db.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := db.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name FROM roles WHERE lower(name) = lower($1)`, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Role, error) {
	rows, err := db.Executor(ctx, r.db).QueryContext(ctx, `
		SELECT r.id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ur.created_at, r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		out = append(out, &role)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Assign(ctx context.Context, ur *domain.UserRole) (bool, error) {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id, assigned_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, role_id) DO NOTHING`,
		ur.UserID, ur.RoleID, sql.NullString{String: ur.AssignedBy, Valid: ur.AssignedBy != ""}, ur.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PostgresRepository) CreateRole(ctx context.Context, role *domain.Role) error {
	_, err := db.Executor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT ((lower(name))) DO NOTHING`, role.ID, role.Name)
	return err
}
