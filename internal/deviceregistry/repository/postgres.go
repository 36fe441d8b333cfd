package repository

import (
	"context"
	"database/sql"
	"errors"

	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/deviceregistry/domain"
)

const userFingerprintKey = "device_registry_user_fingerprint_key"

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a device registry repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) FindDeviceID(ctx context.Context, userID, fingerprint string) (string, error) {
	var id string
	err := db.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT device_id FROM device_registry WHERE user_id = $1 AND fingerprint = $2`, userID, fingerprint).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.Executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT count(*) FROM device_registry WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// Create inserts the registration. A unique violation on (user_id, fingerprint) returns ErrDuplicate;
// inside a transaction the caller must abort since Postgres has already failed the transaction.
func (r *PostgresRepository) Create(ctx context.Context, reg *domain.Registration) error {
	_, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO device_registry (id, user_id, device_id, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		reg.ID, reg.UserID, reg.DeviceID, reg.Fingerprint, reg.CreatedAt)
	if db.IsUniqueViolation(err, userFingerprintKey) {
		return ErrDuplicate
	}
	return err
}

// ListDeviceIDsByUser returns the user's device ids, oldest registration first.
func (r *PostgresRepository) ListDeviceIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.Executor(ctx, r.db).QueryContext(ctx,
		`SELECT device_id FROM device_registry WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
