package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"multidevice-identity/backend/internal/db"
	"multidevice-identity/backend/internal/device/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a device repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

const deviceColumns = `id, name, browser, os, user_agent, created_by_ip, created_at, last_seen_at, is_active`

// GetByID returns the device for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	row := db.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// GetByIDs returns the devices found for ids, in no particular order. Unknown ids are skipped.
func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Device, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := db.Executor(ctx, r.db).QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id IN (`+strings.Join(placeholders, ", ")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Exists reports whether a device with id exists.
func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := db.Executor(ctx, r.db).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM devices WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

// Create persists the device to the database. The device must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.Device) error {
	_, err := db.Executor(ctx, r.db).ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Name, d.Browser, d.OS, nullString(d.UserAgent), nullString(d.CreatedByIP),
		d.CreatedAt, d.LastSeenAt, d.IsActive)
	return err
}

// UpdateLastSeen sets the device's last-seen timestamp for the given id.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx, `UPDATE devices SET last_seen_at = $2 WHERE id = $1`, id, at)
	return affected(res, err)
}

// SetActive sets is_active for the given id. Postgres counts matched rows, so repeating a value still reports true.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	res, err := db.Executor(ctx, r.db).ExecContext(ctx, `UPDATE devices SET is_active = $2 WHERE id = $1`, id, active)
	return affected(res, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*domain.Device, error) {
	var d domain.Device
	var ua, ip sql.NullString
	if err := s.Scan(&d.ID, &d.Name, &d.Browser, &d.OS, &ua, &ip, &d.CreatedAt, &d.LastSeenAt, &d.IsActive); err != nil {
		return nil, err
	}
	d.UserAgent = ua.String
	d.CreatedByIP = ip.String
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
