package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"building_telemetry/internal/models"
)

type DeviceSQLite struct {
	db *sql.DB
}

func NewDeviceSQLite(db *sql.DB) *DeviceSQLite { return &DeviceSQLite{db: db} }

var _ DeviceRepo = (*DeviceSQLite)(nil)

const (
	deviceColumns       = `id, network_id, type, name, room, uid`
	insertDeviceSQL     = `INSERT INTO devices (` + deviceColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	selectDeviceSQL     = `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`
	selectDeviceUIDSQL  = `SELECT ` + deviceColumns + ` FROM devices WHERE uid = ? LIMIT 1`
	selectDeviceTypeSQL = `SELECT ` + deviceColumns + ` FROM devices WHERE type = ? ORDER BY id`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (models.Device, error) {
	var (
		d    models.Device
		typ  string
		name sql.NullString
		room sql.NullString
		uid  sql.NullInt64
	)
	if err := row.Scan(&d.ID, &d.NetworkID, &typ, &name, &room, &uid); err != nil {
		return models.Device{}, err
	}
	d.Type = models.DeviceType(typ)
	d.Name = name.String
	d.Room = room.String
	if uid.Valid {
		u := uint32(uid.Int64)
		d.UID = &u
	}
	return d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *DeviceSQLite) Create(ctx context.Context, d models.Device) error {
	var uid sql.NullInt64
	if d.UID != nil {
		uid = sql.NullInt64{Int64: int64(*d.UID), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, insertDeviceSQL,
		d.ID, d.NetworkID, string(d.Type), nullString(d.Name), nullString(d.Room), uid)
	return writeErr("devices", err)
}

// Get fetches a device by id. Returns (nil, nil) if not found.
func (r *DeviceSQLite) Get(ctx context.Context, id string) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, selectDeviceSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select device %q: %w", id, err)
	}
	return &d, nil
}

// GetByUID fetches the device announcing the given radio uid. Returns (nil, nil) if not found.
func (r *DeviceSQLite) GetByUID(ctx context.Context, uid uint32) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, selectDeviceUIDSQL, int64(uid)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select device by uid %d: %w", uid, err)
	}
	return &d, nil
}

func (r *DeviceSQLite) ListByType(ctx context.Context, t models.DeviceType) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDeviceTypeSQL, string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
