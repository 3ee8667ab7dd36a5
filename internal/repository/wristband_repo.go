package repository

import (
	"context"
	"database/sql"

	"building_telemetry/internal/models"

	"github.com/google/uuid"
)

type WristbandSQLite struct {
	db *sql.DB
}

func NewWristbandSQLite(db *sql.DB) *WristbandSQLite { return &WristbandSQLite{db: db} }

var _ WristbandRepo = (*WristbandSQLite)(nil)

const (
	insertWristbandLocationSQL = `
		INSERT INTO wristband_locations (id, device_id, nearest_device_id, rssi, packet_number, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	insertButtonPushSQL = `
		INSERT INTO wristband_button_pushes (id, device_id, packet_number, recorded_at)
		VALUES (?, ?, ?, ?)
	`
)

func (r *WristbandSQLite) InsertLocation(ctx context.Context, l models.WristbandLocation) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertWristbandLocationSQL,
		l.ID, l.DeviceID, l.NearestDeviceID, l.RSSI, int64(l.PacketNumber), toMillis(utcOrNow(l.Timestamp)))
	return writeErr("wristband_locations", err)
}

func (r *WristbandSQLite) InsertButtonPush(ctx context.Context, p models.ButtonPush) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertButtonPushSQL,
		p.ID, p.DeviceID, int64(p.PacketNumber), toMillis(utcOrNow(p.Timestamp)))
	return writeErr("wristband_button_pushes", err)
}
