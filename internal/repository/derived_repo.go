package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"building_telemetry/internal/models"

	"github.com/google/uuid"
)

type OccupancySQLite struct {
	db *sql.DB
}

func NewOccupancySQLite(db *sql.DB) *OccupancySQLite { return &OccupancySQLite{db: db} }

var _ OccupancyRepo = (*OccupancySQLite)(nil)

const insertOccupancySQL = `
	INSERT INTO occupancy_estimates (id, device_id, value, recorded_at)
	VALUES (?, ?, ?, ?)
`

func (r *OccupancySQLite) Insert(ctx context.Context, e models.OccupancyEstimate) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertOccupancySQL, e.ID, e.DeviceID, e.Value, toMillis(utcOrNow(e.Timestamp)))
	return writeErr("occupancy_estimates", err)
}

type DeviationSQLite struct {
	db *sql.DB
}

func NewDeviationSQLite(db *sql.DB) *DeviationSQLite { return &DeviationSQLite{db: db} }

var _ DeviationRepo = (*DeviationSQLite)(nil)

const (
	insertDeviationSQL = `
		INSERT INTO deviations (id, device_id, kind, recorded_at)
		VALUES (?, ?, ?, ?)
	`
	selectDeviationsSQL = `SELECT id, kind, recorded_at FROM deviations`
)

func (r *DeviationSQLite) Insert(ctx context.Context, d models.Deviation) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertDeviationSQL, d.ID, d.DeviceID, string(d.Kind), toMillis(utcOrNow(d.Timestamp)))
	return writeErr("deviations", err)
}

// List returns deviations of a device filtered by [from, to] (inclusive) and/or kind, ordered ASC.
func (r *DeviationSQLite) List(ctx context.Context, deviceID string, from, to time.Time, kind string) ([]models.Deviation, error) {
	conds := []string{"device_id = ?"}
	args := []any{deviceID}

	if !from.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		conds = append(conds, "recorded_at <= ?")
		args = append(args, toMillis(to))
	}
	if kind = strings.ToLower(strings.TrimSpace(kind)); kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}

	q := selectDeviationsSQL + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY recorded_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Deviation, 0, 16)
	for rows.Next() {
		var (
			d  models.Deviation
			k  string
			ms int64
		)
		if err := rows.Scan(&d.ID, &k, &ms); err != nil {
			return nil, err
		}
		d.DeviceID = deviceID
		d.Kind = models.DeviationKind(k)
		d.Timestamp = fromMillis(ms)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
