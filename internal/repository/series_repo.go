package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"building_telemetry/internal/models"
)

// SeriesSQLite is the read side used by the HTTP API.
type SeriesSQLite struct {
	db *sql.DB
}

func NewSeriesSQLite(db *sql.DB) *SeriesSQLite { return &SeriesSQLite{db: db} }

var _ SeriesRepo = (*SeriesSQLite)(nil)

// seriesSource maps a series onto its table; names come from this fixed set only.
type seriesSource struct {
	table   string
	timeCol string
	valCol  string
	kind    string
}

func sourceFor(s models.Series) (seriesSource, error) {
	switch s {
	case models.SeriesRate:
		return seriesSource{table: "rate_samples", timeCol: "recorded_at", valCol: "rate"}, nil
	case models.SeriesEnergyHourly:
		return seriesSource{table: "hourly_energy", timeCol: "hour_start", valCol: "value"}, nil
	case models.SeriesOccupancy:
		return seriesSource{table: "occupancy_estimates", timeCol: "recorded_at", valCol: "value"}, nil
	}
	if k, ok := s.ReadingKind(); ok {
		return seriesSource{table: "readings", timeCol: "recorded_at", valCol: "value", kind: string(k)}, nil
	}
	return seriesSource{}, fmt.Errorf("unknown series %q", s)
}

// List returns points filtered by [from, to] (inclusive, zero = unbounded), ordered ASC.
func (r *SeriesSQLite) List(ctx context.Context, series models.Series, deviceID string, from, to time.Time) ([]models.Point, error) {
	src, err := sourceFor(series)
	if err != nil {
		return nil, err
	}

	conds := []string{"device_id = ?"}
	args := []any{deviceID}
	if src.kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, src.kind)
	}
	if !from.IsZero() {
		conds = append(conds, src.timeCol+" >= ?")
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		conds = append(conds, src.timeCol+" <= ?")
		args = append(args, toMillis(to))
	}

	q := "SELECT " + src.timeCol + ", " + src.valCol + " FROM " + src.table +
		" WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY " + src.timeCol + " ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Point, 0, 64)
	for rows.Next() {
		var (
			ms int64
			p  models.Point
		)
		if err := rows.Scan(&ms, &p.Value); err != nil {
			return nil, err
		}
		p.Timestamp = fromMillis(ms)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const (
	selectLatestOccupancySQL = `
		SELECT id, value, recorded_at FROM occupancy_estimates
		WHERE device_id = ? ORDER BY recorded_at DESC LIMIT 1
	`
	selectLatestRateSQL = `
		SELECT id, rate, recorded_at FROM rate_samples
		WHERE device_id = ? ORDER BY recorded_at DESC LIMIT 1
	`
	selectLatestAggregateSQL = `
		SELECT id, value, hour_start FROM hourly_energy
		WHERE device_id = ? ORDER BY hour_start DESC LIMIT 1
	`
)

// Latest returns the most recent derived records of a device; missing ones stay nil.
func (r *SeriesSQLite) Latest(ctx context.Context, deviceID string) (models.DeviceSnapshot, error) {
	snap := models.DeviceSnapshot{DeviceID: deviceID}

	var (
		id string
		v  float64
		ms int64
	)

	ok, err := scanLatest(r.db.QueryRowContext(ctx, selectLatestOccupancySQL, deviceID), &id, &v, &ms)
	if err != nil {
		return snap, fmt.Errorf("latest occupancy: %w", err)
	}
	if ok {
		snap.Occupancy = &models.OccupancyEstimate{ID: id, DeviceID: deviceID, Value: int(v), Timestamp: fromMillis(ms)}
	}

	ok, err = scanLatest(r.db.QueryRowContext(ctx, selectLatestRateSQL, deviceID), &id, &v, &ms)
	if err != nil {
		return snap, fmt.Errorf("latest rate: %w", err)
	}
	if ok {
		snap.Rate = &models.RateSample{ID: id, DeviceID: deviceID, Rate: v, Timestamp: fromMillis(ms)}
	}

	ok, err = scanLatest(r.db.QueryRowContext(ctx, selectLatestAggregateSQL, deviceID), &id, &v, &ms)
	if err != nil {
		return snap, fmt.Errorf("latest hourly energy: %w", err)
	}
	if ok {
		snap.HourlyEnergy = &models.HourlyEnergyAggregate{ID: id, DeviceID: deviceID, Value: v, HourStart: fromMillis(ms)}
	}

	return snap, nil
}

func scanLatest(row *sql.Row, id *string, v *float64, ms *int64) (bool, error) {
	if err := row.Scan(id, v, ms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
