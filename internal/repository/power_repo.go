package repository

import (
	"context"
	"database/sql"
	"time"

	"building_telemetry/internal/models"

	"github.com/google/uuid"
)

// ---- pulses ----

type PulseSQLite struct {
	db *sql.DB
}

func NewPulseSQLite(db *sql.DB) *PulseSQLite { return &PulseSQLite{db: db} }

var _ PulseRepo = (*PulseSQLite)(nil)

const (
	insertPulseSQL = `
		INSERT INTO pulse_samples (id, device_id, packet_number, cumulative_count, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`
	selectRecentPulsesSQL = `
		SELECT id, recorded_at, packet_number, cumulative_count
		FROM pulse_samples
		WHERE device_id = ? AND packet_number IN (?, ?) AND recorded_at > ?
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT 2
	`
)

func (r *PulseSQLite) Insert(ctx context.Context, s models.PulseSample) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertPulseSQL,
		s.ID,
		s.DeviceID,
		int64(s.PacketNumber),
		s.CumulativeCount,
		toMillis(utcOrNow(s.Timestamp)),
	)
	return writeErr("pulse_samples", err)
}

func (r *PulseSQLite) Recent(ctx context.Context, deviceID string, a, b uint16, since time.Time) ([]models.PulseSample, error) {
	rows, err := r.db.QueryContext(ctx, selectRecentPulsesSQL, deviceID, int64(a), int64(b), toMillis(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PulseSample, 0, 2)
	for rows.Next() {
		var (
			s      models.PulseSample
			ms     int64
			packet int64
		)
		if err := rows.Scan(&s.ID, &ms, &packet, &s.CumulativeCount); err != nil {
			return nil, err
		}
		s.DeviceID = deviceID
		s.Timestamp = fromMillis(ms)
		s.PacketNumber = uint16(packet)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- rates ----

type RateSQLite struct {
	db *sql.DB
}

func NewRateSQLite(db *sql.DB) *RateSQLite { return &RateSQLite{db: db} }

var _ RateRepo = (*RateSQLite)(nil)

const (
	insertRateSQL = `
		INSERT INTO rate_samples (id, device_id, rate, recorded_at)
		VALUES (?, ?, ?, ?)
	`
	selectFirstRateSQL    = `SELECT MIN(recorded_at) FROM rate_samples WHERE device_id = ?`
	selectRatesInRangeSQL = `
		SELECT id, rate, recorded_at
		FROM rate_samples
		WHERE device_id = ? AND recorded_at >= ? AND recorded_at < ?
		ORDER BY recorded_at ASC
	`
)

func (r *RateSQLite) Insert(ctx context.Context, s models.RateSample) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertRateSQL, s.ID, s.DeviceID, s.Rate, toMillis(utcOrNow(s.Timestamp)))
	return writeErr("rate_samples", err)
}

func (r *RateSQLite) FirstTimestamp(ctx context.Context, deviceID string) (time.Time, bool, error) {
	return scanOptionalMillis(r.db.QueryRowContext(ctx, selectFirstRateSQL, deviceID))
}

func (r *RateSQLite) InRange(ctx context.Context, deviceID string, from, to time.Time) ([]models.RateSample, error) {
	rows, err := r.db.QueryContext(ctx, selectRatesInRangeSQL, deviceID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.RateSample, 0, 64)
	for rows.Next() {
		var (
			s  models.RateSample
			ms int64
		)
		if err := rows.Scan(&s.ID, &s.Rate, &ms); err != nil {
			return nil, err
		}
		s.DeviceID = deviceID
		s.Timestamp = fromMillis(ms)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- hourly aggregates ----

type AggregateSQLite struct {
	db *sql.DB
}

func NewAggregateSQLite(db *sql.DB) *AggregateSQLite { return &AggregateSQLite{db: db} }

var _ AggregateRepo = (*AggregateSQLite)(nil)

const (
	insertAggregateSQL = `
		INSERT INTO hourly_energy (id, device_id, hour_start, value)
		VALUES (?, ?, ?, ?)
	`
	selectLastAggregateSQL   = `SELECT MAX(hour_start) FROM hourly_energy WHERE device_id = ?`
	selectAggregateExistsSQL = `SELECT EXISTS(SELECT 1 FROM hourly_energy WHERE device_id = ? AND hour_start = ?)`
)

// Insert fails with ErrDuplicate when (device, hour) already has an aggregate.
func (r *AggregateSQLite) Insert(ctx context.Context, a models.HourlyEnergyAggregate) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertAggregateSQL, a.ID, a.DeviceID, toMillis(a.HourStart), a.Value)
	return writeErr("hourly_energy", err)
}

func (r *AggregateSQLite) LastHour(ctx context.Context, deviceID string) (time.Time, bool, error) {
	return scanOptionalMillis(r.db.QueryRowContext(ctx, selectLastAggregateSQL, deviceID))
}

func (r *AggregateSQLite) Exists(ctx context.Context, deviceID string, hour time.Time) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, selectAggregateExistsSQL, deviceID, toMillis(hour)).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// scanOptionalMillis reads a nullable MIN/MAX over a millisecond column.
func scanOptionalMillis(row *sql.Row) (time.Time, bool, error) {
	var ms sql.NullInt64
	if err := row.Scan(&ms); err != nil {
		return time.Time{}, false, err
	}
	if !ms.Valid {
		return time.Time{}, false, nil
	}
	return fromMillis(ms.Int64), true, nil
}
