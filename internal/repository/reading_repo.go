package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"building_telemetry/internal/models"

	"github.com/google/uuid"
)

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db} }

var _ ReadingRepo = (*ReadingSQLite)(nil)

var errNilReading = errors.New("reading has no value")

const (
	insertReadingSQL = `
		INSERT INTO readings (id, device_id, kind, value, packet_number, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	// Two passes keep the variance numerically stable for long histories.
	selectCo2BaselineSQL = `
		WITH hist AS (
			SELECT value FROM readings
			WHERE device_id = ? AND kind = 'co2' AND value BETWEEN ? AND ?
		), stats AS (
			SELECT AVG(value) AS mean FROM hist
		)
		SELECT MIN(h.value), COUNT(h.value), SUM((h.value - s.mean) * (h.value - s.mean))
		FROM hist h, stats s
	`
)

// Insert appends one filtered reading. Readings without a value are rejected.
func (r *ReadingSQLite) Insert(ctx context.Context, rd models.Reading) error {
	if rd.Value == nil {
		return writeErr("readings", errNilReading)
	}
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		rd.ID,
		rd.DeviceID,
		string(rd.Kind),
		*rd.Value,
		int64(rd.PacketNumber),
		toMillis(utcOrNow(rd.Timestamp)),
	)
	return writeErr("readings", err)
}

// Co2Baseline returns min and sample standard deviation of plausible CO2 readings.
func (r *ReadingSQLite) Co2Baseline(ctx context.Context, deviceID string) (Co2Baseline, error) {
	var (
		minVal sql.NullFloat64
		count  int64
		sumSq  sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, selectCo2BaselineSQL, deviceID, BaselineCO2Low, BaselineCO2High).
		Scan(&minVal, &count, &sumSq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Co2Baseline{}, nil
		}
		return Co2Baseline{}, err
	}
	return baselineFrom(minVal, count, sumSq), nil
}

func baselineFrom(minVal sql.NullFloat64, count int64, sumSq sql.NullFloat64) Co2Baseline {
	if !minVal.Valid || !sumSq.Valid || count < 2 {
		return Co2Baseline{Min: minVal.Float64}
	}
	return Co2Baseline{
		Min:    minVal.Float64,
		StdDev: math.Sqrt(sumSq.Float64 / float64(count-1)),
		Valid:  true,
	}
}
