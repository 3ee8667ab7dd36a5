package repository

import (
	"context"
	"database/sql"
	"time"

	"building_telemetry/internal/models"
)

// Co2Baseline summarizes a device's plausible CO2 history.
// Valid is false until at least two readings exist.
type Co2Baseline struct {
	Min    float64
	StdDev float64
	Valid  bool
}

// Plausible CO2 band used for the baseline.
const (
	BaselineCO2Low  = 50.0
	BaselineCO2High = 8000.0
)

type ReadingRepo interface {
	Insert(ctx context.Context, r models.Reading) error
	Co2Baseline(ctx context.Context, deviceID string) (Co2Baseline, error)
}

type PulseRepo interface {
	Insert(ctx context.Context, s models.PulseSample) error
	// Recent returns at most two samples with packet number a or b recorded after since, newest first.
	Recent(ctx context.Context, deviceID string, a, b uint16, since time.Time) ([]models.PulseSample, error)
}

type RateRepo interface {
	Insert(ctx context.Context, s models.RateSample) error
	FirstTimestamp(ctx context.Context, deviceID string) (time.Time, bool, error)
	// InRange returns samples with from <= ts < to, oldest first.
	InRange(ctx context.Context, deviceID string, from, to time.Time) ([]models.RateSample, error)
}

type AggregateRepo interface {
	Insert(ctx context.Context, a models.HourlyEnergyAggregate) error
	LastHour(ctx context.Context, deviceID string) (time.Time, bool, error)
	Exists(ctx context.Context, deviceID string, hour time.Time) (bool, error)
}

type OccupancyRepo interface {
	Insert(ctx context.Context, e models.OccupancyEstimate) error
}

type DeviationRepo interface {
	Insert(ctx context.Context, d models.Deviation) error
	List(ctx context.Context, deviceID string, from, to time.Time, kind string) ([]models.Deviation, error)
}

type DeviceRepo interface {
	// Get returns (nil, nil) when the device is unknown.
	Get(ctx context.Context, id string) (*models.Device, error)
	GetByUID(ctx context.Context, uid uint32) (*models.Device, error)
	Create(ctx context.Context, d models.Device) error
	ListByType(ctx context.Context, t models.DeviceType) ([]models.Device, error)
}

type WristbandRepo interface {
	InsertLocation(ctx context.Context, l models.WristbandLocation) error
	InsertButtonPush(ctx context.Context, p models.ButtonPush) error
}

type SeriesRepo interface {
	List(ctx context.Context, series models.Series, deviceID string, from, to time.Time) ([]models.Point, error)
	Latest(ctx context.Context, deviceID string) (models.DeviceSnapshot, error)
}

// Repository is the time-series store consumed by the services.
type Repository struct {
	Readings   ReadingRepo
	Pulses     PulseRepo
	Rates      RateRepo
	Aggregates AggregateRepo
	Occupancy  OccupancyRepo
	Deviations DeviationRepo
	Devices    DeviceRepo
	Wristbands WristbandRepo
	Series     SeriesRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Readings:   NewReadingSQLite(db),
		Pulses:     NewPulseSQLite(db),
		Rates:      NewRateSQLite(db),
		Aggregates: NewAggregateSQLite(db),
		Occupancy:  NewOccupancySQLite(db),
		Deviations: NewDeviationSQLite(db),
		Devices:    NewDeviceSQLite(db),
		Wristbands: NewWristbandSQLite(db),
		Series:     NewSeriesSQLite(db),
	}
}

// toMillis stores instants as UTC unix milliseconds.
func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// utcOrNow normalizes t to UTC, substituting the current time for the zero value.
func utcOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
