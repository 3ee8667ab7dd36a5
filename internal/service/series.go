package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"
)

// SeriesFilter is the optional time window of a series query.
type SeriesFilter struct {
	From time.Time
	To   time.Time
}

// DeviationFilter narrows a deviation listing.
type DeviationFilter struct {
	From time.Time
	To   time.Time
	Kind string
}

// SeriesService is the read side over stored and derived series.
type SeriesService struct {
	series     repository.SeriesRepo
	deviations repository.DeviationRepo
}

func NewSeriesService(series repository.SeriesRepo, deviations repository.DeviationRepo) *SeriesService {
	return &SeriesService{series: series, deviations: deviations}
}

// normalizeDeviationKind trims spaces and lowercases the kind filter.
func normalizeDeviationKind(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// normalizeRange converts both ends to UTC and validates their order.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	from = toUTC(from)
	to = toUTC(to)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, errInvalidTimeRange
	}
	return from, to, nil
}

func (s *SeriesService) Points(ctx context.Context, deviceID string, series models.Series, f SeriesFilter) ([]models.Point, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.series.List(ctx, series, deviceID, from, to)
}

func (s *SeriesService) Deviations(ctx context.Context, deviceID string, f DeviationFilter) ([]models.Deviation, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	kind := normalizeDeviationKind(f.Kind)
	switch models.DeviationKind(kind) {
	case "", models.DeviationCO2, models.DeviationMoisture, models.DeviationTemperature:
	default:
		return nil, fmt.Errorf("%w: unknown deviation kind %q", ErrInvalidFilter, f.Kind)
	}
	return s.deviations.List(ctx, deviceID, from, to, kind)
}
