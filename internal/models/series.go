package models

import "fmt"

// Series names a queryable stored time series.
type Series string

const (
	SeriesRate         Series = "rate"
	SeriesEnergyHourly Series = "energy_hourly"
	SeriesOccupancy    Series = "occupancy"
)

// ParseSeries accepts reading kinds and the derived series names.
func ParseSeries(s string) (Series, error) {
	switch Series(s) {
	case SeriesRate, SeriesEnergyHourly, SeriesOccupancy:
		return Series(s), nil
	}
	if ReadingKind(s).Valid() {
		return Series(s), nil
	}
	return "", fmt.Errorf("unknown series %q", s)
}

// ReadingKind returns the reading kind backing s, if any.
func (s Series) ReadingKind() (ReadingKind, bool) {
	k := ReadingKind(s)
	return k, k.Valid()
}
