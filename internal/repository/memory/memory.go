// Package memory is a process-local implementation of the telemetry store.
// It backs the "memory" store driver and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Store keeps every table in slices guarded by one mutex.
type Store struct {
	mu         sync.RWMutex
	readings   []models.Reading
	pulses     []models.PulseSample
	rates      []models.RateSample
	aggregates []models.HourlyEnergyAggregate
	occupancy  []models.OccupancyEstimate
	deviations []models.Deviation
	devices    map[string]models.Device
	locations  []models.WristbandLocation
	pushes     []models.ButtonPush
}

func New() *Store {
	return &Store{devices: make(map[string]models.Device)}
}

// NewRepository exposes a fresh Store through the repository interfaces.
func NewRepository() (*repository.Repository, *Store) {
	s := New()
	return &repository.Repository{
		Readings:   readings{s},
		Pulses:     pulses{s},
		Rates:      rates{s},
		Aggregates: aggregates{s},
		Occupancy:  occupancy{s},
		Deviations: deviations{s},
		Devices:    devices{s},
		Wristbands: wristbands{s},
		Series:     series{s},
	}, s
}

func idOr(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func inRange(ts, from, to time.Time) bool {
	if !from.IsZero() && ts.Before(from) {
		return false
	}
	if !to.IsZero() && ts.After(to) {
		return false
	}
	return true
}

// ---- snapshots for tests ----

func (s *Store) Readings() []models.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Reading(nil), s.readings...)
}

func (s *Store) Pulses() []models.PulseSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PulseSample(nil), s.pulses...)
}

func (s *Store) Rates() []models.RateSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.RateSample(nil), s.rates...)
}

func (s *Store) Aggregates() []models.HourlyEnergyAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HourlyEnergyAggregate(nil), s.aggregates...)
}

func (s *Store) Occupancy() []models.OccupancyEstimate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.OccupancyEstimate(nil), s.occupancy...)
}

func (s *Store) Deviations() []models.Deviation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Deviation(nil), s.deviations...)
}

func (s *Store) Locations() []models.WristbandLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.WristbandLocation(nil), s.locations...)
}

func (s *Store) ButtonPushes() []models.ButtonPush {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ButtonPush(nil), s.pushes...)
}

// ---- readings ----

type readings struct{ s *Store }

func (r readings) Insert(_ context.Context, rd models.Reading) error {
	if rd.Value == nil {
		return repository.NewWriteError("readings", fmt.Errorf("reading has no value"))
	}
	v := *rd.Value
	rd.Value = &v
	rd.ID = idOr(rd.ID)
	rd.Timestamp = rd.Timestamp.UTC()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.readings = append(r.s.readings, rd)
	return nil
}

// Co2Baseline mirrors the SQL store: min and sample standard deviation over the plausible band.
func (r readings) Co2Baseline(_ context.Context, deviceID string) (repository.Co2Baseline, error) {
	r.s.mu.RLock()
	values := make([]float64, 0, len(r.s.readings))
	for _, rd := range r.s.readings {
		if rd.DeviceID != deviceID || rd.Kind != models.KindCO2 || rd.Value == nil {
			continue
		}
		if v := *rd.Value; v >= repository.BaselineCO2Low && v <= repository.BaselineCO2High {
			values = append(values, v)
		}
	}
	r.s.mu.RUnlock()

	if len(values) == 0 {
		return repository.Co2Baseline{}, nil
	}
	if len(values) < 2 {
		return repository.Co2Baseline{Min: values[0]}, nil
	}
	return repository.Co2Baseline{
		Min:    floats.Min(values),
		StdDev: stat.StdDev(values, nil),
		Valid:  true,
	}, nil
}

// ---- pulses ----

type pulses struct{ s *Store }

func (p pulses) Insert(_ context.Context, sample models.PulseSample) error {
	sample.ID = idOr(sample.ID)
	sample.Timestamp = sample.Timestamp.UTC()

	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.pulses = append(p.s.pulses, sample)
	return nil
}

func (p pulses) Recent(_ context.Context, deviceID string, a, b uint16, since time.Time) ([]models.PulseSample, error) {
	p.s.mu.RLock()
	var out []models.PulseSample
	// Walk backwards so equal timestamps keep the latest insert first.
	for i := len(p.s.pulses) - 1; i >= 0; i-- {
		sample := p.s.pulses[i]
		if sample.DeviceID != deviceID || !sample.Timestamp.After(since) {
			continue
		}
		if sample.PacketNumber == a || sample.PacketNumber == b {
			out = append(out, sample)
		}
	}
	p.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > 2 {
		out = out[:2]
	}
	return out, nil
}

// ---- rates ----

type rates struct{ s *Store }

func (r rates) Insert(_ context.Context, sample models.RateSample) error {
	sample.ID = idOr(sample.ID)
	sample.Timestamp = sample.Timestamp.UTC()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rates = append(r.s.rates, sample)
	return nil
}

func (r rates) FirstTimestamp(_ context.Context, deviceID string) (time.Time, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var (
		first time.Time
		found bool
	)
	for _, sample := range r.s.rates {
		if sample.DeviceID != deviceID {
			continue
		}
		if !found || sample.Timestamp.Before(first) {
			first, found = sample.Timestamp, true
		}
	}
	return first, found, nil
}

func (r rates) InRange(_ context.Context, deviceID string, from, to time.Time) ([]models.RateSample, error) {
	r.s.mu.RLock()
	var out []models.RateSample
	for _, sample := range r.s.rates {
		if sample.DeviceID == deviceID && !sample.Timestamp.Before(from) && sample.Timestamp.Before(to) {
			out = append(out, sample)
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// ---- aggregates ----

type aggregates struct{ s *Store }

func (a aggregates) Insert(_ context.Context, agg models.HourlyEnergyAggregate) error {
	agg.ID = idOr(agg.ID)
	agg.HourStart = agg.HourStart.UTC()

	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, existing := range a.s.aggregates {
		if existing.DeviceID == agg.DeviceID && existing.HourStart.Equal(agg.HourStart) {
			return repository.NewWriteError("hourly_energy", repository.ErrDuplicate)
		}
	}
	a.s.aggregates = append(a.s.aggregates, agg)
	return nil
}

func (a aggregates) LastHour(_ context.Context, deviceID string) (time.Time, bool, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	var (
		last  time.Time
		found bool
	)
	for _, agg := range a.s.aggregates {
		if agg.DeviceID != deviceID {
			continue
		}
		if !found || agg.HourStart.After(last) {
			last, found = agg.HourStart, true
		}
	}
	return last, found, nil
}

func (a aggregates) Exists(_ context.Context, deviceID string, hour time.Time) (bool, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	for _, agg := range a.s.aggregates {
		if agg.DeviceID == deviceID && agg.HourStart.Equal(hour) {
			return true, nil
		}
	}
	return false, nil
}

// ---- occupancy & deviations ----

type occupancy struct{ s *Store }

func (o occupancy) Insert(_ context.Context, e models.OccupancyEstimate) error {
	e.ID = idOr(e.ID)
	e.Timestamp = e.Timestamp.UTC()

	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.occupancy = append(o.s.occupancy, e)
	return nil
}

type deviations struct{ s *Store }

func (d deviations) Insert(_ context.Context, dev models.Deviation) error {
	dev.ID = idOr(dev.ID)
	dev.Timestamp = dev.Timestamp.UTC()

	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.deviations = append(d.s.deviations, dev)
	return nil
}

func (d deviations) List(_ context.Context, deviceID string, from, to time.Time, kind string) ([]models.Deviation, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))

	d.s.mu.RLock()
	var out []models.Deviation
	for _, dev := range d.s.deviations {
		if dev.DeviceID != deviceID || !inRange(dev.Timestamp, from, to) {
			continue
		}
		if kind != "" && string(dev.Kind) != kind {
			continue
		}
		out = append(out, dev)
	}
	d.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// ---- devices ----

type devices struct{ s *Store }

func (d devices) Get(_ context.Context, id string) (*models.Device, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	dev, ok := d.s.devices[id]
	if !ok {
		return nil, nil
	}
	return &dev, nil
}

func (d devices) GetByUID(_ context.Context, uid uint32) (*models.Device, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	for _, dev := range d.s.devices {
		if dev.UID != nil && *dev.UID == uid {
			found := dev
			return &found, nil
		}
	}
	return nil, nil
}

func (d devices) Create(_ context.Context, dev models.Device) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if _, ok := d.s.devices[dev.ID]; ok {
		return repository.NewWriteError("devices", repository.ErrDuplicate)
	}
	d.s.devices[dev.ID] = dev
	return nil
}

func (d devices) ListByType(_ context.Context, t models.DeviceType) ([]models.Device, error) {
	d.s.mu.RLock()
	var out []models.Device
	for _, dev := range d.s.devices {
		if dev.Type == t {
			out = append(out, dev)
		}
	}
	d.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- wristbands ----

type wristbands struct{ s *Store }

func (w wristbands) InsertLocation(_ context.Context, l models.WristbandLocation) error {
	l.ID = idOr(l.ID)
	l.Timestamp = l.Timestamp.UTC()

	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.locations = append(w.s.locations, l)
	return nil
}

func (w wristbands) InsertButtonPush(_ context.Context, p models.ButtonPush) error {
	p.ID = idOr(p.ID)
	p.Timestamp = p.Timestamp.UTC()

	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.pushes = append(w.s.pushes, p)
	return nil
}

// ---- series ----

type series struct{ s *Store }

func (q series) List(_ context.Context, name models.Series, deviceID string, from, to time.Time) ([]models.Point, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()

	var out []models.Point
	add := func(ts time.Time, v float64) {
		if inRange(ts, from, to) {
			out = append(out, models.Point{Timestamp: ts, Value: v})
		}
	}

	switch name {
	case models.SeriesRate:
		for _, r := range q.s.rates {
			if r.DeviceID == deviceID {
				add(r.Timestamp, r.Rate)
			}
		}
	case models.SeriesEnergyHourly:
		for _, a := range q.s.aggregates {
			if a.DeviceID == deviceID {
				add(a.HourStart, a.Value)
			}
		}
	case models.SeriesOccupancy:
		for _, o := range q.s.occupancy {
			if o.DeviceID == deviceID {
				add(o.Timestamp, float64(o.Value))
			}
		}
	default:
		kind, ok := name.ReadingKind()
		if !ok {
			return nil, fmt.Errorf("unknown series %q", name)
		}
		for _, rd := range q.s.readings {
			if rd.DeviceID == deviceID && rd.Kind == kind && rd.Value != nil {
				add(rd.Timestamp, *rd.Value)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (q series) Latest(_ context.Context, deviceID string) (models.DeviceSnapshot, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()

	snap := models.DeviceSnapshot{DeviceID: deviceID}
	for i := range q.s.occupancy {
		o := q.s.occupancy[i]
		if o.DeviceID == deviceID && (snap.Occupancy == nil || !o.Timestamp.Before(snap.Occupancy.Timestamp)) {
			snap.Occupancy = &o
		}
	}
	for i := range q.s.rates {
		r := q.s.rates[i]
		if r.DeviceID == deviceID && (snap.Rate == nil || !r.Timestamp.Before(snap.Rate.Timestamp)) {
			snap.Rate = &r
		}
	}
	for i := range q.s.aggregates {
		a := q.s.aggregates[i]
		if a.DeviceID == deviceID && (snap.HourlyEnergy == nil || a.HourStart.After(snap.HourlyEnergy.HourStart)) {
			snap.HourlyEnergy = &a
		}
	}
	return snap, nil
}
