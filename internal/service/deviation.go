package service

import (
	"context"
	"fmt"
	"time"

	"building_telemetry/internal/config"
	"building_telemetry/internal/models"
	"building_telemetry/internal/repository"
)

// Bound is one end of a healthy range.
type Bound struct {
	Value     float64
	Inclusive bool
}

// Range is a healthy interval; a nil end is unbounded.
type Range struct {
	Min *Bound
	Max *Bound
}

func exclusive(v float64) *Bound { return &Bound{Value: v} }
func inclusive(v float64) *Bound { return &Bound{Value: v, Inclusive: true} }

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	if r.Min != nil {
		if v < r.Min.Value || (v == r.Min.Value && !r.Min.Inclusive) {
			return false
		}
	}
	if r.Max != nil {
		if v > r.Max.Value || (v == r.Max.Value && !r.Max.Inclusive) {
			return false
		}
	}
	return true
}

// DeviationRule maps a reading kind to its healthy range.
type DeviationRule struct {
	Kind    models.DeviationKind
	Reading models.ReadingKind
	Healthy Range
}

// DeviationPolicy is an ordered rule list. With StopAtFirstViolation only the first
// violated rule yields a deviation.
type DeviationPolicy struct {
	Rules                []DeviationRule
	StopAtFirstViolation bool
}

// ProfilePolicy returns the named threshold profile, checked in co2, moisture, temperature order.
func ProfilePolicy(name string) (DeviationPolicy, error) {
	var co2, moisture, temperature Range
	switch name {
	case config.ProfileOffice, "":
		co2 = Range{Min: exclusive(100), Max: exclusive(200)}
		moisture = Range{Min: exclusive(20), Max: exclusive(60)}
		temperature = Range{Min: exclusive(19), Max: exclusive(23)}
	case config.ProfileComfort:
		co2 = Range{Max: exclusive(1000)}
		moisture = Range{Min: exclusive(30), Max: exclusive(80)}
		temperature = Range{Min: inclusive(20), Max: inclusive(22)}
	default:
		return DeviationPolicy{}, fmt.Errorf("unknown deviation profile %q", name)
	}
	return DeviationPolicy{
		Rules: []DeviationRule{
			{Kind: models.DeviationCO2, Reading: models.KindCO2, Healthy: co2},
			{Kind: models.DeviationMoisture, Reading: models.KindMoisture, Healthy: moisture},
			{Kind: models.DeviationTemperature, Reading: models.KindTemperature, Healthy: temperature},
		},
		StopAtFirstViolation: true,
	}, nil
}

// PolicyFromConfig starts from the configured profile and applies per-bound overrides.
func PolicyFromConfig(cfg config.DeviationConfig) (DeviationPolicy, error) {
	p, err := ProfilePolicy(cfg.Profile)
	if err != nil {
		return DeviationPolicy{}, err
	}
	p.StopAtFirstViolation = cfg.StopAtFirst

	overrides := map[models.DeviationKind]config.RangeConfig{
		models.DeviationCO2:         cfg.CO2,
		models.DeviationMoisture:    cfg.Moisture,
		models.DeviationTemperature: cfg.Temperature,
	}
	for i, rule := range p.Rules {
		o := overrides[rule.Kind]
		if o.Min != nil {
			p.Rules[i].Healthy.Min = boundFromConfig(o.Min)
		}
		if o.Max != nil {
			p.Rules[i].Healthy.Max = boundFromConfig(o.Max)
		}
	}
	return p, nil
}

// boundFromConfig maps an override without a value to an unbounded end.
func boundFromConfig(b *config.Bound) *Bound {
	if b.Value == nil {
		return nil
	}
	return &Bound{Value: *b.Value, Inclusive: b.Inclusive}
}

// Violations lists the deviation kinds triggered by values. Kinds missing from
// values were filtered upstream and never trigger.
func (p DeviationPolicy) Violations(values map[models.ReadingKind]float64) []models.DeviationKind {
	var out []models.DeviationKind
	for _, rule := range p.Rules {
		v, ok := values[rule.Reading]
		if !ok || rule.Healthy.Contains(v) {
			continue
		}
		out = append(out, rule.Kind)
		if p.StopAtFirstViolation {
			break
		}
	}
	return out
}

// DeviationDetector stores deviations of building readings.
type DeviationDetector struct {
	repo   repository.DeviationRepo
	policy DeviationPolicy
}

func NewDeviationDetector(repo repository.DeviationRepo, policy DeviationPolicy) *DeviationDetector {
	return &DeviationDetector{repo: repo, policy: policy}
}

// Detect evaluates the surviving readings of one packet and stores every deviation found.
// Deviations already stored stay stored if a later insert fails.
func (d *DeviationDetector) Detect(ctx context.Context, deviceID string, ts time.Time, readings []models.Reading) ([]models.Deviation, error) {
	var out []models.Deviation
	for _, kind := range d.policy.Violations(presentValues(readings)) {
		dev := models.Deviation{DeviceID: deviceID, Kind: kind, Timestamp: ts}
		if err := d.repo.Insert(ctx, dev); err != nil {
			return out, err
		}
		out = append(out, dev)
	}
	return out, nil
}
