package service

import (
	"testing"

	"building_telemetry/internal/models"

	"github.com/google/go-cmp/cmp"
)

func TestPlausible(t *testing.T) {
	tests := []struct {
		kind models.ReadingKind
		v    float64
		want bool
	}{
		{models.KindCO2, 100, false},
		{models.KindCO2, 99, false},
		{models.KindCO2, 100.5, true},
		{models.KindCO2, 7999, true},
		{models.KindCO2, 8000, false},
		{models.KindCO2, 12000, false},
		{models.KindTemperature, -0.1, false},
		{models.KindTemperature, 0, true},
		{models.KindTemperature, 21.5, true},
		{models.KindMoisture, 0, false},
		{models.KindMoisture, 0.01, true},
		{models.KindLight, 0, true},
		{models.KindDecibel, -3, true},
		{models.KindMovement, 0, true},
	}
	for _, tc := range tests {
		if got := Plausible(tc.kind, tc.v); got != tc.want {
			t.Fatalf("Plausible(%s, %v) = %v; want %v", tc.kind, tc.v, got, tc.want)
		}
	}
}

func TestFilterReadings_NullsOnlyImplausibleKinds(t *testing.T) {
	d := Decoded{
		PacketNumber: 5,
		Timestamp:    t0,
		Values: map[models.ReadingKind]float64{
			models.KindTemperature: -40,
			models.KindCO2:         8000,
			models.KindLight:       0,
			models.KindMoisture:    0,
			models.KindMovement:    1,
			models.KindDecibel:     90,
		},
	}

	got := FilterReadings("room-1", d)

	var kinds []models.ReadingKind
	present := map[models.ReadingKind]bool{}
	for _, r := range got {
		kinds = append(kinds, r.Kind)
		present[r.Kind] = r.Present()
		if r.DeviceID != "room-1" || r.PacketNumber != 5 || !r.Timestamp.Equal(t0) {
			t.Fatalf("reading %s carries wrong metadata: %+v", r.Kind, r)
		}
	}
	if diff := cmp.Diff(models.BuildingKinds, kinds); diff != "" {
		t.Fatalf("kind order mismatch (-want +got):\n%s", diff)
	}
	want := map[models.ReadingKind]bool{
		models.KindTemperature: false,
		models.KindCO2:         false,
		models.KindLight:       true,
		models.KindMoisture:    false,
		models.KindMovement:    true,
		models.KindDecibel:     true,
	}
	if diff := cmp.Diff(want, present); diff != "" {
		t.Fatalf("presence mismatch (-want +got):\n%s", diff)
	}
}
