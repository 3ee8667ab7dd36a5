package repository

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"building_telemetry/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSeriesList_ReadingKind(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewSeriesSQLite(db)
	to := ts0.Add(time.Hour)

	q := "SELECT recorded_at, value FROM readings WHERE device_id = ? AND kind = ? AND recorded_at >= ? AND recorded_at <= ? ORDER BY recorded_at ASC"
	mock.ExpectQuery(regexp.QuoteMeta(q)).
		WithArgs("room-1", "temperature", ts0.UnixMilli(), to.UnixMilli()).
		WillReturnRows(sqlmock.NewRows([]string{"recorded_at", "value"}).
			AddRow(ts0.UnixMilli(), 21.5).
			AddRow(to.UnixMilli(), 22.0))

	got, err := repo.List(testCtx(t), models.Series("temperature"), "room-1", ts0, to)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []models.Point{{Timestamp: ts0, Value: 21.5}, {Timestamp: to, Value: 22.0}}
	if len(got) != len(want) {
		t.Fatalf("got %d points; want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Timestamp.Equal(want[i].Timestamp) || got[i].Value != want[i].Value {
			t.Fatalf("point %d = %+v; want %+v", i, got[i], want[i])
		}
	}
	expectationsMet(t, mock)
}

func TestSeriesList_HourlyEnergyUsesHourStart(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewSeriesSQLite(db)

	q := "SELECT hour_start, value FROM hourly_energy WHERE device_id = ? ORDER BY hour_start ASC"
	mock.ExpectQuery(regexp.QuoteMeta(q)).
		WithArgs("meter-1").
		WillReturnRows(sqlmock.NewRows([]string{"hour_start", "value"}).AddRow(ts0.UnixMilli(), 36.0))

	got, err := repo.List(testCtx(t), models.SeriesEnergyHourly, "meter-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Value != 36 {
		t.Fatalf("unexpected points %+v", got)
	}
	expectationsMet(t, mock)
}

func TestSeriesList_UnknownSeries(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewSeriesSQLite(db)

	if _, err := repo.List(testCtx(t), models.Series("humidity"), "room-1", time.Time{}, time.Time{}); err == nil {
		t.Fatalf("expected error for unknown series")
	}
	expectationsMet(t, mock)
}

func TestSeriesLatest_PartialSnapshot(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewSeriesSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta(selectLatestOccupancySQL)).
		WithArgs("room-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "value", "recorded_at"}).AddRow("o1", 4.0, ts0.UnixMilli()))
	mock.ExpectQuery(regexp.QuoteMeta(selectLatestRateSQL)).
		WithArgs("room-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(selectLatestAggregateSQL)).
		WithArgs("room-1").
		WillReturnError(sql.ErrNoRows)

	snap, err := repo.Latest(testCtx(t), "room-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if snap.Occupancy == nil || snap.Occupancy.Value != 4 {
		t.Fatalf("occupancy missing: %+v", snap.Occupancy)
	}
	if snap.Rate != nil || snap.HourlyEnergy != nil {
		t.Fatalf("expected empty rate and energy, got %+v", snap)
	}
	expectationsMet(t, mock)
}

func TestWristbandInserts(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	repo := NewWristbandSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta(insertWristbandLocationSQL)).
		WithArgs(sqlmock.AnyArg(), "band-1", "room-1", int64(-70), int64(12), ts0.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertButtonPushSQL)).
		WithArgs(sqlmock.AnyArg(), "band-1", int64(13), ts0.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := testCtx(t)
	err := repo.InsertLocation(ctx, models.WristbandLocation{
		DeviceID: "band-1", NearestDeviceID: "room-1", RSSI: -70, PacketNumber: 12, Timestamp: ts0,
	})
	if err != nil {
		t.Fatalf("InsertLocation: %v", err)
	}
	if err := repo.InsertButtonPush(ctx, models.ButtonPush{DeviceID: "band-1", PacketNumber: 13, Timestamp: ts0}); err != nil {
		t.Fatalf("InsertButtonPush: %v", err)
	}
	expectationsMet(t, mock)
}
