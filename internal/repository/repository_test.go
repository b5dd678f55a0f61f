package repository

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/agrisense/internal/config"
	"github.com/example/agrisense/internal/fixtures"
	"github.com/example/agrisense/internal/logging"
	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/retry"
)

type transientTestError struct{}

func (transientTestError) Error() string   { return "transient" }
func (transientTestError) Timeout() bool   { return true }
func (transientTestError) Temporary() bool { return true }

func testRetrier(attempts int) retrier {
	return retrier{
		logger: zap.NewNop(),
		policy: retry.Policy{Attempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
	}
}

func TestExecuteWithRetryRetriesTransientErrors(t *testing.T) {
	repo := &HealthCheckRepository{retrier: testRetrier(3)}

	attempts := 0
	err := repo.executeWithRetry(context.Background(), "test.operation", "req-1", func() error {
		attempts++
		if attempts < 2 {
			return transientTestError{}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestExecuteWithRetryReturnsOperationError(t *testing.T) {
	repo := &FarmRepository{retrier: testRetrier(2)}

	attempts := 0
	err := repo.executeWithRetry(context.Background(), "test.operation", "req-2", func() error {
		attempts++
		return errors.New("boom")
	})

	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}

	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "test.operation" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
	if opErr.RequestID != "req-2" {
		t.Fatalf("unexpected request id: %s", opErr.RequestID)
	}
}

func TestExecuteWithRetryMapsNotFound(t *testing.T) {
	r := testRetrier(3)
	attempts := 0
	err := r.executeWithRetry(context.Background(), "test.find", "", func() error {
		attempts++
		return gorm.ErrRecordNotFound
	})
	if !errors.Is(err, ErrNotFound) || attempts != 1 {
		t.Fatalf("expected ErrNotFound after one attempt, got %v after %d", err, attempts)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := Open(config.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seededFarm(t *testing.T) *FarmRepository {
	t.Helper()
	repo := NewFarmRepository(openTestDB(t), zap.NewNop())
	seeded, err := repo.SeedIfEmpty(context.Background(), fixtures.Build(time.Now().UTC(), rand.New(rand.NewSource(3))))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !seeded {
		t.Fatal("expected empty store to be seeded")
	}
	return repo
}

func TestSeedIfEmptyRunsOnce(t *testing.T) {
	repo := seededFarm(t)
	ctx := context.Background()

	seeded, err := repo.SeedIfEmpty(ctx, fixtures.Build(time.Now(), rand.New(rand.NewSource(4))))
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if seeded {
		t.Fatal("seeding must not run on a populated store")
	}

	sensors, err := repo.ListSensors(ctx)
	if err != nil || len(sensors) != 6 {
		t.Fatalf("expected 6 sensors, got %d (%v)", len(sensors), err)
	}
	team, err := repo.ListTeam(ctx)
	if err != nil || len(team) != 6 {
		t.Fatalf("expected 6 team members, got %d (%v)", len(team), err)
	}
}

func TestListCropsFilters(t *testing.T) {
	repo := seededFarm(t)
	ctx := context.Background()

	crops, err := repo.ListCrops(ctx, CropFilter{Search: "zone a"})
	if err != nil {
		t.Fatalf("ListCrops: %v", err)
	}
	if len(crops) != 2 || crops[0].ID != "crop-1" || crops[1].ID != "crop-4" {
		t.Fatalf("unexpected crops for location search: %+v", crops)
	}

	crops, _ = repo.ListCrops(ctx, CropFilter{Search: "VEG", Status: models.HealthDiseased})
	if len(crops) != 1 || crops[0].Name != "Peppers" {
		t.Fatalf("unexpected crops for combined filter: %+v", crops)
	}

	crops, _ = repo.ListCrops(ctx, CropFilter{})
	if len(crops) != 4 {
		t.Fatalf("expected all crops, got %d", len(crops))
	}
}

func TestCropHealthUpdate(t *testing.T) {
	repo := seededFarm(t)
	ctx := context.Background()

	if err := repo.UpdateCropHealth(ctx, "crop-1", models.HealthDiseased); err != nil {
		t.Fatalf("UpdateCropHealth: %v", err)
	}
	crop, err := repo.GetCrop(ctx, "crop-1")
	if err != nil || crop.HealthStatus != models.HealthDiseased {
		t.Fatalf("unexpected crop %+v (%v)", crop, err)
	}

	if err := repo.UpdateCropHealth(ctx, "crop-99", models.HealthHealthy); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetCrop(ctx, "crop-99"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestZoneOperations(t *testing.T) {
	repo := seededFarm(t)
	ctx := context.Background()

	zone, err := repo.SetZoneAutomation(ctx, "zone-c", true)
	if err != nil || !zone.AutomationEnabled {
		t.Fatalf("unexpected zone %+v (%v)", zone, err)
	}

	zones, err := repo.SetAllZonesStatus(ctx, models.ZoneInactive, time.Now())
	if err != nil {
		t.Fatalf("SetAllZonesStatus: %v", err)
	}
	for _, z := range zones {
		if z.Status != models.ZoneInactive {
			t.Fatalf("zone %s still %s", z.ID, z.Status)
		}
	}
	if len(zones[0].CropIDs) != 2 {
		t.Fatalf("crop ids lost on update: %v", zones[0].CropIDs)
	}

	at := time.Date(2024, time.July, 1, 6, 0, 0, 0, time.UTC)
	if err := repo.ActivateZone(ctx, "zone-b", at); err != nil {
		t.Fatalf("ActivateZone: %v", err)
	}
	zones, _ = repo.ListZones(ctx)
	if zones[1].Status != models.ZoneActive || zones[1].LastActivated == nil || !zones[1].LastActivated.Equal(at) {
		t.Fatalf("unexpected zone after activation %+v", zones[1])
	}
}

func TestAlertLifecycle(t *testing.T) {
	repo := seededFarm(t)
	ctx := context.Background()

	alert := &models.Alert{ID: "alert-new", Title: "New", Type: models.AlertInfo, Timestamp: time.Now().UTC().Add(time.Minute)}
	if err := repo.CreateAlert(ctx, alert); err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}

	alerts, _ := repo.ListAlerts(ctx)
	if len(alerts) != 5 || alerts[0].ID != "alert-new" {
		t.Fatalf("expected newest alert first, got %+v", alerts)
	}

	if err := repo.MarkAlertRead(ctx, "alert-new"); err != nil {
		t.Fatalf("MarkAlertRead: %v", err)
	}
	if err := repo.DismissAlert(ctx, "alert-1"); err != nil {
		t.Fatalf("DismissAlert: %v", err)
	}
	if err := repo.DismissAlert(ctx, "alert-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("dismissing twice should report not found, got %v", err)
	}

	alerts, _ = repo.ListAlerts(ctx)
	if len(alerts) != 4 || !alerts[0].IsRead {
		t.Fatalf("unexpected alerts after updates %+v", alerts)
	}
}

func TestSaveReadingAppendsHistory(t *testing.T) {
	repo := seededFarm(t)
	ctx := context.Background()

	now := time.Now().UTC().Add(time.Hour)
	reading := &models.SensorData{
		ID: "soil-1", Type: models.SensorSoil, Value: 21, Unit: "%",
		Timestamp: now, Location: "Zone A", Status: models.StatusCritical,
	}
	if err := repo.SaveReading(ctx, reading); err != nil {
		t.Fatalf("SaveReading: %v", err)
	}

	points, err := repo.History(ctx, models.SensorSoil, now.Add(-time.Minute))
	if err != nil || len(points) != 1 || points[0].Value != 21 {
		t.Fatalf("unexpected history %+v (%v)", points, err)
	}

	week, _ := repo.History(ctx, models.SensorSoil, time.Now().UTC().AddDate(0, 0, -7).Add(-time.Minute))
	if len(week) != 9 {
		t.Fatalf("expected 8 seeded days plus the new reading, got %d", len(week))
	}

	sensors, _ := repo.ListSensors(ctx)
	if len(sensors) != 6 {
		t.Fatalf("upsert must not add a sensor, got %d", len(sensors))
	}
}

func TestHealthCheckRepository(t *testing.T) {
	repo := NewHealthCheckRepository(openTestDB(t), zap.NewNop())
	ctx := context.Background()
	base := time.Now().UTC()

	checks := []*models.HealthCheck{
		{RequestID: "r1", UserID: "u1", SHA1Hash: "h", Source: "classifier", LatencyMs: 100, CreatedAt: base},
		{RequestID: "r2", UserID: "u1", SHA1Hash: "h", Source: "fallback", FailureKind: "transient", LatencyMs: 300, CreatedAt: base.Add(time.Second)},
		{RequestID: "r3", UserID: "u2", SHA1Hash: "h", Source: "classifier", LatencyMs: 200, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, c := range checks {
		if err := repo.Save(ctx, c); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := repo.FindByRequestIDAndUser(ctx, "r2", "u1")
	if err != nil || got.Source != "fallback" {
		t.Fatalf("unexpected check %+v (%v)", got, err)
	}
	if _, err := repo.FindByRequestIDAndUser(ctx, "r2", "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("checks must be scoped to their owner, got %v", err)
	}

	dups, err := repo.FindDuplicatesByHash(ctx, "u1", "h", "r2")
	if err != nil || len(dups) != 1 || dups[0].RequestID != "r1" {
		t.Fatalf("unexpected duplicates %+v (%v)", dups, err)
	}

	agg, err := repo.AggregateMetrics(ctx)
	if err != nil {
		t.Fatalf("AggregateMetrics: %v", err)
	}
	if agg.TotalCount != 3 || agg.ClassifierCount != 2 || agg.FallbackCount != 1 || agg.FailedCount != 1 || agg.AverageLatency != 200 {
		t.Fatalf("unexpected aggregation %+v", agg)
	}
}
