package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/repository"
)

// ErrInvalidInput marks request values the use cases refuse.
var ErrInvalidInput = errors.New("invalid input")

// HistoryRanges maps the accepted range names to their length in days.
var HistoryRanges = map[string]int{"1d": 1, "7d": 7, "30d": 30}

// DefaultHistoryRange is used when no range is requested.
const DefaultHistoryRange = "7d"

// FarmStore defines the persistence operations behind the dashboard.
type FarmStore interface {
	ListSensors(ctx context.Context) ([]models.SensorData, error)
	GetSensor(ctx context.Context, id string) (*models.SensorData, error)
	SaveReading(ctx context.Context, reading *models.SensorData) error
	History(ctx context.Context, sensorType models.SensorType, since time.Time) ([]models.HistoricalData, error)
	ListCrops(ctx context.Context, filter repository.CropFilter) ([]models.Crop, error)
	GetCrop(ctx context.Context, id string) (*models.Crop, error)
	UpdateCropHealth(ctx context.Context, id string, status models.HealthStatus) error
	ListZones(ctx context.Context) ([]models.IrrigationZone, error)
	SetZoneAutomation(ctx context.Context, id string, enabled bool) (*models.IrrigationZone, error)
	ActivateZone(ctx context.Context, id string, at time.Time) error
	SetAllZonesStatus(ctx context.Context, status models.ZoneStatus, at time.Time) ([]models.IrrigationZone, error)
	ListTeam(ctx context.Context) ([]models.TeamMember, error)
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	CreateAlert(ctx context.Context, alert *models.Alert) error
	MarkAlertRead(ctx context.Context, id string) error
	DismissAlert(ctx context.Context, id string) error
}

// DashboardUseCase serves the read side of the dashboard and alert handling.
type DashboardUseCase struct {
	store  FarmStore
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardUseCase constructs a new use case instance.
func NewDashboardUseCase(store FarmStore, logger *zap.Logger) *DashboardUseCase {
	return &DashboardUseCase{store: store, logger: logger.Named("dashboard_usecase"), now: time.Now}
}

// ListSensors returns the latest reading of every sensor.
func (uc *DashboardUseCase) ListSensors(ctx context.Context) ([]models.SensorData, error) {
	return uc.store.ListSensors(ctx)
}

// SensorSummary aggregates the current readings per sensor type, in display
// order. Types without sensors are omitted.
func (uc *DashboardUseCase) SensorSummary(ctx context.Context) ([]models.SensorSummary, error) {
	sensors, err := uc.store.ListSensors(ctx)
	if err != nil {
		return nil, err
	}

	byType := make(map[models.SensorType]*models.SensorSummary)
	for _, s := range sensors {
		sum, ok := byType[s.Type]
		if !ok {
			sum = &models.SensorSummary{Type: s.Type, Unit: s.Type.Unit(), Min: s.Value, Max: s.Value}
			byType[s.Type] = sum
		}
		sum.Count++
		sum.Average += s.Value
		sum.Min = math.Min(sum.Min, s.Value)
		sum.Max = math.Max(sum.Max, s.Value)
	}

	summaries := make([]models.SensorSummary, 0, len(byType))
	for _, t := range models.SensorTypes {
		sum, ok := byType[t]
		if !ok {
			continue
		}
		sum.Average = math.Round(sum.Average/float64(sum.Count)*10) / 10
		summaries = append(summaries, *sum)
	}
	return summaries, nil
}

// ParseHistoryRange returns the start of the requested range.
func (uc *DashboardUseCase) ParseHistoryRange(name string) (time.Time, error) {
	if name == "" {
		name = DefaultHistoryRange
	}
	days, ok := HistoryRanges[name]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: range must be one of 1d, 7d, 30d", ErrInvalidInput)
	}
	return uc.now().UTC().AddDate(0, 0, -days), nil
}

// History returns the series of one sensor type over the named range.
func (uc *DashboardUseCase) History(ctx context.Context, sensorType models.SensorType, rangeName string) ([]models.HistoricalData, error) {
	if !sensorType.Valid() {
		return nil, fmt.Errorf("%w: unknown sensor type %q", ErrInvalidInput, sensorType)
	}
	since, err := uc.ParseHistoryRange(rangeName)
	if err != nil {
		return nil, err
	}
	return uc.store.History(ctx, sensorType, since)
}

// ExportHistory returns every sensor type's series over the named range.
func (uc *DashboardUseCase) ExportHistory(ctx context.Context, rangeName string) ([]models.HistoricalData, error) {
	since, err := uc.ParseHistoryRange(rangeName)
	if err != nil {
		return nil, err
	}
	return uc.store.History(ctx, "", since)
}

// ListCrops filters crops by a free-text search and a status, where "all"
// or an empty status matches every crop.
func (uc *DashboardUseCase) ListCrops(ctx context.Context, search, status string) ([]models.Crop, error) {
	filter := repository.CropFilter{Search: search}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && status != "all" {
		hs := models.HealthStatus(status)
		if !hs.Valid() {
			return nil, fmt.Errorf("%w: unknown health status %q", ErrInvalidInput, status)
		}
		filter.Status = hs
	}
	return uc.store.ListCrops(ctx, filter)
}

// GetCrop returns one crop.
func (uc *DashboardUseCase) GetCrop(ctx context.Context, id string) (*models.Crop, error) {
	return uc.store.GetCrop(ctx, id)
}

// ListTeam returns the team roster.
func (uc *DashboardUseCase) ListTeam(ctx context.Context) ([]models.TeamMember, error) {
	return uc.store.ListTeam(ctx)
}

// ListAlerts returns the active alerts, newest first.
func (uc *DashboardUseCase) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	return uc.store.ListAlerts(ctx)
}

// MarkAlertRead flags an alert as read.
func (uc *DashboardUseCase) MarkAlertRead(ctx context.Context, id string) error {
	return uc.store.MarkAlertRead(ctx, id)
}

// DismissAlert hides an alert.
func (uc *DashboardUseCase) DismissAlert(ctx context.Context, id string) error {
	return uc.store.DismissAlert(ctx, id)
}
