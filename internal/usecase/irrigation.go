package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/agrisense/internal/agronomy"
	"github.com/example/agrisense/internal/models"
)

// IrrigationUseCase manages irrigation zones and water estimates.
type IrrigationUseCase struct {
	store    FarmStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewIrrigationUseCase constructs a new use case instance.
func NewIrrigationUseCase(store FarmStore, notifier Notifier, logger *zap.Logger) *IrrigationUseCase {
	return &IrrigationUseCase{
		store:    store,
		notifier: notifierOrNop(notifier),
		logger:   logger.Named("irrigation_usecase"),
		now:      time.Now,
	}
}

// ListZones returns every irrigation zone.
func (uc *IrrigationUseCase) ListZones(ctx context.Context) ([]models.IrrigationZone, error) {
	return uc.store.ListZones(ctx)
}

// SetAutomation toggles automated irrigation for one zone.
func (uc *IrrigationUseCase) SetAutomation(ctx context.Context, id string, enabled bool) (*models.IrrigationZone, error) {
	zone, err := uc.store.SetZoneAutomation(ctx, id, enabled)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("zone automation changed", zap.String("zone_id", id), zap.Bool("enabled", enabled))
	uc.broadcastZones(ctx)
	return zone, nil
}

// ActivateAll starts every zone.
func (uc *IrrigationUseCase) ActivateAll(ctx context.Context) ([]models.IrrigationZone, error) {
	return uc.setAll(ctx, models.ZoneActive)
}

// DeactivateAll stops every zone.
func (uc *IrrigationUseCase) DeactivateAll(ctx context.Context) ([]models.IrrigationZone, error) {
	return uc.setAll(ctx, models.ZoneInactive)
}

func (uc *IrrigationUseCase) setAll(ctx context.Context, status models.ZoneStatus) ([]models.IrrigationZone, error) {
	zones, err := uc.store.SetAllZonesStatus(ctx, status, uc.now().UTC())
	if err != nil {
		return nil, err
	}
	uc.logger.Info("all zones updated", zap.String("status", string(status)), zap.Int("zones", len(zones)))
	uc.notifier.Notify(EventZones, zones)
	return zones, nil
}

// Usage summarizes current and scheduled water usage.
func (uc *IrrigationUseCase) Usage(ctx context.Context) (agronomy.ZoneUsage, error) {
	zones, err := uc.store.ListZones(ctx)
	if err != nil {
		return agronomy.ZoneUsage{}, err
	}
	return agronomy.SummarizeZones(zones), nil
}

// Estimate runs the water-usage estimator. Moisture and humidity must be
// percentages.
func (uc *IrrigationUseCase) Estimate(in agronomy.WaterInput) (agronomy.WaterEstimate, error) {
	if in.SoilMoisture < 0 || in.SoilMoisture > 100 {
		return agronomy.WaterEstimate{}, fmt.Errorf("%w: soil_moisture must be between 0 and 100", ErrInvalidInput)
	}
	if in.Humidity < 0 || in.Humidity > 100 {
		return agronomy.WaterEstimate{}, fmt.Errorf("%w: humidity must be between 0 and 100", ErrInvalidInput)
	}
	return agronomy.EstimateWater(in), nil
}

func (uc *IrrigationUseCase) broadcastZones(ctx context.Context) {
	zones, err := uc.store.ListZones(ctx)
	if err != nil {
		uc.logger.Warn("failed to load zones for broadcast", zap.Error(err))
		return
	}
	uc.notifier.Notify(EventZones, zones)
}
