package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/agrisense/internal/agronomy"
	"github.com/example/agrisense/internal/logging"
	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/repository"
)

// Reading is a raw sensor measurement received over HTTP or MQTT.
type Reading struct {
	SensorID  string            `json:"sensor_id"`
	Type      models.SensorType `json:"type"`
	Value     float64           `json:"value"`
	Unit      string            `json:"unit"`
	Location  string            `json:"location"`
	Timestamp time.Time         `json:"timestamp"`
}

// ReadingsUseCase ingests sensor readings and reacts to them.
type ReadingsUseCase struct {
	store    FarmStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewReadingsUseCase constructs a new use case instance.
func NewReadingsUseCase(store FarmStore, notifier Notifier, logger *zap.Logger) *ReadingsUseCase {
	return &ReadingsUseCase{
		store:    store,
		notifier: notifierOrNop(notifier),
		logger:   logger.Named("readings_usecase"),
		now:      time.Now,
	}
}

// Record grades, stores and broadcasts a reading. A reading whose status
// differs from the sensor's previous one raises an alert when it is not
// normal, and low soil moisture starts automated irrigation in the matching
// zone.
func (uc *ReadingsUseCase) Record(ctx context.Context, in Reading) (*models.SensorData, error) {
	in.SensorID = strings.TrimSpace(in.SensorID)
	if in.SensorID == "" {
		return nil, fmt.Errorf("%w: sensor_id is required", ErrInvalidInput)
	}

	previous, err := uc.store.GetSensor(ctx, in.SensorID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if in.Type == "" && previous != nil {
		in.Type = previous.Type
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown sensor type %q", ErrInvalidInput, in.Type)
	}
	if previous != nil && previous.Type != in.Type {
		return nil, fmt.Errorf("%w: sensor %s reports %s, not %s", ErrInvalidInput, in.SensorID, previous.Type, in.Type)
	}
	if in.Location == "" && previous != nil {
		in.Location = previous.Location
	}
	if in.Unit == "" {
		in.Unit = in.Type.Unit()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = uc.now()
	}

	reading := &models.SensorData{
		ID:        in.SensorID,
		Type:      in.Type,
		Value:     in.Value,
		Unit:      in.Unit,
		Timestamp: in.Timestamp.UTC(),
		Location:  in.Location,
		Status:    agronomy.ClassifyReading(in.Type, in.Value),
	}
	if err := uc.store.SaveReading(ctx, reading); err != nil {
		return nil, err
	}
	uc.notifier.Notify(EventReading, reading)

	opLogger := logging.WithOperation(uc.logger, "usecase.record_reading", reading.ID)
	if reading.Status != models.StatusNormal && (previous == nil || previous.Status != reading.Status) {
		uc.raiseSensorAlert(ctx, opLogger, reading)
	}
	if reading.Type == models.SensorSoil {
		uc.automateIrrigation(ctx, opLogger, reading)
	}
	return reading, nil
}

func (uc *ReadingsUseCase) raiseSensorAlert(ctx context.Context, opLogger *zap.Logger, reading *models.SensorData) {
	title, message := agronomy.DescribeReading(*reading)
	alertType := models.AlertWarning
	if reading.Status == models.StatusCritical {
		alertType = models.AlertError
	}
	uc.createAlert(ctx, opLogger, &models.Alert{
		Title:             title,
		Message:           message,
		Type:              alertType,
		RelatedEntityID:   reading.ID,
		RelatedEntityType: models.EntitySensor,
	})
}

func (uc *ReadingsUseCase) automateIrrigation(ctx context.Context, opLogger *zap.Logger, reading *models.SensorData) {
	zones, err := uc.store.ListZones(ctx)
	if err != nil {
		opLogger.Warn("failed to load zones for automation", zap.Error(err))
		return
	}

	activated := false
	for _, zone := range zones {
		if !agronomy.NeedsIrrigation(zone, *reading) {
			continue
		}
		if err := uc.store.ActivateZone(ctx, zone.ID, uc.now().UTC()); err != nil {
			opLogger.Warn("failed to activate zone", zap.Error(err), zap.String("zone_id", zone.ID))
			continue
		}
		activated = true
		opLogger.Info("automated irrigation started", zap.String("zone_id", zone.ID), zap.Float64("moisture", reading.Value))
		uc.createAlert(ctx, opLogger, &models.Alert{
			Title: "Low Soil Moisture",
			Message: fmt.Sprintf("%s soil moisture below critical threshold (%g%%). Automated irrigation initiated.",
				zone.Name, zone.MoistureThreshold),
			Type:              models.AlertWarning,
			RelatedEntityID:   zone.ID,
			RelatedEntityType: models.EntityIrrigation,
		})
	}

	if activated {
		if zones, err := uc.store.ListZones(ctx); err == nil {
			uc.notifier.Notify(EventZones, zones)
		}
	}
}

func (uc *ReadingsUseCase) createAlert(ctx context.Context, opLogger *zap.Logger, alert *models.Alert) {
	alert.ID = uuid.NewString()
	alert.Timestamp = uc.now().UTC()
	if err := uc.store.CreateAlert(ctx, alert); err != nil {
		opLogger.Warn("failed to create alert", zap.Error(err), zap.String("title", alert.Title))
		return
	}
	uc.notifier.Notify(EventAlert, alert)
}
