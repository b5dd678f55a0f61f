package repository

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/agrisense/internal/fixtures"
	"github.com/example/agrisense/internal/models"
)

// CropFilter narrows a crop listing. Empty fields match everything.
type CropFilter struct {
	Search string
	Status models.HealthStatus
}

// FarmRepository stores the dashboard records: sensors, crops, irrigation
// zones, team, alerts and operator accounts.
type FarmRepository struct {
	retrier
	db *gorm.DB
}

// NewFarmRepository creates a new repository instance.
func NewFarmRepository(db *gorm.DB, logger *zap.Logger) *FarmRepository {
	return &FarmRepository{
		retrier: newRetrier(logger.Named("farm_repository")),
		db:      db,
	}
}

// SeedIfEmpty writes the fixture set when the store holds no sensors, crops
// or zones. It reports whether seeding happened.
func (r *FarmRepository) SeedIfEmpty(ctx context.Context, set fixtures.Set) (bool, error) {
	seeded := false
	err := r.executeWithRetry(ctx, "repository.seed", "", func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, model := range []any{&models.SensorData{}, &models.Crop{}, &models.IrrigationZone{}} {
				var count int64
				if err := tx.Model(model).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					return nil
				}
			}

			batches := []struct {
				n     int
				value any
			}{
				{len(set.Sensors), &set.Sensors},
				{len(set.History), &set.History},
				{len(set.Crops), &set.Crops},
				{len(set.Zones), &set.Zones},
				{len(set.Team), &set.Team},
				{len(set.Alerts), &set.Alerts},
			}
			for _, batch := range batches {
				if batch.n == 0 {
					continue
				}
				if err := tx.CreateInBatches(batch.value, 100).Error; err != nil {
					return err
				}
			}
			seeded = true
			return nil
		})
	})
	return seeded, err
}

// ListSensors returns the latest snapshot of every sensor.
func (r *FarmRepository) ListSensors(ctx context.Context) ([]models.SensorData, error) {
	var sensors []models.SensorData
	err := r.executeWithRetry(ctx, "repository.list_sensors", "", func() error {
		return r.db.WithContext(ctx).Order("id ASC").Find(&sensors).Error
	})
	return sensors, err
}

// GetSensor returns the latest snapshot of one sensor or ErrNotFound.
func (r *FarmRepository) GetSensor(ctx context.Context, id string) (*models.SensorData, error) {
	var sensor models.SensorData
	err := r.executeWithRetry(ctx, "repository.get_sensor", id, func() error {
		return r.db.WithContext(ctx).First(&sensor, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &sensor, nil
}

// SaveReading stores a sensor snapshot and appends it to the type's history.
func (r *FarmRepository) SaveReading(ctx context.Context, reading *models.SensorData) error {
	return r.executeWithRetry(ctx, "repository.save_reading", reading.ID, func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(reading).Error; err != nil {
				return err
			}
			return tx.Create(&models.HistoricalData{
				SensorType: reading.Type,
				Timestamp:  reading.Timestamp,
				Value:      reading.Value,
			}).Error
		})
	})
}

// History returns the points of one sensor type recorded since the given
// time, oldest first. An empty type returns every type.
func (r *FarmRepository) History(ctx context.Context, sensorType models.SensorType, since time.Time) ([]models.HistoricalData, error) {
	var points []models.HistoricalData
	err := r.executeWithRetry(ctx, "repository.history", "", func() error {
		q := r.db.WithContext(ctx).Where("timestamp >= ?", since)
		if sensorType != "" {
			q = q.Where("sensor_type = ?", sensorType)
		}
		return q.Order("timestamp ASC").Order("sensor_type ASC").Find(&points).Error
	})
	return points, err
}

// ListCrops returns the crops matching filter, ordered by id.
func (r *FarmRepository) ListCrops(ctx context.Context, filter CropFilter) ([]models.Crop, error) {
	var crops []models.Crop
	err := r.executeWithRetry(ctx, "repository.list_crops", "", func() error {
		q := r.db.WithContext(ctx)
		if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
			like := "%" + s + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(type) LIKE ? OR LOWER(location) LIKE ?", like, like, like)
		}
		if filter.Status != "" {
			q = q.Where("health_status = ?", filter.Status)
		}
		return q.Order("id ASC").Find(&crops).Error
	})
	return crops, err
}

// GetCrop returns one crop or ErrNotFound.
func (r *FarmRepository) GetCrop(ctx context.Context, id string) (*models.Crop, error) {
	var crop models.Crop
	err := r.executeWithRetry(ctx, "repository.get_crop", id, func() error {
		return r.db.WithContext(ctx).First(&crop, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &crop, nil
}

// UpdateCropHealth sets the health status of a crop.
func (r *FarmRepository) UpdateCropHealth(ctx context.Context, id string, status models.HealthStatus) error {
	return r.executeWithRetry(ctx, "repository.update_crop_health", id, func() error {
		res := r.db.WithContext(ctx).Model(&models.Crop{}).Where("id = ?", id).Update("health_status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListZones returns every irrigation zone ordered by id.
func (r *FarmRepository) ListZones(ctx context.Context) ([]models.IrrigationZone, error) {
	var zones []models.IrrigationZone
	err := r.executeWithRetry(ctx, "repository.list_zones", "", func() error {
		return r.db.WithContext(ctx).Order("id ASC").Find(&zones).Error
	})
	return zones, err
}

// SetZoneAutomation toggles automated irrigation for a zone and returns the
// updated zone.
func (r *FarmRepository) SetZoneAutomation(ctx context.Context, id string, enabled bool) (*models.IrrigationZone, error) {
	var zone models.IrrigationZone
	err := r.executeWithRetry(ctx, "repository.set_zone_automation", id, func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&zone, "id = ?", id).Error; err != nil {
				return err
			}
			zone.AutomationEnabled = enabled
			return tx.Model(&zone).Update("automation_enabled", enabled).Error
		})
	})
	if err != nil {
		return nil, err
	}
	return &zone, nil
}

// ActivateZone marks a zone active as of at.
func (r *FarmRepository) ActivateZone(ctx context.Context, id string, at time.Time) error {
	return r.executeWithRetry(ctx, "repository.activate_zone", id, func() error {
		res := r.db.WithContext(ctx).Model(&models.IrrigationZone{}).Where("id = ?", id).
			Updates(map[string]any{"status": models.ZoneActive, "last_activated": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SetAllZonesStatus moves every zone to status. Activation also stamps the
// last activation time.
func (r *FarmRepository) SetAllZonesStatus(ctx context.Context, status models.ZoneStatus, at time.Time) ([]models.IrrigationZone, error) {
	err := r.executeWithRetry(ctx, "repository.set_all_zones", "", func() error {
		updates := map[string]any{"status": status}
		if status == models.ZoneActive {
			updates["last_activated"] = at
		}
		return r.db.WithContext(ctx).Model(&models.IrrigationZone{}).Where("1 = 1").Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.ListZones(ctx)
}

// ListTeam returns the team roster ordered by id.
func (r *FarmRepository) ListTeam(ctx context.Context) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.executeWithRetry(ctx, "repository.list_team", "", func() error {
		return r.db.WithContext(ctx).Order("id ASC").Find(&members).Error
	})
	return members, err
}

// ListAlerts returns the alerts that were not dismissed, newest first.
func (r *FarmRepository) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.executeWithRetry(ctx, "repository.list_alerts", "", func() error {
		return r.db.WithContext(ctx).Where("dismissed = ?", false).Order("timestamp DESC").Find(&alerts).Error
	})
	return alerts, err
}

// CreateAlert stores a new alert.
func (r *FarmRepository) CreateAlert(ctx context.Context, alert *models.Alert) error {
	return r.executeWithRetry(ctx, "repository.create_alert", alert.ID, func() error {
		return r.db.WithContext(ctx).Create(alert).Error
	})
}

// MarkAlertRead flags an alert as read.
func (r *FarmRepository) MarkAlertRead(ctx context.Context, id string) error {
	return r.updateAlert(ctx, "repository.mark_alert_read", id, "is_read")
}

// DismissAlert hides an alert from listings.
func (r *FarmRepository) DismissAlert(ctx context.Context, id string) error {
	return r.updateAlert(ctx, "repository.dismiss_alert", id, "dismissed")
}

func (r *FarmRepository) updateAlert(ctx context.Context, operation, id, column string) error {
	return r.executeWithRetry(ctx, operation, id, func() error {
		res := r.db.WithContext(ctx).Model(&models.Alert{}).
			Where("id = ? AND dismissed = ?", id, false).
			Update(column, true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// FindOperator looks up an operator account by username.
func (r *FarmRepository) FindOperator(ctx context.Context, username string) (*models.Operator, error) {
	var op models.Operator
	err := r.executeWithRetry(ctx, "repository.find_operator", "", func() error {
		return r.db.WithContext(ctx).First(&op, "username = ?", username).Error
	})
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// EnsureOperator creates the operator unless the username is already taken.
func (r *FarmRepository) EnsureOperator(ctx context.Context, op *models.Operator) error {
	return r.executeWithRetry(ctx, "repository.ensure_operator", "", func() error {
		return r.db.WithContext(ctx).Where("username = ?", op.Username).FirstOrCreate(op).Error
	})
}
