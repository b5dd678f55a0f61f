package repository

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/agrisense/internal/models"
)

// MetricsAggregation holds the raw health check counters.
type MetricsAggregation struct {
	TotalCount      int64
	ClassifierCount int64
	FallbackCount   int64
	FailedCount     int64
	AverageLatency  float64
}

// HealthCheckRepository persists health check records.
type HealthCheckRepository struct {
	retrier
	db *gorm.DB
}

// NewHealthCheckRepository creates a new repository instance.
func NewHealthCheckRepository(db *gorm.DB, logger *zap.Logger) *HealthCheckRepository {
	return &HealthCheckRepository{
		retrier: newRetrier(logger.Named("healthcheck_repository")),
		db:      db,
	}
}

// Save persists a health check record.
func (r *HealthCheckRepository) Save(ctx context.Context, check *models.HealthCheck) error {
	return r.executeWithRetry(ctx, "repository.save_health_check", check.RequestID, func() error {
		return r.db.WithContext(ctx).Create(check).Error
	})
}

// FindByRequestIDAndUser retrieves a health check matching the request and owner.
func (r *HealthCheckRepository) FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*models.HealthCheck, error) {
	var check models.HealthCheck
	err := r.executeWithRetry(ctx, "repository.find_health_check", requestID, func() error {
		return r.db.WithContext(ctx).First(&check, "request_id = ? AND user_id = ?", requestID, userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &check, nil
}

// FindDuplicatesByHash lists the user's other checks of the same image,
// oldest first.
func (r *HealthCheckRepository) FindDuplicatesByHash(ctx context.Context, userID, hash, excludeRequestID string) ([]*models.HealthCheck, error) {
	var checks []*models.HealthCheck
	err := r.executeWithRetry(ctx, "repository.find_duplicates", excludeRequestID, func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ? AND sha1_hash = ? AND request_id <> ?", userID, hash, excludeRequestID).
			Order("created_at ASC").
			Find(&checks).Error
	})
	if err != nil {
		return nil, err
	}
	return checks, nil
}

// AggregateMetrics computes counters over every stored health check.
func (r *HealthCheckRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var agg MetricsAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).
			Model(&models.HealthCheck{}).
			Select(`COUNT(*) AS total_count,
				COALESCE(SUM(CASE WHEN source = 'classifier' THEN 1 ELSE 0 END), 0) AS classifier_count,
				COALESCE(SUM(CASE WHEN source = 'fallback' THEN 1 ELSE 0 END), 0) AS fallback_count,
				COALESCE(SUM(CASE WHEN failure_kind <> '' THEN 1 ELSE 0 END), 0) AS failed_count,
				COALESCE(AVG(latency_ms), 0) AS average_latency`).
			Scan(&agg).Error
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}
