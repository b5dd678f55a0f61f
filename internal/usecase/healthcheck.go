package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/agrisense/internal/analysis"
	"github.com/example/agrisense/internal/imageprocessor"
	"github.com/example/agrisense/internal/logging"
	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/repository"
	"github.com/example/agrisense/internal/retry"
)

const (
	processingMarker = "processing"
	resultTTL        = 5 * time.Minute
)

// ErrProcessing is returned while a health check has not finished yet.
var ErrProcessing = errors.New("health check still processing")

// HealthCheckRepository defines the persistence operations needed by the use case.
type HealthCheckRepository interface {
	Save(ctx context.Context, check *models.HealthCheck) error
	FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*models.HealthCheck, error)
	FindDuplicatesByHash(ctx context.Context, userID, hash, excludeRequestID string) ([]*models.HealthCheck, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// CropStore is the subset of the farm store touched by health checks.
type CropStore interface {
	GetCrop(ctx context.Context, id string) (*models.Crop, error)
	UpdateCropHealth(ctx context.Context, id string, status models.HealthStatus) error
	CreateAlert(ctx context.Context, alert *models.Alert) error
}

// ImageAnalyzer produces a diagnosis for a prepared image.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, requestID string, img imageprocessor.Image) (analysis.Outcome, error)
}

// HealthCheckResult is the outcome of a health check as returned to clients
// and cached.
type HealthCheckResult struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	CropID    string `json:"crop_id,omitempty"`
	Hash      string `json:"sha1_hash"`
	analysis.Outcome
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// DuplicateReport lists earlier checks of the same image by the same user.
type DuplicateReport struct {
	Request    *HealthCheckResult   `json:"request"`
	Duplicates []*HealthCheckResult `json:"duplicates"`
}

// HealthCheckUseCase encapsulates business logic for the plant health check flow.
type HealthCheckUseCase struct {
	repo        HealthCheckRepository
	crops       CropStore
	cache       Cache
	preparer    imageprocessor.Preparer
	analyzer    ImageAnalyzer
	notifier    Notifier
	logger      *zap.Logger
	now         func() time.Time
	retryPolicy retry.Policy
}

// NewHealthCheckUseCase constructs a new use case instance.
func NewHealthCheckUseCase(repo HealthCheckRepository, crops CropStore, cache Cache, preparer imageprocessor.Preparer, analyzer ImageAnalyzer, notifier Notifier, logger *zap.Logger) *HealthCheckUseCase {
	return &HealthCheckUseCase{
		repo:        repo,
		crops:       crops,
		cache:       cache,
		preparer:    preparer,
		analyzer:    analyzer,
		notifier:    notifierOrNop(notifier),
		logger:      logger.Named("healthcheck_usecase"),
		now:         time.Now,
		retryPolicy: retry.DefaultPolicy,
	}
}

// Analyze runs a health check on raw image bytes. cropID is optional; when
// set, the crop must exist and is updated from classifier verdicts.
func (uc *HealthCheckUseCase) Analyze(ctx context.Context, userID, cropID string, raw []byte) (*HealthCheckResult, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.analyze", requestID)

	var crop *models.Crop
	if cropID != "" {
		c, err := uc.crops.GetCrop(ctx, cropID)
		if err != nil {
			return nil, logging.NewOperationError("usecase.load_crop", requestID, err)
		}
		crop = c
	}

	img, err := uc.preparer.Prepare(raw)
	if err != nil {
		return nil, logging.NewOperationError("usecase.prepare_image", requestID, err)
	}

	cacheKey := healthCheckKey(requestID)
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.processing", func() error {
		return uc.cache.Set(ctx, cacheKey, processingMarker, time.Minute)
	}); err != nil {
		opLogger.Error("failed to set processing flag", zap.Error(err))
		return nil, err
	}

	start := uc.now()
	outcome, analyzeErr := uc.analyzer.Analyze(ctx, requestID, img)
	latency := uc.now().Sub(start)

	result := &HealthCheckResult{
		RequestID: requestID,
		UserID:    userID,
		CropID:    cropID,
		Hash:      img.SHA1,
		Outcome:   outcome,
		LatencyMs: latency.Milliseconds(),
		CreatedAt: start.UTC(),
	}

	if err := uc.repo.Save(ctx, toHealthCheck(result)); err != nil {
		wrapped := logging.NewOperationError("usecase.save_health_check", requestID, err)
		opLogger.Error("failed to persist health check", zap.Error(wrapped))
		return nil, wrapped
	}

	serialized, err := json.Marshal(result)
	if err != nil {
		opLogger.Error("failed to serialize health check result", zap.Error(err))
		return nil, err
	}
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), resultTTL)
	}); err != nil {
		opLogger.Error("failed to cache health check result", zap.Error(err))
		return nil, err
	}

	if analyzeErr != nil {
		return nil, analyzeErr
	}

	if crop != nil && outcome.Source == analysis.SourceClassifier {
		uc.applyVerdict(ctx, opLogger, crop, outcome.Diagnosis)
	}
	uc.notifier.Notify(EventHealthCheck, result)

	opLogger.Info("health check completed",
		zap.String("source", string(outcome.Source)),
		zap.String("health_status", string(outcome.Diagnosis.HealthStatus)),
		zap.Int64("latency_ms", result.LatencyMs))
	return result, nil
}

// applyVerdict records a classifier verdict on the crop and raises an alert
// for unhealthy plants. Failures are logged, the check itself already
// succeeded.
func (uc *HealthCheckUseCase) applyVerdict(ctx context.Context, opLogger *zap.Logger, crop *models.Crop, d analysis.Diagnosis) {
	if err := uc.crops.UpdateCropHealth(ctx, crop.ID, d.HealthStatus); err != nil {
		opLogger.Warn("failed to update crop health", zap.Error(err), zap.String("crop_id", crop.ID))
	}

	var alert *models.Alert
	switch d.HealthStatus {
	case models.HealthDiseased:
		alert = &models.Alert{
			Title:   "Potential Disease Detected",
			Message: fmt.Sprintf("AI analysis indicates %s in %s crop. Inspection recommended.", d.DiseaseName, crop.Name),
			Type:    models.AlertError,
		}
	case models.HealthAtRisk:
		alert = &models.Alert{
			Title:   "Crop At Risk",
			Message: fmt.Sprintf("AI analysis shows %s crop may be at risk (%s). Monitor closely.", crop.Name, d.DiseaseName),
			Type:    models.AlertWarning,
		}
	default:
		return
	}

	alert.ID = uuid.NewString()
	alert.Timestamp = uc.now().UTC()
	alert.RelatedEntityID = crop.ID
	alert.RelatedEntityType = models.EntityCrop
	if err := uc.crops.CreateAlert(ctx, alert); err != nil {
		opLogger.Warn("failed to create crop alert", zap.Error(err), zap.String("crop_id", crop.ID))
		return
	}
	uc.notifier.Notify(EventAlert, alert)
}

// GetResult retrieves a cached health check outcome or loads it from persistence.
func (uc *HealthCheckUseCase) GetResult(ctx context.Context, userID, requestID string) (*HealthCheckResult, error) {
	cacheKey := healthCheckKey(requestID)
	cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", cacheKey)
	switch {
	case err == nil && cached == processingMarker:
		return nil, ErrProcessing
	case err == nil:
		var payload HealthCheckResult
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to decode cached result", zap.Error(err))
		} else if payload.UserID == userID {
			return &payload, nil
		}
	case !errors.Is(err, redis.Nil):
		logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to read cache", zap.Error(err))
	}

	check, err := uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	return fromHealthCheck(check), nil
}

// GetDuplicateReport builds a duplicate detection report for a health check.
func (uc *HealthCheckUseCase) GetDuplicateReport(ctx context.Context, userID, requestID string) (*DuplicateReport, error) {
	check, err := uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	duplicates, err := uc.repo.FindDuplicatesByHash(ctx, userID, check.SHA1Hash, check.RequestID)
	if err != nil {
		return nil, err
	}

	report := &DuplicateReport{
		Request:    fromHealthCheck(check),
		Duplicates: make([]*HealthCheckResult, 0, len(duplicates)),
	}
	for _, d := range duplicates {
		report.Duplicates = append(report.Duplicates, fromHealthCheck(d))
	}
	return report, nil
}

func healthCheckKey(requestID string) string {
	return fmt.Sprintf("healthcheck:%s", requestID)
}

func toHealthCheck(r *HealthCheckResult) *models.HealthCheck {
	check := &models.HealthCheck{
		RequestID:       r.RequestID,
		UserID:          r.UserID,
		CropID:          r.CropID,
		SHA1Hash:        r.Hash,
		CropName:        r.Diagnosis.CropName,
		HealthStatus:    r.Diagnosis.HealthStatus,
		DiseaseName:     r.Diagnosis.DiseaseName,
		Recommendations: strings.Join(r.Diagnosis.Recommendations, "\n"),
		Source:          string(r.Source),
		LatencyMs:       r.LatencyMs,
		CreatedAt:       r.CreatedAt,
	}
	if r.Failure != nil {
		check.FailureKind = string(r.Failure.Kind)
		check.FailureMessage = r.Failure.Message
	}
	return check
}

func fromHealthCheck(c *models.HealthCheck) *HealthCheckResult {
	r := &HealthCheckResult{
		RequestID: c.RequestID,
		UserID:    c.UserID,
		CropID:    c.CropID,
		Hash:      c.SHA1Hash,
		Outcome: analysis.Outcome{
			Diagnosis: analysis.Diagnosis{
				CropName:     c.CropName,
				HealthStatus: c.HealthStatus,
				DiseaseName:  c.DiseaseName,
			},
			Source: analysis.Source(c.Source),
		},
		LatencyMs: c.LatencyMs,
		CreatedAt: c.CreatedAt,
	}
	if c.Recommendations != "" {
		r.Diagnosis.Recommendations = strings.Split(c.Recommendations, "\n")
	}
	if c.FailureKind != "" {
		r.Failure = &analysis.Failure{Kind: analysis.FailureKind(c.FailureKind), Message: c.FailureMessage}
	}
	return r
}

// withRedisRetry retries transient cache failures. A miss is returned as is.
func (uc *HealthCheckUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	calls, err := uc.retryPolicy.Do(ctx, nil, func(err error, attempt int) {
		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt))
	}, fn)
	switch {
	case err == nil:
		if calls > 1 {
			opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", calls))
		}
		return nil
	case !errors.Is(err, redis.Nil):
		opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", calls))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *HealthCheckUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
