// Package handlers exposes the agrisense HTTP API on a gin router.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/agrisense/internal/agronomy"
	"github.com/example/agrisense/internal/auth"
	"github.com/example/agrisense/internal/capture"
	"github.com/example/agrisense/internal/config"
	"github.com/example/agrisense/internal/imageprocessor"
	"github.com/example/agrisense/internal/logging"
	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/repository"
	"github.com/example/agrisense/internal/usecase"
	"github.com/example/agrisense/internal/vision"
)

// MaxUploadSize is the default limit for uploaded images.
const MaxUploadSize = 16 << 20

// HealthCheckService runs and reports image health checks.
type HealthCheckService interface {
	Analyze(ctx context.Context, userID, cropID string, raw []byte) (*usecase.HealthCheckResult, error)
	GetResult(ctx context.Context, userID, requestID string) (*usecase.HealthCheckResult, error)
	GetDuplicateReport(ctx context.Context, userID, requestID string) (*usecase.DuplicateReport, error)
	GetMetricsSummary(ctx context.Context) (*usecase.MetricsSummary, error)
}

// DashboardService serves sensors, crops, the team roster and alerts.
type DashboardService interface {
	ListSensors(ctx context.Context) ([]models.SensorData, error)
	SensorSummary(ctx context.Context) ([]models.SensorSummary, error)
	History(ctx context.Context, sensorType models.SensorType, rangeName string) ([]models.HistoricalData, error)
	ExportHistory(ctx context.Context, rangeName string) ([]models.HistoricalData, error)
	ListCrops(ctx context.Context, search, status string) ([]models.Crop, error)
	GetCrop(ctx context.Context, id string) (*models.Crop, error)
	ListTeam(ctx context.Context) ([]models.TeamMember, error)
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	MarkAlertRead(ctx context.Context, id string) error
	DismissAlert(ctx context.Context, id string) error
}

// IrrigationService controls irrigation zones.
type IrrigationService interface {
	ListZones(ctx context.Context) ([]models.IrrigationZone, error)
	SetAutomation(ctx context.Context, id string, enabled bool) (*models.IrrigationZone, error)
	ActivateAll(ctx context.Context) ([]models.IrrigationZone, error)
	DeactivateAll(ctx context.Context) ([]models.IrrigationZone, error)
	Usage(ctx context.Context) (agronomy.ZoneUsage, error)
	Estimate(in agronomy.WaterInput) (agronomy.WaterEstimate, error)
}

// ReadingRecorder ingests sensor readings.
type ReadingRecorder interface {
	Record(ctx context.Context, in usecase.Reading) (*models.SensorData, error)
}

// ImageSource fetches images that are not uploaded directly.
type ImageSource interface {
	FromDataURL(dataURL string) ([]byte, error)
	FromURL(ctx context.Context, rawURL string) ([]byte, error)
	FromCamera(ctx context.Context, cam capture.Camera) ([]byte, error)
}

// OperatorStore looks up API operators.
type OperatorStore interface {
	FindOperator(ctx context.Context, username string) (*models.Operator, error)
}

// LiveFeed serves the websocket event stream.
type LiveFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

// Dependencies groups the services behind the routes.
type Dependencies struct {
	HealthChecks HealthCheckService
	Dashboard    DashboardService
	Irrigation   IrrigationService
	Readings     ReadingRecorder
	Images       ImageSource
	Operators    OperatorStore
	Live         LiveFeed
}

// Server holds the route handlers.
type Server struct {
	deps          Dependencies
	auth          config.AuthConfig
	maxUpload     int64
	defaultCamera capture.Camera
	logger        *zap.Logger
	now           func() time.Time
}

// NewServer builds a Server from the loaded configuration.
func NewServer(cfg config.Config, deps Dependencies, logger *zap.Logger) *Server {
	maxUpload := cfg.Analysis.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = MaxUploadSize
	}
	return &Server{
		deps:          deps,
		auth:          cfg.Auth,
		maxUpload:     maxUpload,
		defaultCamera: defaultCamera(cfg.Camera),
		logger:        logger.Named("http"),
		now:           time.Now,
	}
}

// RegisterRoutes wires the HTTP handlers to the Gin router. Routes that
// change farm state or run health checks require authMiddleware.
func RegisterRoutes(router *gin.Engine, s *Server, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/auth/login", s.login)

	sensors := router.Group("/sensors")
	sensors.GET("", s.listSensors)
	sensors.GET("/summary", s.sensorSummary)
	sensors.GET("/history/:type", s.sensorHistory)
	sensors.POST("/readings", authMiddleware, s.recordReading)
	sensors.GET("/export", authMiddleware, s.exportHistory)

	crops := router.Group("/crops")
	crops.GET("", s.listCrops)
	crops.GET("/:id", s.getCrop)
	crops.POST("/:id/health-check", authMiddleware, s.cropHealthCheck)

	checks := router.Group("/health-checks", authMiddleware)
	checks.POST("", s.healthCheck)
	checks.GET("/metrics", s.healthCheckMetrics)
	checks.GET("/:id", s.healthCheckResult)
	checks.GET("/:id/duplicates", s.healthCheckDuplicates)

	irrigation := router.Group("/irrigation")
	irrigation.GET("/zones", s.listZones)
	irrigation.PUT("/zones/:id/automation", authMiddleware, s.setAutomation)
	irrigation.POST("/zones/activate-all", authMiddleware, s.activateAll)
	irrigation.POST("/zones/deactivate-all", authMiddleware, s.deactivateAll)
	irrigation.GET("/usage", s.irrigationUsage)
	irrigation.POST("/estimate", s.estimateWater)

	router.GET("/team", s.listTeam)

	alerts := router.Group("/alerts")
	alerts.GET("", s.listAlerts)
	alerts.POST("/:id/read", authMiddleware, s.markAlertRead)
	alerts.DELETE("/:id", authMiddleware, s.dismissAlert)

	router.GET("/ws", auth.JWTMiddleware(s.auth.JWTSecret, s.auth.JWTAudience, auth.AllowQueryToken()), s.serveLive)
}

// requestError carries a status and message decided by a handler.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(message string) error {
	return &requestError{status: http.StatusBadRequest, message: message}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, message := s.classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.Error(err),
			zap.String("path", c.FullPath()),
			zap.String("operation", logging.OperationOf(err)))
	}
	c.JSON(status, gin.H{"error": message})
}

func (s *Server) classify(err error) (int, string) {
	var reqErr *requestError
	var visionErr *vision.Error
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, reqErr.message
	case errors.Is(err, usecase.ErrInvalidInput),
		errors.Is(err, imageprocessor.ErrEmptyImage),
		errors.Is(err, imageprocessor.ErrInvalidDataURL),
		errors.Is(err, capture.ErrInvalidSource):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, capture.ErrTooLarge), errors.Is(err, imageprocessor.ErrTooManyPixels):
		return http.StatusRequestEntityTooLarge, "image too large"
	case errors.Is(err, imageprocessor.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "unsupported image type"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.As(err, &visionErr), logging.OperationOf(err) == "analysis.analyze":
		if vision.IsTransient(err) {
			return http.StatusServiceUnavailable, "image classifier temporarily unavailable"
		}
		return http.StatusBadGateway, "image classifier rejected the request"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func currentUser(c *gin.Context) string {
	userID, _ := auth.GetUserID(c.Request.Context())
	return userID
}
