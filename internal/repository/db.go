package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/agrisense/internal/config"
	"github.com/example/agrisense/internal/logging"
	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/retry"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Open connects to the configured database.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == config.DriverSQLite {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// AutoMigrate ensures the schema is available.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(models.All()...)
}

// Ping checks that the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// retrier retries database operations that fail with transient errors.
type retrier struct {
	logger *zap.Logger
	policy retry.Policy
}

func newRetrier(logger *zap.Logger) retrier {
	return retrier{logger: logger, policy: retry.DefaultPolicy}
}

func (r *retrier) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	calls, err := r.policy.Do(ctx, nil, func(err error, attempt int) {
		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt))
	}, fn)
	if err == nil {
		if calls > 1 {
			opLogger.Info("database operation succeeded after retry", zap.Int("attempt", calls))
		}
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNotFound
	}
	return logging.NewOperationError(operation, requestID, err)
}
