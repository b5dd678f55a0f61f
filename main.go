package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/example/agrisense/internal/analysis"
	"github.com/example/agrisense/internal/auth"
	"github.com/example/agrisense/internal/capture"
	"github.com/example/agrisense/internal/config"
	"github.com/example/agrisense/internal/fixtures"
	"github.com/example/agrisense/internal/grpcclient"
	"github.com/example/agrisense/internal/grpcserver"
	"github.com/example/agrisense/internal/handlers"
	"github.com/example/agrisense/internal/imageprocessor"
	"github.com/example/agrisense/internal/live"
	"github.com/example/agrisense/internal/logging"
	"github.com/example/agrisense/internal/models"
	"github.com/example/agrisense/internal/mqtt"
	"github.com/example/agrisense/internal/repository"
	"github.com/example/agrisense/internal/usecase"
	"github.com/example/agrisense/internal/vision"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := healthcheck(cfg, logger); err != nil {
			logger.Error("healthcheck failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("agrisense stopped", zap.Error(err))
	}
	logger.Info("agrisense stopped")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db, err := initDatabase(startCtx, cfg, logger)
	if err != nil {
		return err
	}
	farm := repository.NewFarmRepository(db, logger)
	checks := repository.NewHealthCheckRepository(db, logger)

	if cfg.SeedFixtures {
		seeded, err := farm.SeedIfEmpty(startCtx, fixtures.Build(time.Now(), rand.New(rand.NewSource(time.Now().UnixNano()))))
		if err != nil {
			return err
		}
		if seeded {
			logger.Info("seeded fixture data")
		}
	}
	if err := bootstrapOperator(startCtx, cfg.Auth, farm, logger); err != nil {
		return err
	}

	cache, err := initCache(startCtx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	if closer, ok := cache.(io.Closer); ok {
		defer closer.Close()
	}

	classifier, err := vision.New(cfg.Vision, logger)
	if err != nil {
		return err
	}
	fallback := analysis.NewFallback(rand.New(rand.NewSource(time.Now().UnixNano())))
	analyzer := analysis.NewAnalyzer(classifier, fallback, cfg.Analysis.Fallback, logger)

	hub := live.NewHub(cfg.CORSOrigins, logger)
	defer hub.Close()

	healthChecks := usecase.NewHealthCheckUseCase(checks, farm, cache,
		imageprocessor.New(cfg.Analysis.MaxImageEdge, cfg.Analysis.MaxImagePixels), analyzer, hub, logger)
	readings := usecase.NewReadingsUseCase(farm, hub, logger)

	server := handlers.NewServer(cfg, handlers.Dependencies{
		HealthChecks: healthChecks,
		Dashboard:    usecase.NewDashboardUseCase(farm, logger),
		Irrigation:   usecase.NewIrrigationUseCase(farm, hub, logger),
		Readings:     readings,
		Images:       capture.New(&http.Client{Timeout: cfg.Camera.Timeout}, cfg.Analysis.MaxUploadBytes),
		Operators:    farm,
		Live:         hub,
	}, logger)

	r := gin.New()
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{Formatter: accessLogFormatter}), gin.Recovery())
	r.MaxMultipartMemory = cfg.Analysis.MaxUploadBytes
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	handlers.RegisterRoutes(r, server, auth.JWTMiddleware(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := grpcserver.New([]grpcserver.Dependency{
		{Name: "database", Check: func(ctx context.Context) error { return repository.Ping(ctx, db) }},
		{Name: "cache", Check: cache.Ping},
	}, 15*time.Second, logger)
	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("agrisense API listening", zap.String("addr", cfg.HTTPAddr))
		return serveHTTP(gctx, httpServer, shutdownTimeout, logger, nil)
	})
	g.Go(func() error {
		return health.Serve(gctx, grpcListener)
	})
	if cfg.MQTT.Broker != "" {
		subscriber := mqtt.New(cfg.MQTT, readings, logger)
		g.Go(func() error {
			return subscriber.Run(gctx)
		})
	} else {
		logger.Info("MQTT broker not configured, sensor ingestion over MQTT disabled")
	}
	return g.Wait()
}

func initDatabase(ctx context.Context, cfg config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	if cfg.Database.Driver == config.DriverPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("access db handle: %w", err)
		}
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := repository.Ping(ctx, db); err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}
	if err := repository.AutoMigrate(ctx, db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}

func initCache(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (usecase.Cache, error) {
	if cfg.Addr == "" {
		logger.Info("redis not configured, using in-process result cache")
		return usecase.NewMemoryCache(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return usecase.NewRedisCache(client), nil
}

// bootstrapOperator creates the admin account on first start. Without a
// password no account is created and logins are impossible.
func bootstrapOperator(ctx context.Context, cfg config.AuthConfig, farm *repository.FarmRepository, logger *zap.Logger) error {
	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD not set, operator login disabled")
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	return farm.EnsureOperator(ctx, &models.Operator{
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		Role:         "admin",
	})
}

// accessLogFormatter drops the query string so websocket tokens never reach
// the access log.
func accessLogFormatter(p gin.LogFormatterParams) string {
	path, _, _ := strings.Cut(p.Path, "?")
	if p.Latency > time.Minute {
		p.Latency = p.Latency.Truncate(time.Second)
	}
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		p.StatusCode,
		p.Latency,
		p.ClientIP,
		p.Method,
		path,
		p.ErrorMessage,
	)
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	}
	return c
}

func healthcheck(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr := cfg.GRPCAddr
	if host, port, err := net.SplitHostPort(addr); err == nil && host == "" {
		addr = net.JoinHostPort("127.0.0.1", port)
	}
	conn, err := grpcclient.Dial(ctx, addr, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	return grpcclient.CheckHealth(ctx, conn, grpcserver.ServiceName, logger)
}

// serveHTTP runs server until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout. A nil listener listens on server.Addr.
func serveHTTP(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
