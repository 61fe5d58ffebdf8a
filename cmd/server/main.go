package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appintegration "github.com/scafi/backend/internal/application/integration"
	"github.com/scafi/backend/internal/domain/integration"
	"github.com/scafi/backend/internal/domain/shared"
	"github.com/scafi/backend/internal/infrastructure/cache"
	"github.com/scafi/backend/internal/infrastructure/config"
	"github.com/scafi/backend/internal/infrastructure/jde"
	"github.com/scafi/backend/internal/infrastructure/logger"
	"github.com/scafi/backend/internal/infrastructure/notifier"
	"github.com/scafi/backend/internal/infrastructure/persistence"
	"github.com/scafi/backend/internal/interfaces/http/handler"
	"github.com/scafi/backend/internal/interfaces/http/middleware"
	"github.com/scafi/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	modes := integration.ResolveModes(cfg.DryRun.Database, cfg.DryRun.Downstream, cfg.DryRun.Notifier)

	log.Info("Starting Scafi integration backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database_mode", modes.Database.String()),
		zap.String("downstream_mode", modes.Downstream.String()),
		zap.String("notifier_mode", modes.Notifier.String()),
	)

	// Database connection is only established in live mode; dry-run
	// deployments must start without any backing services.
	var db *persistence.Database
	if !modes.Database.IsDryRun() {
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
		db, err = persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		log.Info("Database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("pool_max", cfg.Database.PoolMax))
	}

	store := persistence.NewGormRecordStore(db, &cfg.Database, modes.Database, log)

	policy := integration.RetryPolicy{
		Attempts:    cfg.HTTPClient.RetryAttempts(),
		BaseBackoff: cfg.HTTPClient.BackoffBase,
		Timeout:     cfg.HTTPClient.Timeout,
	}
	client := jde.NewClient(&cfg.JDE, policy, modes.Downstream, log)

	notif := notifier.NewSMTPNotifier(&cfg.SMTP, modes.Notifier, log)

	var idemStore shared.IdempotencyStore
	if cfg.Idempotency.Enabled {
		idemStore, err = cache.NewIdempotencyStore(cfg.Redis, true, log)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer idemStore.Close()
	} else {
		idemStore = cache.NewInMemoryIdempotencyStore()
		defer idemStore.Close()
	}

	ingestService := appintegration.NewIngestService(store, client, notif, log)
	defer ingestService.Close()
	healthService := appintegration.NewHealthService(store, client, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
		MaxAge:       12 * time.Hour,
	}))

	idemCfg := shared.IdempotencyConfig{
		Enabled: cfg.Idempotency.Enabled,
		TTL:     cfg.Idempotency.TTL,
	}
	router.NewRouter(engine).
		Register(handler.NewHealthHandler(healthService, modes)).
		Register(handler.NewIntegrationHandler(ingestService, idemStore, idemCfg, log)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
