// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/agriqcert/agriqcert-backend/internal/broker"
	"github.com/agriqcert/agriqcert-backend/internal/config"
	"github.com/agriqcert/agriqcert-backend/internal/database"
	"github.com/agriqcert/agriqcert-backend/internal/handlers"
	"github.com/agriqcert/agriqcert-backend/internal/i18n"
	"github.com/agriqcert/agriqcert-backend/internal/middleware"
	"github.com/agriqcert/agriqcert-backend/internal/repository"
	"github.com/agriqcert/agriqcert-backend/internal/repository/memory"
	"github.com/agriqcert/agriqcert-backend/internal/router"
	"github.com/agriqcert/agriqcert-backend/internal/services"
	"github.com/agriqcert/agriqcert-backend/internal/session"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	utils.InitLogger(cfg.Environment, cfg.Observability.LogLevel, cfg.Observability.LogFormat)

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	ctx := context.Background()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	if cfg.Observability.JaegerEndpoint != "" {
		tp, err := utils.InitTracer(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logrus.WithError(err).Warn("Tracing disabled")
		} else {
			closers = append(closers, func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(ctx); err != nil {
					logrus.WithError(err).Error("Failed to flush traces")
				}
			})
		}
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	closers = append(closers, closeStore)

	checks := map[string]handlers.Pinger{}
	sessions, err := openSessions(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize session store")
	}
	if rs, ok := sessions.(*session.RedisStore); ok {
		checks["redis"] = rs
		closers = append(closers, func() {
			if err := rs.Close(); err != nil {
				logrus.WithError(err).Error("Error closing redis client")
			}
		})
	}

	var publisher broker.Publisher = broker.NewLogPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logrus.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		}).Info("Publishing lifecycle events to Kafka")
	}
	closers = append(closers, func() {
		if err := publisher.Close(); err != nil {
			logrus.WithError(err).Error("Error closing event publisher")
		}
	})

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize attachment storage")
	}

	limits := middleware.DefaultRateLimits()
	closers = append(closers, limits.Stop)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(router.Dependencies{
		Config:     cfg,
		Store:      store,
		Sessions:   sessions,
		Storage:    storage,
		Publisher:  publisher,
		RateLimits: limits,
		Checks:     checks,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Database.InMemory() {
		store := memory.NewStore()
		// An empty in-memory store is useless for demos, so seed it.
		created, err := database.SeedInitialData(ctx, store, cfg.Seed)
		if err != nil {
			return nil, nil, err
		}
		logrus.WithField("accounts", created).Warn("Using in-memory store; data is lost on restart")
		return store, func() {}, nil
	}

	if err := database.RunMigrations(ctx, cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return database.NewStore(db), func() { database.Close(db) }, nil
}

func openSessions(cfg *config.Config) (session.Store, error) {
	if !cfg.Redis.Enabled {
		return session.NewMemoryStore(), nil
	}
	return session.NewRedisStore(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
}
