// internal/router/router.go
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agriqcert/agriqcert-backend/internal/broker"
	"github.com/agriqcert/agriqcert-backend/internal/config"
	"github.com/agriqcert/agriqcert-backend/internal/handlers"
	"github.com/agriqcert/agriqcert-backend/internal/middleware"
	"github.com/agriqcert/agriqcert-backend/internal/repository"
	"github.com/agriqcert/agriqcert-backend/internal/services"
	"github.com/agriqcert/agriqcert-backend/internal/session"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

// Dependencies are the long-lived collaborators built by the caller.
type Dependencies struct {
	Config     *config.Config
	Store      repository.Store
	Sessions   session.Store
	Storage    *services.StorageService
	Publisher  broker.Publisher
	RateLimits middleware.RateLimits
	// Checks are pinged by /ready in addition to the store.
	Checks map[string]handlers.Pinger
}

func Initialize(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize services
	ttl := time.Duration(cfg.JWT.AccessTokenTTL) * time.Hour
	authService := services.NewAuthService(deps.Store.Users(), deps.Sessions, ttl)
	lifecycleService := services.NewLifecycleService(
		deps.Store,
		deps.Storage,
		deps.Storage.GetDefaultUploadOptions("batches"),
		cfg.Storage.MaxFiles,
		deps.Publisher,
	)
	fingerprintService := services.NewFingerprintService(lifecycleService)

	checks := map[string]handlers.Pinger{"database": deps.Store}
	for name, check := range deps.Checks {
		checks[name] = check
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	batchHandler := handlers.NewBatchHandler(lifecycleService, fingerprintService)
	inspectionHandler := handlers.NewInspectionHandler(lifecycleService)
	healthHandler := handlers.NewHealthHandler(checks)

	limits := deps.RateLimits
	requireAuth := middleware.AuthRequired(authService)

	// Initialize Gin router
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	if limits.General != nil {
		r.Use(limits.General.Middleware())
	}

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Authentication routes
		auth := api.Group("/auth")
		if limits.Auth != nil {
			auth.Use(limits.Auth.Middleware())
		}
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		batches := api.Group("/batches")
		{
			// Public routes
			batches.GET("/verify/:id", batchHandler.VerifyBatch)
			batches.GET("/verify/:id/audit", batchHandler.AuditBatch)
			batches.GET("/market/all", batchHandler.Market)

			protected := batches.Group("")
			protected.Use(requireAuth)
			{
				create := []gin.HandlerFunc{batchHandler.CreateBatch}
				if limits.Upload != nil {
					create = append([]gin.HandlerFunc{limits.Upload.Middleware()}, create...)
				}
				protected.POST("", create...)
				protected.GET("/:userId", batchHandler.ListExporterBatches)
				protected.DELETE("/:id", batchHandler.DeleteBatch)
				protected.GET("/orders/incoming/:userId", batchHandler.IncomingOrders)
				protected.GET("/orders/placed/:userId", batchHandler.PlacedOrders)
				protected.PUT("/order/:id", batchHandler.PlaceOrder)
				protected.PUT("/ship/:id", batchHandler.ApproveShipment)
				protected.PUT("/decline/:id", batchHandler.DeclineOrder)
			}
		}

		inspections := api.Group("/inspections")
		inspections.Use(requireAuth)
		{
			inspections.GET("/pending", inspectionHandler.Pending)
			inspections.POST("", inspectionHandler.Submit)
		}
	}

	// Attachments on local disk
	if !cfg.AWS.UseS3() {
		r.Static(cfg.Storage.PublicPath, cfg.Storage.UploadDir)
	}

	return r
}
