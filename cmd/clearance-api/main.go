package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/spup-cprint/clearance-api/api/swagger"
	"github.com/spup-cprint/clearance-api/internal/handler"
	"github.com/spup-cprint/clearance-api/internal/middleware"
	"github.com/spup-cprint/clearance-api/internal/repository"
	"github.com/spup-cprint/clearance-api/internal/service"
	"github.com/spup-cprint/clearance-api/pkg/archive"
	"github.com/spup-cprint/clearance-api/pkg/cache"
	"github.com/spup-cprint/clearance-api/pkg/config"
	"github.com/spup-cprint/clearance-api/pkg/database"
	"github.com/spup-cprint/clearance-api/pkg/logger"
	corsmiddleware "github.com/spup-cprint/clearance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/spup-cprint/clearance-api/pkg/middleware/requestid"
	"github.com/spup-cprint/clearance-api/pkg/storage"
	"github.com/spup-cprint/clearance-api/pkg/tracking"
)

// @title SPUP Clearance API
// @version 1.0.0
// @description Research clearance submission intake, tracking and export service
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Redis is an optimization, not a dependency; the API serves without it.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	bundleStore, err := storage.NewBundleStore(cfg.Bundles.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init bundle storage", "error", err)
	}

	signer := storage.NewSignedURLSigner(cfg.Bundles.SignedURLSecret, cfg.Bundles.SignedURLTTL)

	namer := archive.IDNamer
	if cfg.Bundles.NamingScheme == config.NamingSchemeNameID {
		namer = archive.NameIDNamer
	}

	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(authRepo{userRepo, auditRepo}, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "clearance-api",
		AuthorizedEmails:   cfg.Admin.AuthorizedEmails,
	})

	submissionSvc := service.NewSubmissionService(
		submissionRepo, cacheRepo, bundleStore, auditRepo,
		tracking.NewGenerator(), namer, nil, logr,
		service.SubmissionConfig{
			CacheEnabled: cfg.Cache.Enabled && redisClient != nil,
			TrackingTTL:  cfg.Cache.TrackingTTL,
			ListingTTL:   cfg.Cache.ListingTTL,
		},
	).WithMetrics(metricsSvc)

	exportSvc := service.NewExportService(
		submissionRepo, bundleStore, cacheRepo, auditRepo, signer,
		service.ExportServiceConfig{
			APIPrefix:   cfg.APIPrefix,
			FirstDelay:  cfg.Export.FirstDelay,
			SteadyDelay: cfg.Export.SteadyDelay,
		}, logr,
	).WithMetrics(metricsSvc)

	reportSvc := service.NewReportService(submissionSvc, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc, cfg.Bundles.MaxUploadBytes)
	exportHandler := handler.NewExportHandler(exportSvc, logr)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/submissions", submissionHandler.Submit)
		api.GET("/submissions/:id", submissionHandler.Track)
		api.GET("/bundles/:id/download", exportHandler.Download)

		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		admin := api.Group("/admin", middleware.JWT(authSvc))
		{
			admin.GET("/submissions", submissionHandler.List)
			admin.PATCH("/submissions/:id", submissionHandler.Update)
			admin.PUT("/submissions/:id/status", submissionHandler.UpdateStatus)
			admin.PUT("/submissions/:id/export-link", submissionHandler.SetExportLink)
			admin.DELETE("/submissions/:id/export-link", submissionHandler.ClearExportLink)

			admin.POST("/submissions/:id/export/prepare", exportHandler.Prepare)
			admin.POST("/submissions/:id/export/confirm", exportHandler.Confirm)
			admin.GET("/export/submissions", exportHandler.ListExportable)
			admin.POST("/export/bulk/prepare", exportHandler.BulkPrepare)
			admin.POST("/export/bulk/mark", exportHandler.BulkMark)

			if cfg.Reports.Enabled {
				admin.GET("/reports/submissions", reportHandler.Submissions)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// authRepo combines the user and audit repositories into the single
// dependency surface the auth service consumes.
type authRepo struct {
	*repository.UserRepository
	*repository.AuditRepository
}
