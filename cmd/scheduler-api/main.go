package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/thryve/studio-scheduler-api/api/swagger"
	"github.com/thryve/studio-scheduler-api/internal/gateway"
	"github.com/thryve/studio-scheduler-api/internal/handler"
	"github.com/thryve/studio-scheduler-api/internal/locking"
	"github.com/thryve/studio-scheduler-api/internal/middleware"
	"github.com/thryve/studio-scheduler-api/internal/repository"
	"github.com/thryve/studio-scheduler-api/internal/service"
	"github.com/thryve/studio-scheduler-api/pkg/cache"
	"github.com/thryve/studio-scheduler-api/pkg/config"
	"github.com/thryve/studio-scheduler-api/pkg/database"
	"github.com/thryve/studio-scheduler-api/pkg/logger"
	corsmiddleware "github.com/thryve/studio-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/thryve/studio-scheduler-api/pkg/middleware/requestid"

	"github.com/go-playground/validator/v10"
)

// @title Studio Scheduler API
// @version 0.1.0
// @description Class capacity, waitlist, swap and coverage scheduling for fitness studios
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, staffing settings cache disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	sessionRepo := repository.NewClassSessionRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	waitlistRepo := repository.NewWaitlistRepository(db)
	swapRepo := repository.NewSwapRepository(db)
	coverageRepo := repository.NewCoverageRepository(db)
	studioRepo := repository.NewStudioRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)

	dispatcher := gateway.NewDispatcher(
		gateway.NewLogNotifier(logr),
		gateway.NewLogPaymentGateway(logr),
		gateway.DispatcherConfig{
			Workers:    cfg.Notifications.Workers,
			BufferSize: cfg.Notifications.BufferSize,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
		},
		logr,
	)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	locks := locking.NewKeyring()

	var settingsSvc *service.SettingsService
	if cacheRepo != nil {
		settingsSvc = service.NewSettingsService(studioRepo, cacheRepo, cfg.Scheduling.SettingsCacheTTL, metricsSvc, logr)
	} else {
		settingsSvc = service.NewSettingsService(studioRepo, nil, cfg.Scheduling.SettingsCacheTTL, metricsSvc, logr)
	}
	conflicts := service.NewConflictChecker(sessionRepo, cfg.Scheduling.ConflictBuffer)
	tokens := service.NewTokenService(cfg.JWT.Secret)

	admissionSvc := service.NewAdmissionService(sessionRepo, bookingRepo, waitlistRepo, studioRepo, locks, dispatcher, metricsSvc, validate, logr)
	swapSvc := service.NewSwapService(swapRepo, sessionRepo, instructorRepo, studioRepo, settingsSvc, conflicts, locks, dispatcher, metricsSvc, validate, logr)
	coverageSvc := service.NewCoverageService(coverageRepo, sessionRepo, studioRepo, settingsSvc, conflicts, locks, dispatcher, metricsSvc, validate, logr)

	handlers := handler.Handlers{
		Bookings: handler.NewBookingHandler(admissionSvc),
		Swaps:    handler.NewSwapHandler(swapSvc),
		Coverage: handler.NewCoverageHandler(coverageSvc),
		Metrics:  handler.NewMetricsHandler(metricsSvc),
	}
	if cfg.Exports.Enabled {
		exportSvc := service.NewRosterExportService(sessionRepo, bookingRepo, waitlistRepo, studioRepo, logr)
		handlers.Exports = handler.NewExportHandler(exportSvc)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, handlers, tokens)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
