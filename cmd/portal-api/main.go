package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/opencase/benefits-portal-api/api/swagger"
	"github.com/opencase/benefits-portal-api/internal/dto"
	"github.com/opencase/benefits-portal-api/internal/handler"
	mwmetrics "github.com/opencase/benefits-portal-api/internal/middleware"
	"github.com/opencase/benefits-portal-api/internal/models"
	"github.com/opencase/benefits-portal-api/internal/notifications"
	"github.com/opencase/benefits-portal-api/internal/repository"
	"github.com/opencase/benefits-portal-api/internal/scheduler"
	"github.com/opencase/benefits-portal-api/internal/service"
	"github.com/opencase/benefits-portal-api/pkg/cache"
	"github.com/opencase/benefits-portal-api/pkg/clock"
	"github.com/opencase/benefits-portal-api/pkg/config"
	"github.com/opencase/benefits-portal-api/pkg/database"
	"github.com/opencase/benefits-portal-api/pkg/jobs"
	"github.com/opencase/benefits-portal-api/pkg/logger"
	corsmiddleware "github.com/opencase/benefits-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/opencase/benefits-portal-api/pkg/middleware/requestid"
)

// @title Benefits Portal API
// @version 0.1.0
// @description Case intake, release scheduling, and external sync for the benefits portal
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

	portalClock, err := clock.NewSystem(cfg.Clock.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("failed to init clock", "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, settings cache disabled", "error", err)
		redisClient = nil
	}

	caseRepo := repository.NewCaseRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	callRepo := repository.NewAPICallRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	validate := validator.New()

	// The environment seeds the settings served until an admin saves the row.
	bootstrap := models.DefaultSettings()
	bootstrap.EmailEnabled = cfg.Notifications.Enabled
	bootstrap.ReleaseEnabled = cfg.Release.Enabled
	bootstrap.ReleaseBatchHour = cfg.Release.BatchHour
	bootstrap.APIBaseURL = cfg.ExternalAPI.BaseURL
	bootstrap.APIKey = cfg.ExternalAPI.APIKey
	bootstrap.APITimeoutSeconds = int(cfg.ExternalAPI.Timeout / time.Second)
	bootstrap.APIMaxRetries = cfg.ExternalAPI.MaxRetries

	metricsSvc := service.NewMetricsService()
	settingsSvc := service.NewSettingsService(settingsRepo, redisClient, auditRepo, bootstrap, validate, logr)
	creditSvc := service.NewCreditService(caseRepo, logr)
	syncSvc := service.NewSyncService(caseRepo, callRepo, settingsSvc, auditRepo, metricsSvc, portalClock, logr)

	syncQueue := jobs.NewQueue("case_sync", func(ctx context.Context, job jobs.Job) error {
		return syncSvc.SubmitCase(ctx, job.ID, job.Attempt)
	}, jobs.QueueConfig{
		Workers:    cfg.SyncQueue.Workers,
		BufferSize: cfg.SyncQueue.BufferSize,
		Logger:     logr,
	})

	lifecycleSvc := service.NewLifecycleService(caseRepo, settingsSvc, creditSvc, portalClock, syncQueue, validate, logr)
	releaseSvc := service.NewReleaseService(caseRepo, settingsSvc, portalClock, logr)

	renderer, err := notifications.NewRenderer(cfg.Notifications.PortalBaseURL)
	if err != nil {
		logr.Sugar().Fatalw("failed to init notification renderer", "error", err)
	}
	sender := notifications.NewSMTPSender(cfg.SMTP, cfg.Notifications.FromAddress)
	notificationSvc := service.NewNotificationService(caseRepo, settingsSvc, auditRepo, renderer, sender, portalClock, logr)

	authSvc := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            "benefits-portal",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncQueue.Start(ctx)
	defer syncQueue.Stop()

	releaseHour := bootstrap.ReleaseBatchHour
	if current, err := settingsSvc.Current(ctx); err == nil {
		releaseHour = current.ReleaseBatchHour
	}

	sched := scheduler.New(metricsSvc, logr)
	sched.Register("release", scheduler.DailyAt(releaseHour), releaseSvc.ReleaseDueCases)
	sched.Register("notifications", cfg.Notifications.CronSpec, notificationSvc.SendDueNotifications)
	sched.Register("sync_retry", cfg.ExternalAPI.CronSpec,
		func(ctx context.Context, _ time.Time, dryRun bool) (*dto.SweepResult, error) {
			return syncSvc.RetryFailedCases(ctx, dryRun)
		})
	if err := sched.Start(ctx); err != nil {
		logr.Sugar().Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(mwmetrics.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, authSvc, handler.Handlers{
		Cases:    handler.NewCaseHandler(lifecycleSvc, creditSvc, auditRepo, creditRepo, syncSvc, callRepo, releaseSvc),
		Settings: handler.NewSettingsHandler(settingsSvc),
		Sweeps:   handler.NewSweepHandler(releaseSvc, notificationSvc, syncSvc),
		Metrics:  handler.NewMetricsHandler(metricsSvc),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
