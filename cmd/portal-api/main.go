package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/freesideatlanta/member-portal/api/swagger"
	"github.com/freesideatlanta/member-portal/internal/bootstrap"
	"github.com/freesideatlanta/member-portal/internal/handler"
	"github.com/freesideatlanta/member-portal/internal/repository"
	"github.com/freesideatlanta/member-portal/internal/service"
	"github.com/freesideatlanta/member-portal/pkg/cache"
	"github.com/freesideatlanta/member-portal/pkg/config"
	"github.com/freesideatlanta/member-portal/pkg/logger"
	"github.com/freesideatlanta/member-portal/pkg/notify"
)

// @title Member Portal API
// @version 1.0.0
// @description Member directory and officer and board elections
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg, cfg.Database.AutoMigrate, logr)
	if err != nil {
		logr.Fatal("failed to open storage", zap.Error(err))
	}
	defer storage.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, tally cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	tallyCache := service.NewTallyCache(cacheRepo, metricsSvc, cfg.Elections.TallyCacheTTL, logr, cacheRepo.Enabled())

	notifier := service.NewNotificationService(notify.NewLogSender(logr), service.NotificationConfig{
		From:       cfg.Notifications.From,
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.Retries,
	}, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	validate := validator.New()
	authSvc := service.NewAuthService(storage.Persons, storage.Audit, notifier, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	personSvc := service.NewPersonService(storage.Persons, storage.Audit, validate, logr)
	electionSvc := service.NewElectionService(storage.Elections, storage.Persons, storage.Audit, tallyCache, metricsSvc, validate, logr, service.ElectionConfig{
		EndedLookback: cfg.Elections.EndedLookback,
	})

	r := newRouter(cfg, logr, routes{
		auth:      handler.NewAuthHandler(authSvc),
		persons:   handler.NewPersonHandler(personSvc, authSvc),
		elections: handler.NewElectionHandler(electionSvc, service.NewExportService(electionSvc, logr)),
		audit:     handler.NewAuditHandler(service.NewAuditService(storage.Audit)),
		metrics:   handler.NewMetricsHandler(metricsSvc),
		tokens:    authSvc,
		metricSvc: metricsSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
