package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/internal/handler"
	"github.com/freesideatlanta/member-portal/internal/middleware"
	"github.com/freesideatlanta/member-portal/internal/service"
	"github.com/freesideatlanta/member-portal/pkg/config"
	"github.com/freesideatlanta/member-portal/pkg/logger"
	corsmiddleware "github.com/freesideatlanta/member-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/freesideatlanta/member-portal/pkg/middleware/requestid"
)

type routes struct {
	auth      *handler.AuthHandler
	persons   *handler.PersonHandler
	elections *handler.ElectionHandler
	audit     *handler.AuditHandler
	metrics   *handler.MetricsHandler
	tokens    middleware.TokenValidator
	metricSvc *service.MetricsService
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(h.metricSvc, "/metrics", "/health"))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.EnableDocs && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.POST("/auth/login", h.auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(h.tokens))
	authed.GET("/auth/me", h.auth.Me)
	authed.POST("/auth/password", h.auth.ChangePassword)

	admin := middleware.RequireAdmin()

	persons := authed.Group("/persons")
	persons.GET("", admin, h.persons.List)
	persons.POST("", admin, h.persons.Create)
	persons.GET("/by-username/:username", h.persons.GetByUsername)
	persons.GET("/:id", middleware.AdminOrSelf(), h.persons.Get)
	persons.PATCH("/:id", middleware.AdminOrSelf(), h.persons.Update)
	persons.DELETE("/:id", admin, h.persons.Deactivate)
	persons.POST("/:id/password-reset", admin, h.persons.ResetPassword)

	elections := authed.Group("/elections")
	elections.GET("", h.elections.Board)
	elections.POST("", admin, h.elections.Create)
	elections.GET("/:id", h.elections.Get)
	elections.POST("/:id/nominations", h.elections.Nominate)
	elections.POST("/:id/votes", h.elections.Vote)
	elections.GET("/:id/tally", h.elections.Tally)
	elections.GET("/:id/tally/export", h.elections.ExportTally)

	authed.GET("/audit-logs", admin, h.audit.List)
	authed.GET("/system/metrics", admin, h.metrics.Snapshot)

	return r
}
