package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/uniportal/ecms-api/api/swagger"
	"github.com/uniportal/ecms-api/internal/handler"
	"github.com/uniportal/ecms-api/internal/middleware"
	"github.com/uniportal/ecms-api/internal/repository"
	"github.com/uniportal/ecms-api/internal/service"
	"github.com/uniportal/ecms-api/pkg/cache"
	"github.com/uniportal/ecms-api/pkg/config"
	"github.com/uniportal/ecms-api/pkg/database"
	"github.com/uniportal/ecms-api/pkg/logger"
	"github.com/uniportal/ecms-api/pkg/mailer"
	corsmiddleware "github.com/uniportal/ecms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uniportal/ecms-api/pkg/middleware/requestid"
)

// @title Exam Complaint Portal API
// @version 1.0.0
// @description Exam complaint submission, triage and resolution
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	retry := database.PolicyFromConfig(cfg.Database)

	// Redis is optional. When it is down the portal keeps working and only
	// analytics caching is lost.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, analytics caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db, retry)
	complaintRepo := repository.NewComplaintRepository(db, retry)
	responseRepo := repository.NewResponseRepository(db, retry)
	notificationRepo := repository.NewNotificationRepository(db, retry)
	analyticsRepo := repository.NewAnalyticsRepository(db, retry)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	var mail mailer.Mailer
	if sg := mailer.NewSendGrid(cfg.Email, logr); sg != nil {
		async := mailer.NewAsync(sg, logr)
		async.Start(context.Background())
		defer async.Stop()
		mail = async
	} else {
		logr.Info("sendgrid not configured, email delivery disabled")
	}

	validate := validator.New()

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled && redisClient != nil)
	authService := service.NewAuthService(userRepo, mail, validate, logr, service.AuthConfig{
		SessionSecret: cfg.Session.Secret,
		SessionExpiry: cfg.Session.Expiration,
		AppURL:        cfg.AppURL,
	})
	notificationService := service.NewNotificationService(notificationRepo, metricsService, logr)
	complaintService := service.NewComplaintService(complaintRepo, responseRepo, notificationService, cacheService, metricsService, validate, logr)
	responseService := service.NewResponseService(responseRepo, complaintRepo, notificationService, mail, metricsService, validate, logr, cfg.AppURL)
	analyticsService := service.NewAnalyticsService(analyticsRepo, cacheService, logr)
	exportService := service.NewExportService(complaintRepo, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authService, cfg.Session)
	complaintHandler := handler.NewComplaintHandler(complaintService, exportService)
	responseHandler := handler.NewResponseHandler(responseService)
	notificationHandler := handler.NewNotificationHandler(notificationService, cfg.Notifications.DefaultLimit)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.RegisterStudent)
		auth.POST("/register-admin", authHandler.RegisterAdmin)
		auth.POST("/login", authHandler.Login)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	session := api.Group("")
	session.Use(middleware.Session(authService, cfg.Session.CookieName))
	{
		session.POST("/auth/logout", authHandler.Logout)
		session.GET("/auth/me", authHandler.Me)
		session.PUT("/auth/me", authHandler.UpdateProfile)
		session.POST("/auth/change-password", authHandler.ChangePassword)

		session.POST("/complaints", complaintHandler.Create)
		session.GET("/complaints", complaintHandler.List)
		session.GET("/complaints/:id", complaintHandler.Get)
		session.GET("/complaints/:id/responses", responseHandler.List)

		session.GET("/notifications", notificationHandler.List)
		session.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		session.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
		session.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	admin := api.Group("")
	admin.Use(middleware.Session(authService, cfg.Session.CookieName), middleware.RequireAdmin())
	{
		admin.GET("/complaints/export", complaintHandler.Export)
		admin.PATCH("/complaints/:id/status", complaintHandler.UpdateStatus)
		admin.GET("/complaints/:id/history", complaintHandler.History)
		admin.POST("/complaints/:id/responses", responseHandler.Create)

		admin.GET("/analytics", analyticsHandler.Overview)
		admin.GET("/admin/stats", analyticsHandler.AdminStats)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Notifications.CleanupSchedule, func() {
		notificationService.Cleanup(context.Background(), cfg.Notifications.RetentionDays)
	}); err != nil {
		logr.Sugar().Warnw("notification cleanup schedule invalid", "schedule", cfg.Notifications.CleanupSchedule, "error", err)
	} else {
		scheduler.Start()
		defer scheduler.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
