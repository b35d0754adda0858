// Package main runs the editorial HTTP API with WebSocket push and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/examflow/editorial/config"
	"github.com/examflow/editorial/internal/analytics"
	"github.com/examflow/editorial/internal/auth"
	"github.com/examflow/editorial/internal/middleware"
	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/internal/notifications"
	"github.com/examflow/editorial/internal/questions"
	"github.com/examflow/editorial/internal/realtime"
	"github.com/examflow/editorial/internal/worker"
	"github.com/examflow/editorial/pkg/database"
	"github.com/examflow/editorial/pkg/queue"
	"github.com/examflow/editorial/pkg/redis"
	"github.com/examflow/editorial/pkg/response"
	"github.com/examflow/editorial/pkg/storage"
)

func main() {
	cfg, cfgErr := config.Load()
	level := "info"
	if cfgErr == nil {
		level = cfg.LogLevel
	}
	logger := newLogger(level)
	defer logger.Sync()
	if cfgErr != nil {
		logger.Fatal("load config", zap.Error(cfgErr))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns: int32(cfg.Database.MaxConns),
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	repairer := database.NewStatusRepairer(pool, logger)
	if err := repairer.SyncStatusConstraint(ctx); err != nil {
		logger.Fatal("sync status constraint", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var uploader questions.AssetUploader
	if cfg.AWS.Enabled() {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AssetsBucket:         cfg.AWS.AssetsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			uploader = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, pubsub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Notifications
	notificationRepo := notifications.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	var enqueuer notifications.Enqueuer
	if cfg.Notify.Async {
		enqueuer = jobQueue
	}
	dispatcher := notifications.NewDispatcher(enqueuer, notificationRepo, authRepo, logger)
	notificationHandler := notifications.NewHandler(notificationRepo, dispatcher)

	// Questions
	questionRepo := questions.NewRepository(pool)
	questionSvc := questions.NewService(questionRepo, dispatcher, cfg.Database.Timeout(), logger)
	questionHandler := questions.NewHandler(questionSvc, uploader, repairer)
	analyticsHandler := analytics.NewHandler(analytics.NewRepository(pool))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(hctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Healthy(hctx); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	admin := middleware.RequireRole(models.RoleAdmin)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", admin, authHandler.List)
		api.POST("/users", admin, authHandler.CreateUser)

		api.GET("/questions", questionHandler.List)
		api.POST("/questions", questionHandler.Create)
		api.GET("/questions/:id", questionHandler.Get)
		api.PATCH("/questions/:id", questionHandler.Update)
		api.DELETE("/questions/:id", admin, questionHandler.Delete)
		api.POST("/questions/:id/status", questionHandler.ChangeStatus)
		api.GET("/questions/:id/versions", questionHandler.Versions)
		api.POST("/questions/:id/versions/:version/restore", questionHandler.RestoreVersion)
		api.GET("/questions/:id/notes", questionHandler.Notes)
		api.GET("/questions/:id/typesetting", questionHandler.Typesetting)
		api.POST("/questions/:id/assets/upload-url", questionHandler.UploadURL)

		api.POST("/admin/questions/compact-ids", admin, questionHandler.CompactIDs)
		api.POST("/admin/statuses/repair", admin, questionHandler.RepairStatuses)
		api.GET("/admin/analytics/pipeline", admin, analyticsHandler.Pipeline)

		api.GET("/notifications", notificationHandler.ListMine)
		api.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
		api.POST("/announcements", admin, notificationHandler.Announce)

		// Browsers cannot set headers on the upgrade request; the token comes as ?token=.
		api.GET("/ws", realtime.ServeWs(hub, realtime.NewUpgrader(cfg.Server.CORSAllowedOrigins), logger))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process consumer; cmd/worker competes on the same queue when deployed.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Notify.Async {
		processor := worker.NewNotificationProcessor(notificationRepo, pubsub, jobQueue, logger)
		go processor.Run(workerCtx)
		logger.Info("notification worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := config.Build()
	return logger
}
