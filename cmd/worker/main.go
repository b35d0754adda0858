// Package main runs the background worker: notification delivery and scheduled maintenance.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/examflow/editorial/config"
	"github.com/examflow/editorial/internal/notifications"
	"github.com/examflow/editorial/internal/realtime"
	"github.com/examflow/editorial/internal/scheduler"
	"github.com/examflow/editorial/internal/worker"
	"github.com/examflow/editorial/pkg/database"
	"github.com/examflow/editorial/pkg/queue"
	"github.com/examflow/editorial/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
	processor := worker.NewNotificationProcessor(notifications.NewRepository(pool), pubsub, jobQueue, logger)

	cron := scheduler.New(database.NewStatusRepairer(pool, logger), jobQueue, scheduler.Specs{
		StatusRepair: cfg.Scheduler.StatusRepairSpec,
		DLQReport:    cfg.Scheduler.DLQReportSpec,
	}, logger)
	if err := cron.Start(); err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	cron.Stop()
	// Let an in-flight job finish its insert.
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
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
