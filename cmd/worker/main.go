package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/app"
	"github.com/dharsanguruparan/ftpledger/internal/config"
	"github.com/dharsanguruparan/ftpledger/internal/logger"
	"github.com/dharsanguruparan/ftpledger/internal/queue"
	"github.com/dharsanguruparan/ftpledger/internal/tracing"
	"github.com/dharsanguruparan/ftpledger/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	if !cfg.QueueEnabled() {
		zl.Fatal("REDIS_ADDR is required by the worker")
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName+"-worker", cfg.OTelEndpoint)
	if err != nil {
		zl.Fatal("init tracing", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("init app", zap.Error(err))
	}
	defer a.Close()

	redisOpt := queue.RedisOpt(cfg)
	scheduler, err := worker.NewScheduler(redisOpt, cfg.SyncSchedule, zl.Named("scheduler"))
	if err != nil {
		zl.Fatal("init scheduler", zap.Error(err))
	}
	if scheduler != nil {
		if err := scheduler.Start(); err != nil {
			zl.Fatal("start scheduler", zap.Error(err))
		}
		defer scheduler.Shutdown()
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerPool,
		Logger:      zl.Named("asynq").Sugar(),
	})
	processor := worker.NewProcessor(a.Service, a.Source, zl.Named("worker"))
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	zl.Info("worker started",
		zap.Int("concurrency", cfg.WorkerPool),
		zap.String("schedule", cfg.SyncSchedule))
	if err := server.Run(mux); err != nil {
		zl.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}
