// Command server exposes the /sync reconciliation endpoint and the dashboard
// API over HTTP.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/api"
	"github.com/dharsanguruparan/ftpledger/internal/app"
	"github.com/dharsanguruparan/ftpledger/internal/config"
	"github.com/dharsanguruparan/ftpledger/internal/logger"
	"github.com/dharsanguruparan/ftpledger/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTelEndpoint)
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

	srv := api.New(cfg, a.APIDeps(), zl.Named("api"))
	zl.Info("starting ftpledger",
		zap.String("address", cfg.Address),
		zap.String("store", cfg.StoreBackend),
		zap.String("source", cfg.SyncSource),
		zap.Bool("queue", a.Queue != nil))
	if err := srv.Run(ctx); err != nil {
		zl.Error("server stopped", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
}
