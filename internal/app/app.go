// Package app assembles the stores, cache, queue client and reconcile
// service from a Config. The server, the worker and the CLI all start here.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/accounts"
	"github.com/dharsanguruparan/ftpledger/internal/api"
	"github.com/dharsanguruparan/ftpledger/internal/cache"
	"github.com/dharsanguruparan/ftpledger/internal/config"
	"github.com/dharsanguruparan/ftpledger/internal/database"
	"github.com/dharsanguruparan/ftpledger/internal/database/migrations"
	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/queue"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
	"github.com/dharsanguruparan/ftpledger/internal/repository"
	"github.com/dharsanguruparan/ftpledger/internal/source"
	"github.com/dharsanguruparan/ftpledger/internal/storage"
)

// AccessLog both records uploads for the reconcile service and serves the
// dashboard's log view.
type AccessLog interface {
	api.AccessLogReader
	reconcile.Auditor
	RecordAccess(ctx context.Context, entry model.AccessLog) error
}

// Stores groups the persistence behind one backend.
type Stores struct {
	Directory  reconcile.AccountDirectory
	Ledger     reconcile.Ledger
	Accounts   accounts.Store
	Files      api.FileLister
	AccessLogs AccessLog
	Server     api.ServerControl
	Stats      api.StatsReader
}

// MemoryStores backs every store with one MemoryStore.
func MemoryStores(m *storage.MemoryStore) Stores {
	return Stores{
		Directory:  m,
		Ledger:     m,
		Accounts:   m,
		Files:      m,
		AccessLogs: m,
		Server:     m,
		Stats:      m,
	}
}

// App holds everything a process needs. Queue is nil when no Redis address
// is configured.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Stores   Stores
	Service  *reconcile.Service
	Source   reconcile.CandidateSource
	Accounts *accounts.Manager
	Queue    *queue.Client

	closers []func()
}

// New wires an App from cfg.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	directory := a.Stores.Directory
	var invalidator accounts.Invalidator
	if cfg.QueueEnabled() && cfg.AccountCacheTTL > 0 {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("account cache disabled", zap.Error(err))
		} else {
			a.onClose(func() { _ = client.Close() })
			accountCache := cache.NewAccountCache(directory, redis.Cmdable(client), cfg.AccountCacheTTL, log.Named("cache"))
			directory = accountCache
			invalidator = accountCache
		}
	}

	src, err := source.FromConfig(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("candidate source: %w", err)
	}
	a.Source = src

	a.Service = reconcile.New(directory, a.Stores.Ledger,
		reconcile.WithLogger(log.Named("reconcile")),
		reconcile.WithAuditor(a.Stores.AccessLogs),
		reconcile.WithConcurrency(cfg.SyncConcurrency))
	a.Accounts = accounts.NewManager(a.Stores.Accounts, invalidator, log.Named("accounts"))

	if cfg.QueueEnabled() {
		a.Queue = queue.NewClient(queue.RedisOpt(cfg))
		a.onClose(func() { _ = a.Queue.Close() })
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	switch a.Config.StoreBackend {
	case config.StoreMemory:
		a.Log.Warn("using the in-memory store; nothing survives a restart")
		a.Stores = MemoryStores(storage.NewMemoryStore())
		return nil
	case config.StorePostgres:
	default:
		return fmt.Errorf("unknown store backend %q", a.Config.StoreBackend)
	}

	if a.Config.AutoMigrate {
		if err := Migrate(a.Config.DatabaseURL); err != nil {
			return err
		}
	}
	pool, err := database.Connect(ctx, a.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.onClose(pool.Close)

	accountRepo := repository.NewAccountRepository(pool)
	fileRepo := repository.NewFileRepository(pool)
	a.Stores = Stores{
		Directory:  accountRepo,
		Ledger:     fileRepo,
		Accounts:   accountRepo,
		Files:      fileRepo,
		AccessLogs: repository.NewAccessLogRepository(pool),
		Server:     repository.NewServerStatusRepository(pool),
		Stats:      repository.NewStatsRepository(pool),
	}
	return nil
}

// Migrate applies pending migrations to the database at dsn.
func Migrate(dsn string) error {
	db, err := database.OpenSQL(dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrations.MigrateUp(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// APIDeps returns the handler dependencies for the HTTP server.
func (a *App) APIDeps() api.Deps {
	deps := api.Deps{
		Sync:       a.Service,
		Source:     a.Source,
		Accounts:   a.Accounts,
		Files:      a.Stores.Files,
		AccessLogs: a.Stores.AccessLogs,
		Server:     a.Stores.Server,
		Stats:      a.Stores.Stats,
	}
	if a.Queue != nil {
		deps.Queue = a.Queue
	}
	return deps
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
