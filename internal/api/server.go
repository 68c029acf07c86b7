// Package api exposes the /sync endpoints the FTP event notifier and the
// dashboard call, plus the dashboard's administrative reads and writes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/accounts"
	"github.com/dharsanguruparan/ftpledger/internal/config"
	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
)

// Syncer runs ingest and batch reconciliation.
type Syncer interface {
	Ingest(ctx context.Context, obs model.CandidateFile) (*model.IngestResult, error)
	ReconcileActive(ctx context.Context, source reconcile.CandidateSource) (*model.SyncSummary, error)
	Touch(ctx context.Context, obs model.CandidateFile) error
}

// Enqueuer hands work to the background worker.
type Enqueuer interface {
	EnqueueIngest(ctx context.Context, obs model.CandidateFile) (string, error)
	EnqueueReconcile(ctx context.Context) (string, error)
}

// AccountAdmin manages FTP accounts.
type AccountAdmin interface {
	Create(ctx context.Context, req accounts.NewAccount) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Deactivate(ctx context.Context, username string) (*model.Account, error)
}

// FileLister lists tracked files.
type FileLister interface {
	ListFiles(ctx context.Context, limit int) ([]model.TrackedFile, error)
}

// AccessLogReader returns recent access log entries.
type AccessLogReader interface {
	RecentAccess(ctx context.Context, limit int) ([]model.AccessLog, error)
}

// ServerControl reads and changes the server record.
type ServerControl interface {
	ServerStatus(ctx context.Context) (*model.ServerStatus, error)
	ApplyServerAction(ctx context.Context, action model.ServerAction) (*model.ServerStatus, error)
}

// StatsReader computes dashboard counters.
type StatsReader interface {
	DashboardStats(ctx context.Context, since time.Time) (*model.DashboardStats, error)
}

// Deps are the collaborators behind the HTTP handlers. Queue may be nil, in
// which case the async endpoints answer 503.
type Deps struct {
	Sync       Syncer
	Source     reconcile.CandidateSource
	Queue      Enqueuer
	Accounts   AccountAdmin
	Files      FileLister
	AccessLogs AccessLogReader
	Server     ServerControl
	Stats      StatsReader
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server exposes the HTTP endpoints.
type Server struct {
	cfg    *config.Config
	deps   Deps
	log    *zap.Logger
	server *http.Server
	once   sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps, log *zap.Logger) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, deps: deps, log: log}
}

// Handler returns the routed handler wrapped in CORS and request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	s.route(r, "/healthz", "GET /healthz", s.handleHealth, http.MethodGet)
	// /sync answers every method itself so unknown ones get the JSON 405.
	s.route(r, "/sync", "/sync", s.handleSync)
	s.route(r, "/sync/async", "POST /sync/async", s.handleSyncAsync, http.MethodPost)
	s.route(r, "/sync/events", "POST /sync/events", s.handleSyncEvent, http.MethodPost)

	s.route(r, "/accounts", "GET /accounts", s.handleListAccounts, http.MethodGet)
	s.route(r, "/accounts", "POST /accounts", s.handleCreateAccount, http.MethodPost)
	s.route(r, "/accounts/{username}/deactivate", "POST /accounts/{username}/deactivate", s.handleDeactivateAccount, http.MethodPost)
	s.route(r, "/files", "GET /files", s.handleListFiles, http.MethodGet)
	s.route(r, "/files/access", "POST /files/access", s.handleFileAccess, http.MethodPost)
	s.route(r, "/access-logs", "GET /access-logs", s.handleAccessLogs, http.MethodGet)
	s.route(r, "/server-status", "GET /server-status", s.handleServerStatus, http.MethodGet)
	s.route(r, "/server-status/{action}", "POST /server-status/{action}", s.handleServerAction, http.MethodPost)
	s.route(r, "/stats", "GET /stats", s.handleStats, http.MethodGet)

	return corsMiddleware(s.loggingMiddleware(r))
}

func (s *Server) route(r *mux.Router, path, name string, fn http.HandlerFunc, methods ...string) {
	route := r.Handle(path, otelhttp.NewHandler(fn, name))
	if len(methods) > 0 {
		route.Methods(methods...)
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.Info("api listening", zap.String("address", s.cfg.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
