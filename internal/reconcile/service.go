// Package reconcile keeps the file ledger in line with what exists on the FTP
// side. Ingest tracks a single pushed observation; ReconcileBatch compares a
// candidate source against the ledger for many accounts at once. Neither
// keeps state between calls: every decision is re-derived from the ledger.
package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

// AccountDirectory resolves FTP login names to accounts.
type AccountDirectory interface {
	// FindByUsername returns model.ErrNotFound unless exactly one account
	// carries the login name.
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	// ListActive returns the active accounts ordered by username.
	ListActive(ctx context.Context) ([]model.Account, error)
}

// Ledger is the persistent set of tracked files.
type Ledger interface {
	// FindFile returns nil, nil when (accountID, path) is not tracked.
	FindFile(ctx context.Context, accountID, path string) (*model.TrackedFile, error)
	// TrackedPaths returns every tracked path of the account in one read.
	TrackedPaths(ctx context.Context, accountID string) (map[string]struct{}, error)
	// InsertFile writes f unless (f.AccountID, f.FilePath) is already tracked,
	// in which case it reports false and writes nothing.
	InsertFile(ctx context.Context, f *model.TrackedFile) (bool, error)
}

// BatchLedger is implemented by ledgers that can write many rows in one
// request. Rows that are already tracked are skipped; the result holds the
// rows actually written. On error nothing is written.
type BatchLedger interface {
	InsertFiles(ctx context.Context, files []*model.TrackedFile) ([]*model.TrackedFile, error)
}

// AccessTracker is implemented by ledgers that keep last_accessed.
type AccessTracker interface {
	// TouchAccessed returns model.ErrNotFound when the path is not tracked.
	TouchAccessed(ctx context.Context, accountID, path string, at time.Time) error
}

// CandidateSource lists everything currently present for one account.
type CandidateSource interface {
	Candidates(ctx context.Context, account model.Account) ([]model.CandidateFile, error)
}

// Auditor records an upload access-log entry for every newly tracked file,
// whether it came from Ingest or from a batch.
type Auditor interface {
	RecordUpload(ctx context.Context, accountID, path string) error
}

// Service runs ingest and batch reconciliation against a ledger.
type Service struct {
	accounts    AccountDirectory
	ledger      Ledger
	auditor     Auditor
	clock       Clock
	ids         IDGenerator
	log         *zap.Logger
	concurrency int
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock replaces the wall clock used for uploaded_at defaults.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator replaces the UUID generator used for new rows.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// WithAuditor records an upload access log for every newly tracked file.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithConcurrency bounds how many accounts a batch processes at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a Service over the given account directory and ledger.
func New(accounts AccountDirectory, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		accounts:    accounts,
		ledger:      ledger,
		clock:       RealClock{},
		ids:         UUIDGenerator{},
		log:         zap.NewNop(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newTrackedFile builds the ledger row for an observation owned by account.
func (s *Service) newTrackedFile(account *model.Account, obs model.CandidateFile) *model.TrackedFile {
	uploaded := s.clock.Now()
	if obs.Timestamp != nil && !obs.Timestamp.IsZero() {
		uploaded = *obs.Timestamp
	}
	return &model.TrackedFile{
		ID:         s.ids.New(),
		AccountID:  account.ID,
		FileName:   obs.Filename,
		FilePath:   obs.Filepath,
		FileSizeMB: BytesToMB(obs.Filesize),
		FileType:   Classify(obs.Filename),
		UploadedAt: uploaded.UTC(),
	}
}

func (s *Service) audit(ctx context.Context, f *model.TrackedFile) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.RecordUpload(ctx, f.AccountID, f.FilePath); err != nil {
		s.log.Warn("record upload access log",
			zap.String("account_id", f.AccountID),
			zap.String("path", f.FilePath),
			zap.Error(err))
	}
}
