// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/storage"
)

// ErrInjected is returned by the failing fakes below.
var ErrInjected = errors.New("injected failure")

// NewStore returns a MemoryStore holding one active account per username,
// each with home directory /home/<username>.
func NewStore(t *testing.T, usernames ...string) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	for _, name := range usernames {
		AddAccount(t, store, name, true)
	}
	return store
}

// AddAccount creates an account and returns it with its generated ID.
func AddAccount(t *testing.T, store *storage.MemoryStore, username string, active bool) model.Account {
	t.Helper()
	status := model.AccountActive
	if !active {
		status = model.AccountInactive
	}
	account := &model.Account{
		Username:       username,
		HomeDirectory:  "/home/" + username,
		QuotaMB:        1000,
		MaxConnections: 5,
		Status:         status,
		IsActive:       active,
	}
	if err := store.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("create account %s: %v", username, err)
	}
	return *account
}

// MapSource is a CandidateSource backed by a map from username to candidates.
// Usernames listed in Fail return ErrInjected.
type MapSource struct {
	mu    sync.Mutex
	Files map[string][]model.CandidateFile
	Fail  map[string]bool
	calls []string
}

// Candidates returns the configured candidates for the account.
func (s *MapSource) Candidates(_ context.Context, account model.Account) ([]model.CandidateFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, account.Username)
	if s.Fail[account.Username] {
		return nil, fmt.Errorf("list %s: %w", account.Username, ErrInjected)
	}
	out := make([]model.CandidateFile, len(s.Files[account.Username]))
	copy(out, s.Files[account.Username])
	return out, nil
}

// Calls returns the usernames Candidates was asked for.
func (s *MapSource) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Candidate builds an observation for /home/<username>/<name>.
func Candidate(username, name string, size float64) model.CandidateFile {
	return model.CandidateFile{
		Username: username,
		Filename: name,
		Filepath: "/home/" + username + "/" + name,
		Filesize: size,
	}
}

// FailingLedger wraps a MemoryStore and fails selected operations.
type FailingLedger struct {
	*storage.MemoryStore
	FailFind    bool
	FailTracked bool
	FailBatch   bool
	// FailPaths makes InsertFile fail for these paths.
	FailPaths map[string]bool
	// Conflict makes InsertFile report a lost race without writing.
	Conflict bool
}

func (l *FailingLedger) FindFile(ctx context.Context, accountID, path string) (*model.TrackedFile, error) {
	if l.FailFind {
		return nil, ErrInjected
	}
	return l.MemoryStore.FindFile(ctx, accountID, path)
}

func (l *FailingLedger) TrackedPaths(ctx context.Context, accountID string) (map[string]struct{}, error) {
	if l.FailTracked {
		return nil, ErrInjected
	}
	return l.MemoryStore.TrackedPaths(ctx, accountID)
}

func (l *FailingLedger) InsertFile(ctx context.Context, f *model.TrackedFile) (bool, error) {
	if l.FailPaths[f.FilePath] {
		return false, ErrInjected
	}
	if l.Conflict {
		return false, nil
	}
	return l.MemoryStore.InsertFile(ctx, f)
}

func (l *FailingLedger) InsertFiles(ctx context.Context, files []*model.TrackedFile) ([]*model.TrackedFile, error) {
	if l.FailBatch {
		return nil, ErrInjected
	}
	return l.MemoryStore.InsertFiles(ctx, files)
}

// RowLedger hides InsertFiles so callers see a ledger without batch writes.
type RowLedger struct {
	Store *storage.MemoryStore
}

func (l RowLedger) FindFile(ctx context.Context, accountID, path string) (*model.TrackedFile, error) {
	return l.Store.FindFile(ctx, accountID, path)
}

func (l RowLedger) TrackedPaths(ctx context.Context, accountID string) (map[string]struct{}, error) {
	return l.Store.TrackedPaths(ctx, accountID)
}

func (l RowLedger) InsertFile(ctx context.Context, f *model.TrackedFile) (bool, error) {
	return l.Store.InsertFile(ctx, f)
}

// FailingDirectory wraps a MemoryStore and fails account lookups.
type FailingDirectory struct {
	*storage.MemoryStore
	FailFind bool
	FailList bool
}

func (d *FailingDirectory) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	if d.FailFind {
		return nil, ErrInjected
	}
	return d.MemoryStore.FindByUsername(ctx, username)
}

func (d *FailingDirectory) ListActive(ctx context.Context) ([]model.Account, error) {
	if d.FailList {
		return nil, ErrInjected
	}
	return d.MemoryStore.ListActive(ctx)
}
