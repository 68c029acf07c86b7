// Package storage contains the in-memory persistence layer used by tests and
// by STORE_BACKEND=memory. It honours the same uniqueness rules as the
// Postgres schema.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

type fileKey struct {
	accountID string
	path      string
}

// MemoryStore keeps accounts, tracked files, access logs and the server
// record in maps guarded by one RWMutex. Readers share the lock; every write
// takes it exclusively.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*model.Account
	files    map[string]*model.TrackedFile
	byPath   map[fileKey]string
	logs     []model.AccessLog
	server   model.ServerStatus
	now      func() time.Time
}

// NewMemoryStore constructs a MemoryStore with a stopped default server.
func NewMemoryStore() *MemoryStore {
	now := time.Now().UTC()
	return &MemoryStore{
		accounts: make(map[string]*model.Account),
		files:    make(map[string]*model.TrackedFile),
		byPath:   make(map[fileKey]string),
		server: model.ServerStatus{
			ID:             uuid.NewString(),
			ServerName:     "vsftpd",
			Port:           21,
			MaxConnections: 100,
			UpdatedAt:      now,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for timestamps the store fills in.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Account operations

// CreateAccount stores a new account. Usernames are unique.
func (m *MemoryStore) CreateAccount(_ context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == account.Username {
			return model.ErrConflict
		}
	}
	now := m.now()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Status == "" {
		account.Status = model.AccountActive
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	stored := *account
	m.accounts[stored.ID] = &stored
	return nil
}

// FindByUsername returns a copy of the single account with that login name.
func (m *MemoryStore) FindByUsername(_ context.Context, username string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var match *model.Account
	for _, a := range m.accounts {
		if a.Username != username {
			continue
		}
		if match != nil {
			return nil, model.ErrNotFound
		}
		match = a
	}
	if match == nil {
		return nil, model.ErrNotFound
	}
	dup := *match
	return &dup, nil
}

// ListActive returns active accounts ordered by username.
func (m *MemoryStore) ListActive(ctx context.Context) ([]model.Account, error) {
	all, err := m.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, a := range all {
		if a.IsActive {
			active = append(active, a)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Username < active[j].Username })
	return active, nil
}

// ListAccounts returns every account, newest first.
func (m *MemoryStore) ListAccounts(_ context.Context) ([]model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// SetAccountActive flips the active flag and the matching status.
func (m *MemoryStore) SetAccountActive(_ context.Context, username string, active bool) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username != username {
			continue
		}
		a.IsActive = active
		a.Status = model.AccountInactive
		if active {
			a.Status = model.AccountActive
		}
		a.UpdatedAt = m.now()
		dup := *a
		return &dup, nil
	}
	return nil, model.ErrNotFound
}

// Ledger operations

// FindFile returns the tracked file for (accountID, path) or nil.
func (m *MemoryStore) FindFile(_ context.Context, accountID, path string) (*model.TrackedFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPath[fileKey{accountID, path}]
	if !ok {
		return nil, nil
	}
	dup := *m.files[id]
	return &dup, nil
}

// TrackedPaths returns the set of paths tracked for the account.
func (m *MemoryStore) TrackedPaths(_ context.Context, accountID string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make(map[string]struct{})
	for key := range m.byPath {
		if key.accountID == accountID {
			paths[key.path] = struct{}{}
		}
	}
	return paths, nil
}

// InsertFile stores f unless its (account, path) is already tracked.
func (m *MemoryStore) InsertFile(_ context.Context, f *model.TrackedFile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(f), nil
}

// InsertFiles stores every file whose (account, path) is not yet tracked and
// returns the ones written.
func (m *MemoryStore) InsertFiles(_ context.Context, files []*model.TrackedFile) ([]*model.TrackedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var written []*model.TrackedFile
	for _, f := range files {
		if m.insertLocked(f) {
			written = append(written, f)
		}
	}
	return written, nil
}

func (m *MemoryStore) insertLocked(f *model.TrackedFile) bool {
	key := fileKey{f.AccountID, f.FilePath}
	if _, exists := m.byPath[key]; exists {
		return false
	}
	stored := *f
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.UploadedAt.IsZero() {
		stored.UploadedAt = m.now()
	}
	m.files[stored.ID] = &stored
	m.byPath[key] = stored.ID
	return true
}

// ListFiles returns tracked files with their username, newest upload first.
// A limit of zero or less returns everything.
func (m *MemoryStore) ListFiles(_ context.Context, limit int) ([]model.TrackedFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.TrackedFile, 0, len(m.files))
	for _, f := range m.files {
		row := *f
		if a, ok := m.accounts[f.AccountID]; ok {
			row.Username = a.Username
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].FilePath < out[j].FilePath
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TouchAccessed sets last_accessed for a tracked file.
func (m *MemoryStore) TouchAccessed(_ context.Context, accountID, path string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPath[fileKey{accountID, path}]
	if !ok {
		return model.ErrNotFound
	}
	accessed := at.UTC()
	m.files[id].LastAccessed = &accessed
	return nil
}

// Access log operations

// RecordAccess appends an access log entry.
func (m *MemoryStore) RecordAccess(_ context.Context, entry model.AccessLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.now()
	}
	m.logs = append(m.logs, entry)
	return nil
}

// RecordUpload logs a successful upload for a newly tracked file.
func (m *MemoryStore) RecordUpload(ctx context.Context, accountID, path string) error {
	return m.RecordAccess(ctx, model.AccessLog{
		AccountID: accountID,
		Action:    model.ActionUpload,
		FilePath:  path,
		Success:   true,
	})
}

// RecentAccess returns up to limit entries, newest first.
func (m *MemoryStore) RecentAccess(_ context.Context, limit int) ([]model.AccessLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.AccessLog, 0, len(m.logs))
	for i := len(m.logs) - 1; i >= 0; i-- {
		entry := m.logs[i]
		if a, ok := m.accounts[entry.AccountID]; ok {
			entry.Username = a.Username
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Server status operations

// ServerStatus returns the server record.
func (m *MemoryStore) ServerStatus(_ context.Context) (*model.ServerStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dup := m.server
	return &dup, nil
}

// ApplyServerAction starts, stops or restarts the server record.
func (m *MemoryStore) ApplyServerAction(_ context.Context, action model.ServerAction) (*model.ServerStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	switch action {
	case model.ServerStart:
		m.server.IsRunning = true
		m.server.StartTime = &now
	case model.ServerStop:
		m.server.IsRunning = false
		m.server.CurrentConnections = 0
	case model.ServerRestart:
		m.server.IsRunning = true
		m.server.CurrentConnections = 0
		m.server.StartTime = &now
		m.server.LastRestart = &now
	default:
		return nil, model.ErrNotFound
	}
	m.server.UpdatedAt = now
	dup := m.server
	return &dup, nil
}

// Stats

// DashboardStats computes the dashboard counters; actions are counted from
// since onwards.
func (m *MemoryStore) DashboardStats(_ context.Context, since time.Time) (*model.DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &model.DashboardStats{
		TotalUsers: len(m.accounts),
		TotalFiles: len(m.files),
	}
	for _, a := range m.accounts {
		if a.IsActive && a.Status == model.AccountActive {
			stats.ActiveUsers++
		}
	}
	for _, f := range m.files {
		stats.TotalStorageMB += f.FileSizeMB
	}
	for _, entry := range m.logs {
		if entry.Timestamp.Before(since) {
			continue
		}
		stats.RecentActions++
		if !entry.Success {
			stats.FailedActions++
		}
	}
	return stats, nil
}
