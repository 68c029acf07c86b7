package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

func newAccount(t *testing.T, m *MemoryStore, username string) *model.Account {
	t.Helper()
	a := &model.Account{Username: username, HomeDirectory: "/home/" + username, IsActive: true}
	require.NoError(t, m.CreateAccount(context.Background(), a))
	return a
}

func TestMemoryStoreAccounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	alice := newAccount(t, m, "alice")
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, model.AccountActive, alice.Status)

	err := m.CreateAccount(ctx, &model.Account{Username: "alice"})
	assert.ErrorIs(t, err, model.ErrConflict)

	got, err := m.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = m.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)

	newAccount(t, m, "carol")
	newAccount(t, m, "bob")
	updated, err := m.SetAccountActive(ctx, "carol", false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, model.AccountInactive, updated.Status)

	active, err := m.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "alice", active[0].Username)
	assert.Equal(t, "bob", active[1].Username)

	all, err := m.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = m.SetAccountActive(ctx, "ghost", false)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	newAccount(t, m, "alice")

	got, err := m.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	got.Username = "mallory"

	again, err := m.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username)
}

func TestMemoryStoreLedgerUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	alice := newAccount(t, m, "alice")
	bob := newAccount(t, m, "bob")

	ok, err := m.InsertFile(ctx, &model.TrackedFile{AccountID: alice.ID, FilePath: "/x", FileName: "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.InsertFile(ctx, &model.TrackedFile{AccountID: alice.ID, FilePath: "/x", FileName: "x"})
	require.NoError(t, err)
	assert.False(t, ok)

	written, err := m.InsertFiles(ctx, []*model.TrackedFile{
		{AccountID: alice.ID, FilePath: "/x"},
		{AccountID: alice.ID, FilePath: "/y"},
		{AccountID: alice.ID, FilePath: "/y"},
		{AccountID: bob.ID, FilePath: "/x"},
	})
	require.NoError(t, err)
	require.Len(t, written, 2)
	assert.Equal(t, alice.ID, written[0].AccountID)
	assert.Equal(t, "/y", written[0].FilePath)
	assert.Equal(t, bob.ID, written[1].AccountID)

	paths, err := m.TrackedPaths(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"/x": {}, "/y": {}}, paths)

	f, err := m.FindFile(ctx, bob.ID, "/x")
	require.NoError(t, err)
	require.NotNil(t, f)
	f, err = m.FindFile(ctx, bob.ID, "/y")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestMemoryStoreListFilesAndTouch(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	alice := newAccount(t, m, "alice")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, p := range []string{"/a", "/b", "/c"} {
		_, err := m.InsertFile(ctx, &model.TrackedFile{
			AccountID:  alice.ID,
			FilePath:   p,
			FileSizeMB: 1.5,
			UploadedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	files, err := m.ListFiles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/c", files[0].FilePath)
	assert.Equal(t, "/b", files[1].FilePath)
	assert.Equal(t, "alice", files[0].Username)

	require.NoError(t, m.TouchAccessed(ctx, alice.ID, "/a", base))
	f, err := m.FindFile(ctx, alice.ID, "/a")
	require.NoError(t, err)
	require.NotNil(t, f.LastAccessed)
	assert.True(t, base.Equal(*f.LastAccessed))

	assert.ErrorIs(t, m.TouchAccessed(ctx, alice.ID, "/missing", base), model.ErrNotFound)
}

func TestMemoryStoreAccessLogsAndStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })
	alice := newAccount(t, m, "alice")
	newAccount(t, m, "bob")
	_, err := m.SetAccountActive(ctx, "bob", false)
	require.NoError(t, err)

	_, err = m.InsertFile(ctx, &model.TrackedFile{AccountID: alice.ID, FilePath: "/a", FileSizeMB: 2})
	require.NoError(t, err)
	_, err = m.InsertFile(ctx, &model.TrackedFile{AccountID: alice.ID, FilePath: "/b", FileSizeMB: 0.5})
	require.NoError(t, err)

	require.NoError(t, m.RecordUpload(ctx, alice.ID, "/a"))
	require.NoError(t, m.RecordAccess(ctx, model.AccessLog{
		AccountID: alice.ID, Action: model.ActionLogin, Success: false, ErrorMessage: "bad password",
	}))
	require.NoError(t, m.RecordAccess(ctx, model.AccessLog{
		AccountID: alice.ID, Action: model.ActionLogout, Success: true, Timestamp: now.Add(-48 * time.Hour),
	}))

	logs, err := m.RecentAccess(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "alice", logs[0].Username)
	assert.NotEqual(t, model.ActionLogout, logs[1].Action)

	stats, err := m.DashboardStats(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, &model.DashboardStats{
		TotalUsers:     2,
		ActiveUsers:    1,
		TotalFiles:     2,
		TotalStorageMB: 2.5,
		RecentActions:  2,
		FailedActions:  1,
	}, stats)
}

func TestMemoryStoreServerActions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })

	status, err := m.ServerStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.IsRunning)

	status, err = m.ApplyServerAction(ctx, model.ServerStart)
	require.NoError(t, err)
	assert.True(t, status.IsRunning)
	require.NotNil(t, status.StartTime)
	assert.Nil(t, status.LastRestart)

	status, err = m.ApplyServerAction(ctx, model.ServerRestart)
	require.NoError(t, err)
	assert.True(t, status.IsRunning)
	require.NotNil(t, status.LastRestart)

	status, err = m.ApplyServerAction(ctx, model.ServerStop)
	require.NoError(t, err)
	assert.False(t, status.IsRunning)

	_, err = m.ApplyServerAction(ctx, model.ServerAction("explode"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}
