package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/storage"
)

type recordingInvalidator struct {
	names []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, username string) error {
	r.names = append(r.names, username)
	return nil
}

func newManager() (*Manager, *storage.MemoryStore, *recordingInvalidator) {
	store := storage.NewMemoryStore()
	inv := &recordingInvalidator{}
	m := NewManager(store, inv, nil)
	m.SetCost(bcrypt.MinCost)
	return m, store, inv
}

func TestPrepareDefaults(t *testing.T) {
	m, _, _ := newManager()

	a, err := m.Prepare(NewAccount{Username: " alice ", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Username)
	assert.Equal(t, "/home/ftp/alice", a.HomeDirectory)
	assert.Equal(t, DefaultQuotaMB, a.QuotaMB)
	assert.Equal(t, DefaultMaxConnections, a.MaxConnections)
	assert.Equal(t, model.AccountActive, a.Status)
	assert.True(t, a.IsActive)
	assert.NotEqual(t, "s3cret", a.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("s3cret")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("wrong")))
}

func TestPrepareKeepsExplicitValues(t *testing.T) {
	m, _, _ := newManager()

	a, err := m.Prepare(NewAccount{Username: "bob", Password: "pw", HomeDirectory: "/srv/bob", QuotaMB: 50, MaxConnections: 2})
	require.NoError(t, err)
	assert.Equal(t, "/srv/bob", a.HomeDirectory)
	assert.Equal(t, 50, a.QuotaMB)
	assert.Equal(t, 2, a.MaxConnections)
}

func TestPrepareRejects(t *testing.T) {
	m, _, _ := newManager()
	tests := []struct {
		name string
		req  NewAccount
	}{
		{"empty username", NewAccount{Password: "pw"}},
		{"slash in username", NewAccount{Username: "a/b", Password: "pw"}},
		{"dot prefix", NewAccount{Username: ".hidden", Password: "pw"}},
		{"missing password", NewAccount{Username: "alice"}},
		{"negative quota", NewAccount{Username: "alice", Password: "pw", QuotaMB: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Prepare(tt.req)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestCreateListDeactivate(t *testing.T) {
	ctx := context.Background()
	m, store, inv := newManager()

	a, err := m.Create(ctx, NewAccount{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	_, err = m.Create(ctx, NewAccount{Username: "alice", Password: "pw"})
	assert.ErrorIs(t, err, model.ErrConflict)

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	updated, err := m.Deactivate(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = m.Deactivate(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.Equal(t, []string{"alice", "alice"}, inv.names)
}
