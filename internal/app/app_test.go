package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/accounts"
	"github.com/dharsanguruparan/ftpledger/internal/api"
	"github.com/dharsanguruparan/ftpledger/internal/config"
	"github.com/dharsanguruparan/ftpledger/internal/source"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Address:         ":0",
		MaxBodyBytes:    1 << 20,
		StoreBackend:    config.StoreMemory,
		SyncSource:      config.SourceStatic,
		SyncConcurrency: 2,
	}
}

func TestNewMemoryApp(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.Queue)
	assert.IsType(t, source.Static{}, a.Source)
	assert.Nil(t, a.APIDeps().Queue)

	_, err = a.Accounts.Create(ctx, accounts.NewAccount{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	summary, err := a.Service.ReconcileActive(ctx, a.Source)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.NewFiles())
}

func TestMemoryAppServesSync(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	_, err = a.Accounts.Create(ctx, accounts.NewAccount{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	h := api.New(cfg, a.APIDeps(), zap.NewNop()).Handler()
	req := httptest.NewRequest(http.MethodPost, "/sync",
		strings.NewReader(`{"username":"alice","filename":"a.mp3","filepath":"/home/ftp/alice/a.mp3","filesize":10}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	logs, err := a.Stores.AccessLogs.RecentAccess(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "sqlite"
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
