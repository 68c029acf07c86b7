package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/testutil"
)

type countingDirectory struct {
	*testutil.FailingDirectory
	finds int
}

func (d *countingDirectory) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	d.finds++
	return d.FailingDirectory.FindByUsername(ctx, username)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "account:alice", Key("alice"))
}

func TestAccountCacheFallsThroughWhenRedisIsDown(t *testing.T) {
	store := testutil.NewStore(t, "alice")
	dir := &countingDirectory{FailingDirectory: &testutil.FailingDirectory{MemoryStore: store}}
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	c := NewAccountCache(dir, client, time.Minute, nil)

	for i := 0; i < 2; i++ {
		a, err := c.FindByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", a.Username)
	}
	assert.Equal(t, 2, dir.finds)

	_, err := c.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Error(t, c.Invalidate(context.Background(), "alice"))
}

func TestAccountCacheDisabledWithZeroTTL(t *testing.T) {
	store := testutil.NewStore(t, "alice")
	dir := &countingDirectory{FailingDirectory: &testutil.FailingDirectory{MemoryStore: store}}
	c := NewAccountCache(dir, nil, 0, nil)

	_, err := c.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, dir.finds)

	active, err := c.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
