// Package cache puts a Redis read-through cache in front of account lookups,
// which every pushed ingest performs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
)

var tracer = otel.Tracer("ftpledger-cache")

// NewRedisClient initializes a Redis client and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// AccountCache caches FindByUsername results for ttl. Misses and Redis
// failures fall through to the wrapped directory; unknown usernames are never
// cached. ListActive always reads the directory.
type AccountCache struct {
	next   reconcile.AccountDirectory
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
}

// NewAccountCache wraps next. A ttl of zero disables caching.
func NewAccountCache(next reconcile.AccountDirectory, client redis.Cmdable, ttl time.Duration, log *zap.Logger) *AccountCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountCache{next: next, client: client, ttl: ttl, log: log}
}

// Key returns the Redis key an account is cached under.
func Key(username string) string {
	return "account:" + username
}

// cachedAccount is the stored form. It never carries the password hash.
type cachedAccount struct {
	ID             string              `json:"id"`
	Username       string              `json:"username"`
	HomeDirectory  string              `json:"home_directory"`
	QuotaMB        int                 `json:"quota_mb"`
	UsedSpaceMB    float64             `json:"used_space_mb"`
	MaxConnections int                 `json:"max_connections"`
	Status         model.AccountStatus `json:"status"`
	IsActive       bool                `json:"is_active"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// FindByUsername serves the account from Redis when present.
func (c *AccountCache) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	if c.ttl <= 0 {
		return c.next.FindByUsername(ctx, username)
	}
	ctx, span := tracer.Start(ctx, "redis.get_account", trace.WithAttributes(attribute.String("username", username)))
	defer span.End()

	if account, ok := c.get(ctx, username); ok {
		span.SetAttributes(attribute.String("cache_status", "hit"))
		return account, nil
	}
	span.SetAttributes(attribute.String("cache_status", "miss"))

	account, err := c.next.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	c.set(ctx, account)
	return account, nil
}

// ListActive is passed straight to the directory.
func (c *AccountCache) ListActive(ctx context.Context) ([]model.Account, error) {
	return c.next.ListActive(ctx)
}

// Invalidate drops the cached entry for username.
func (c *AccountCache) Invalidate(ctx context.Context, username string) error {
	if err := c.client.Del(ctx, Key(username)).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", username, err)
	}
	return nil
}

func (c *AccountCache) get(ctx context.Context, username string) (*model.Account, bool) {
	data, err := c.client.Get(ctx, Key(username)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("account cache read failed", zap.String("username", username), zap.Error(err))
		}
		return nil, false
	}
	var cached cachedAccount
	if err := json.Unmarshal(data, &cached); err != nil {
		c.log.Warn("account cache entry unreadable", zap.String("username", username), zap.Error(err))
		return nil, false
	}
	return &model.Account{
		ID:             cached.ID,
		Username:       cached.Username,
		HomeDirectory:  cached.HomeDirectory,
		QuotaMB:        cached.QuotaMB,
		UsedSpaceMB:    cached.UsedSpaceMB,
		MaxConnections: cached.MaxConnections,
		Status:         cached.Status,
		IsActive:       cached.IsActive,
		CreatedAt:      cached.CreatedAt,
		UpdatedAt:      cached.UpdatedAt,
	}, true
}

func (c *AccountCache) set(ctx context.Context, a *model.Account) {
	data, err := json.Marshal(cachedAccount{
		ID:             a.ID,
		Username:       a.Username,
		HomeDirectory:  a.HomeDirectory,
		QuotaMB:        a.QuotaMB,
		UsedSpaceMB:    a.UsedSpaceMB,
		MaxConnections: a.MaxConnections,
		Status:         a.Status,
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, Key(a.Username), data, c.ttl).Err(); err != nil {
		c.log.Warn("account cache write failed", zap.String("username", a.Username), zap.Error(err))
	}
}
