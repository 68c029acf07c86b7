// Package accounts implements the administrative account operations: create
// with a hashed password, list and deactivate.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

const (
	DefaultQuotaMB        = 1000
	DefaultMaxConnections = 5
	// DefaultHomeRoot is prefixed to the username when no home directory is
	// given.
	DefaultHomeRoot = "/home/ftp"
)

// ErrInvalid marks a rejected create request.
var ErrInvalid = errors.New("invalid account")

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{0,31}$`)

// NewAccount is the create request accepted by the API and the CLI.
type NewAccount struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	HomeDirectory  string `json:"home_directory"`
	QuotaMB        int    `json:"quota_mb"`
	MaxConnections int    `json:"max_connections"`
}

// Store persists accounts.
type Store interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	ListAccounts(ctx context.Context) ([]model.Account, error)
	SetAccountActive(ctx context.Context, username string, active bool) (*model.Account, error)
}

// Invalidator drops cached lookups for a username.
type Invalidator interface {
	Invalidate(ctx context.Context, username string) error
}

// Manager runs account administration against a Store.
type Manager struct {
	store Store
	cache Invalidator
	cost  int
	log   *zap.Logger
}

// NewManager creates a Manager. cache may be nil.
func NewManager(store Store, cache Invalidator, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, cache: cache, cost: bcrypt.DefaultCost, log: log}
}

// SetCost changes the bcrypt cost; out-of-range values are ignored.
func (m *Manager) SetCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		m.cost = cost
	}
}

// Prepare validates req and turns it into an active account with a bcrypt
// password hash and defaults filled in.
func (m *Manager) Prepare(req NewAccount) (*model.Account, error) {
	username := strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 1-32 letters, digits, '.', '_' or '-'", ErrInvalid)
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalid)
	}
	if req.QuotaMB < 0 || req.MaxConnections < 0 {
		return nil, fmt.Errorf("%w: quota and max connections must not be negative", ErrInvalid)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), m.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	home := strings.TrimSpace(req.HomeDirectory)
	if home == "" {
		home = DefaultHomeRoot + "/" + username
	}
	quota := req.QuotaMB
	if quota == 0 {
		quota = DefaultQuotaMB
	}
	maxConns := req.MaxConnections
	if maxConns == 0 {
		maxConns = DefaultMaxConnections
	}
	return &model.Account{
		Username:       username,
		PasswordHash:   string(hash),
		HomeDirectory:  home,
		QuotaMB:        quota,
		MaxConnections: maxConns,
		Status:         model.AccountActive,
		IsActive:       true,
	}, nil
}

// Create stores a new account. A taken username is model.ErrConflict.
func (m *Manager) Create(ctx context.Context, req NewAccount) (*model.Account, error) {
	account, err := m.Prepare(req)
	if err != nil {
		return nil, err
	}
	if err := m.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	m.invalidate(ctx, account.Username)
	m.log.Info("account created", zap.String("username", account.Username), zap.String("home", account.HomeDirectory))
	return account, nil
}

// List returns every account.
func (m *Manager) List(ctx context.Context) ([]model.Account, error) {
	return m.store.ListAccounts(ctx)
}

// Deactivate marks the account inactive. Its files stay tracked.
func (m *Manager) Deactivate(ctx context.Context, username string) (*model.Account, error) {
	account, err := m.store.SetAccountActive(ctx, username, false)
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, username)
	m.log.Info("account deactivated", zap.String("username", username))
	return account, nil
}

func (m *Manager) invalidate(ctx context.Context, username string) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx, username); err != nil {
		m.log.Warn("invalidate account cache", zap.String("username", username), zap.Error(err))
	}
}
