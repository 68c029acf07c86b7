package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

const accountColumns = `id, username, password_hash, home_directory, quota_mb, used_space_mb,
	max_connections, status::text, is_active, created_at, updated_at`

// AccountRepository reads and writes ftp_users.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository constructs a repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// FindByUsername returns the account with that login name. Anything other
// than exactly one match is model.ErrNotFound.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (account *model.Account, err error) {
	ctx, span := startSpan(ctx, "accounts.find_by_username", attribute.String("username", username))
	defer func() { err = finish(span, err) }()

	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM ftp_users WHERE username=$1 LIMIT 2`, username)
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}
	accounts, err := pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return nil, fmt.Errorf("select account: %w", err)
	}
	if len(accounts) != 1 {
		return nil, model.ErrNotFound
	}
	return &accounts[0], nil
}

// ListActive returns active accounts ordered by username.
func (r *AccountRepository) ListActive(ctx context.Context) (accounts []model.Account, err error) {
	ctx, span := startSpan(ctx, "accounts.list_active")
	defer func() { err = finish(span, err) }()

	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM ftp_users WHERE is_active ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	accounts, err = pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	span.SetAttributes(attribute.Int("accounts", len(accounts)))
	return accounts, nil
}

// ListAccounts returns every account, newest first.
func (r *AccountRepository) ListAccounts(ctx context.Context) (accounts []model.Account, err error) {
	ctx, span := startSpan(ctx, "accounts.list")
	defer func() { err = finish(span, err) }()

	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM ftp_users ORDER BY created_at DESC, username`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts, err = pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// CreateAccount inserts account and fills in its generated fields. A taken
// username is model.ErrConflict.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *model.Account) (err error) {
	ctx, span := startSpan(ctx, "accounts.create", attribute.String("username", account.Username))
	defer func() { err = finish(span, err) }()

	if account.Status == "" {
		account.Status = model.AccountActive
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO ftp_users (username, password_hash, home_directory, quota_mb, max_connections, status, is_active)
		VALUES ($1,$2,$3,$4,$5,$6::user_status,$7)
		RETURNING id, used_space_mb, created_at, updated_at
	`, account.Username, account.PasswordHash, account.HomeDirectory, account.QuotaMB,
		account.MaxConnections, string(account.Status), account.IsActive)
	if err := row.Scan(&account.ID, &account.UsedSpaceMB, &account.CreatedAt, &account.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return model.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// SetAccountActive flips is_active and the matching status.
func (r *AccountRepository) SetAccountActive(ctx context.Context, username string, active bool) (account *model.Account, err error) {
	ctx, span := startSpan(ctx, "accounts.set_active",
		attribute.String("username", username), attribute.Bool("active", active))
	defer func() { err = finish(span, err) }()

	status := model.AccountInactive
	if active {
		status = model.AccountActive
	}
	rows, err := r.pool.Query(ctx, `
		UPDATE ftp_users SET is_active=$2, status=$3::user_status, updated_at=now()
		WHERE username=$1
		RETURNING `+accountColumns, username, active, string(status))
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	updated, err := pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	if len(updated) == 0 {
		return nil, model.ErrNotFound
	}
	return &updated[0], nil
}

func scanAccount(row pgx.CollectableRow) (model.Account, error) {
	var (
		a      model.Account
		status string
	)
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.HomeDirectory, &a.QuotaMB, &a.UsedSpaceMB,
		&a.MaxConnections, &status, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	a.Status = model.AccountStatus(status)
	return a, err
}
