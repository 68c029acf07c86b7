package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

const insertFileSQL = `
	INSERT INTO user_files (id, ftp_user_id, file_name, file_path, file_size_mb, file_type, uploaded_at)
	VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text),$2,$3,$4,$5,$6,$7)
	ON CONFLICT (ftp_user_id, file_path) DO NOTHING`

// FileRepository is the Postgres ledger over user_files.
type FileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository constructs a repository.
func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

// FindFile returns the tracked file for (accountID, path), or nil when the
// path is not tracked.
func (r *FileRepository) FindFile(ctx context.Context, accountID, path string) (file *model.TrackedFile, err error) {
	ctx, span := startSpan(ctx, "files.find", attribute.String("account_id", accountID))
	defer func() { err = finish(span, err) }()

	var f model.TrackedFile
	row := r.pool.QueryRow(ctx, `
		SELECT id, ftp_user_id, file_name, file_path, file_size_mb, file_type, uploaded_at, last_accessed
		FROM user_files WHERE ftp_user_id=$1 AND file_path=$2
	`, accountID, path)
	if err := row.Scan(&f.ID, &f.AccountID, &f.FileName, &f.FilePath, &f.FileSizeMB, &f.FileType, &f.UploadedAt, &f.LastAccessed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select file: %w", err)
	}
	return &f, nil
}

// TrackedPaths returns every path tracked for the account in one query.
func (r *FileRepository) TrackedPaths(ctx context.Context, accountID string) (paths map[string]struct{}, err error) {
	ctx, span := startSpan(ctx, "files.tracked_paths", attribute.String("account_id", accountID))
	defer func() { err = finish(span, err) }()

	rows, err := r.pool.Query(ctx, `SELECT file_path FROM user_files WHERE ftp_user_id=$1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("select tracked paths: %w", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("select tracked paths: %w", err)
	}
	paths = make(map[string]struct{}, len(list))
	for _, p := range list {
		paths[p] = struct{}{}
	}
	span.SetAttributes(attribute.Int("paths", len(paths)))
	return paths, nil
}

// InsertFile writes f. It reports false without error when the unique
// (ftp_user_id, file_path) constraint already holds a row.
func (r *FileRepository) InsertFile(ctx context.Context, f *model.TrackedFile) (inserted bool, err error) {
	ctx, span := startSpan(ctx, "files.insert", attribute.String("account_id", f.AccountID))
	defer func() { err = finish(span, err) }()

	tag, err := r.pool.Exec(ctx, insertFileSQL, fileArgs(f)...)
	if err != nil {
		return false, fmt.Errorf("insert file: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertFiles writes files in one transaction using a pgx batch. Rows that
// are already tracked are skipped; the result holds the rows written. On
// error the transaction is rolled back and nothing is written.
func (r *FileRepository) InsertFiles(ctx context.Context, files []*model.TrackedFile) (written []*model.TrackedFile, err error) {
	ctx, span := startSpan(ctx, "files.insert_batch", attribute.Int("rows", len(files)))
	defer func() { err = finish(span, err) }()

	if len(files) == 0 {
		return nil, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, f := range files {
		batch.Queue(insertFileSQL, fileArgs(f)...)
	}
	results := tx.SendBatch(ctx, batch)
	for _, f := range files {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return nil, fmt.Errorf("insert file batch: %w", err)
		}
		if tag.RowsAffected() == 1 {
			written = append(written, f)
		}
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("insert file batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	span.SetAttributes(attribute.Int("inserted", len(written)))
	return written, nil
}

// ListFiles returns tracked files joined with their username, newest upload
// first. A limit of zero or less returns everything.
func (r *FileRepository) ListFiles(ctx context.Context, limit int) (files []model.TrackedFile, err error) {
	ctx, span := startSpan(ctx, "files.list")
	defer func() { err = finish(span, err) }()

	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, f.ftp_user_id, f.file_name, f.file_path, f.file_size_mb, f.file_type,
			f.uploaded_at, f.last_accessed, u.username
		FROM user_files f JOIN ftp_users u ON u.id = f.ftp_user_id
		ORDER BY f.uploaded_at DESC, f.file_path
		LIMIT $1
	`, lim)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	files, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TrackedFile, error) {
		var f model.TrackedFile
		err := row.Scan(&f.ID, &f.AccountID, &f.FileName, &f.FilePath, &f.FileSizeMB, &f.FileType,
			&f.UploadedAt, &f.LastAccessed, &f.Username)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// TouchAccessed records a read of a tracked file.
func (r *FileRepository) TouchAccessed(ctx context.Context, accountID, path string, at time.Time) (err error) {
	ctx, span := startSpan(ctx, "files.touch", attribute.String("account_id", accountID))
	defer func() { err = finish(span, err) }()

	tag, err := r.pool.Exec(ctx, `UPDATE user_files SET last_accessed=$3 WHERE ftp_user_id=$1 AND file_path=$2`,
		accountID, path, at.UTC())
	if err != nil {
		return fmt.Errorf("touch file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func fileArgs(f *model.TrackedFile) []any {
	return []any{f.ID, f.AccountID, f.FileName, f.FilePath, f.FileSizeMB, f.FileType, f.UploadedAt}
}
