// Package migrations applies the embedded SQL schema with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// ErrNeedsMigration is returned by CheckMigrationStatus for a database that
// has never been migrated.
var ErrNeedsMigration = errors.New("database has no schema version (needs migration)")

// Status describes where a database stands relative to the embedded files.
type Status struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// CheckMigrationStatus verifies that the database schema is up-to-date.
// The returned Status is filled in whenever the version could be read, even
// when the error reports a mismatch.
func CheckMigrationStatus(db *sql.DB) (*Status, error) {
	m, err := newMigrate(db)
	if err != nil {
		return nil, err
	}
	// m is not closed: that would close db, which the caller owns.

	latest, err := LatestVersion()
	if err != nil {
		return nil, err
	}
	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return &Status{Latest: latest}, ErrNeedsMigration
		}
		return nil, fmt.Errorf("read database version: %w", err)
	}
	st := &Status{Version: version, Latest: latest, Dirty: dirty}

	switch {
	case dirty:
		return st, fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	case version < latest:
		return st, fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			version, latest, latest-version)
	case version > latest:
		return st, fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			version, latest)
	}
	return st, nil
}

// MigrateUp runs all pending migrations. An up-to-date database is not an
// error.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// LatestVersion returns the highest version among the embedded files.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("read migration files: %w", err)
	}
	defer src.Close()
	return latestVersion(src)
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("create source driver: %w", err)
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next fails once there is nothing after version.
			return version, nil
		}
		version = next
	}
}
