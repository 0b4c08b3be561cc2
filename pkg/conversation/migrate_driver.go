package conversation

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4/database"
)

// sqliteMigrateDriver is a minimal github.com/golang-migrate/migrate/v4
// database.Driver implementation over modernc.org/sqlite. golang-migrate's
// own database/sqlite3 sub-package is built on mattn/go-sqlite3 (cgo);
// this core is cgo-free per its "pure Go, no toolchain" build constraint
// (DESIGN.md), so the driver contract is implemented directly against the
// already-open *sql.DB instead of pulling in the cgo variant — same
// migrate.Migrate/iofs engine the teacher uses, a hand-written driver
// underneath it.
type sqliteMigrateDriver struct {
	db *sql.DB
}

const migrationsTable = "schema_migrations"

func newSQLiteMigrateDriver(db *sql.DB) (*sqliteMigrateDriver, error) {
	d := &sqliteMigrateDriver{db: db}
	if _, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (version INTEGER NOT NULL, dirty INTEGER NOT NULL)`, migrationsTable)); err != nil {
		return nil, fmt.Errorf("sqlite migrate driver: create version table: %w", err)
	}
	return d, nil
}

// Open is unused: the driver is constructed via newSQLiteMigrateDriver
// against an already-open connection, matching WithInstance-style usage.
func (d *sqliteMigrateDriver) Open(url string) (database.Driver, error) {
	return nil, fmt.Errorf("sqlite migrate driver: Open(url) not supported, use newSQLiteMigrateDriver")
}

func (d *sqliteMigrateDriver) Close() error { return nil } // caller owns db's lifecycle

// Lock/Unlock are no-ops: this core runs migrations from a single process
// at startup, so cross-process advisory locking isn't needed.
func (d *sqliteMigrateDriver) Lock() error   { return nil }
func (d *sqliteMigrateDriver) Unlock() error { return nil }

// Run executes one migration file's raw SQL verbatim.
func (d *sqliteMigrateDriver) Run(migration io.Reader) error {
	stmt, err := io.ReadAll(migration)
	if err != nil {
		return fmt.Errorf("sqlite migrate driver: read migration: %w", err)
	}
	if _, err := d.db.Exec(string(stmt)); err != nil {
		return fmt.Errorf("sqlite migrate driver: apply migration: %w", err)
	}
	return nil
}

func (d *sqliteMigrateDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite migrate driver: set version begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s`, migrationsTable)); err != nil {
		return fmt.Errorf("sqlite migrate driver: clear version: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`INSERT INTO %s (version, dirty) VALUES (?, ?)`, migrationsTable),
		version, boolToInt(dirty)); err != nil {
		return fmt.Errorf("sqlite migrate driver: insert version: %w", err)
	}
	return tx.Commit()
}

func (d *sqliteMigrateDriver) Version() (version int, dirty bool, err error) {
	row := d.db.QueryRow(fmt.Sprintf(`SELECT version, dirty FROM %s LIMIT 1`, migrationsTable))
	var dirtyInt int
	if err := row.Scan(&version, &dirtyInt); err != nil {
		if err == sql.ErrNoRows {
			return database.NilVersion, false, nil
		}
		return 0, false, fmt.Errorf("sqlite migrate driver: read version: %w", err)
	}
	return version, dirtyInt != 0, nil
}

func (d *sqliteMigrateDriver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	if err != nil {
		return fmt.Errorf("sqlite migrate driver: list tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()

	for _, t := range tables {
		if _, err := d.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, t)); err != nil {
			return fmt.Errorf("sqlite migrate driver: drop table %s: %w", t, err)
		}
	}
	return nil
}
