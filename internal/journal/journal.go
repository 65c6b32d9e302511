package journal

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (runs, events)
// 1 - Added index on events(run_id, kind)
const currentSchemaVersion = 1

var (
	// ErrNotJournal is returned by OpenReadOnly for a database without the
	// journal tables.
	ErrNotJournal = errors.New("not a trace journal")

	// ErrNewerSchema is returned by OpenReadOnly for a journal migrated
	// past currentSchemaVersion.
	ErrNewerSchema = errors.New("journal schema is newer than supported")
)

// Journal is durable storage for trace events.
//
// A journal is written by one recorder at a time and read by "sdb trace",
// possibly while a chat is still recording. WAL mode lets those readers
// proceed without blocking the writer.
type Journal struct {
	db       *sql.DB
	readOnly bool
}

// Open creates or opens a journal at path for recording. ":memory:" opens
// a private in-memory journal that lives until Close.
//
// The schema is created and migrated on open; opening an existing journal
// again is safe.
func Open(path string) (*Journal, error) {
	j, err := open(path, false)
	if err != nil {
		return nil, err
	}
	if err := applySchema(j.db); err != nil {
		j.db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return j, nil
}

// OpenReadOnly opens an existing journal for reading. Unlike Open it never
// creates a file or migrates one, and it fails if path does not hold a
// journal or holds one written by a newer schema.
func OpenReadOnly(path string) (*Journal, error) {
	j, err := open(path, true)
	if err != nil {
		return nil, err
	}
	if err := checkReadable(j.db); err != nil {
		j.db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return j, nil
}

func open(path string, readOnly bool) (*Journal, error) {
	db, err := sql.Open("sqlite3", dsn(path, readOnly))
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	// One connection: recorders are the only writer, and an in-memory
	// journal exists only inside its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Journal{db: db, readOnly: readOnly}, nil
}

// dsn builds a go-sqlite3 URI. Connection pragmas are passed as driver
// parameters so they hold for every connection the pool opens.
func dsn(path string, readOnly bool) string {
	q := url.Values{}
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	if readOnly {
		q.Set("mode", "ro")
	} else {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	if path == ":memory:" {
		return "file::memory:?" + q.Encode()
	}
	return "file:" + path + "?" + q.Encode()
}

// checkReadable verifies that db holds a journal this build can read.
func checkReadable(db *sql.DB) error {
	var tables int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('runs', 'events')
	`).Scan(&tables)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if tables != 2 {
		return ErrNotJournal
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("%w: version %d, this build reads up to %d", ErrNewerSchema, version, currentSchemaVersion)
	}
	return nil
}

// Close checkpoints a writable journal into its main file and closes it.
// Closing twice is a no-op.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	db := j.db
	j.db = nil
	if !j.readOnly {
		// Folds the WAL back into the main file. Best effort.
		_, _ = db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return db.Close()
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the (run_id, kind) index used by CountEvents.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_run_kind
		ON events(run_id, kind)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// pragma returns the current value of a pragma. Used by tests.
func (j *Journal) pragma(name string) (string, error) {
	var value string
	if err := j.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
