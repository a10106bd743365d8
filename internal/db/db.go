// Package db opens the SQLite database shared by the account and writ stores.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with the application schema applied.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory database for tests. The pool is limited
// to one connection because every SQLite connection to ":memory:" gets its
// own empty database.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Path returns the database file path, or ":memory:".
func (d *DB) Path() string { return d.path }

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. Timestamps are unix seconds.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    email_md5 TEXT NOT NULL DEFAULT '',
    username TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    verifier TEXT,
    roles TEXT NOT NULL DEFAULT '[]',
    subscriber INTEGER NOT NULL DEFAULT 0,
    created INTEGER NOT NULL,
    logins TEXT NOT NULL DEFAULT '[]',
    auths TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_users_verifier ON users(verifier);

CREATE TABLE IF NOT EXISTS writs (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL UNIQUE,
    slug TEXT NOT NULL UNIQUE,
    author_id TEXT NOT NULL REFERENCES users(id),
    author TEXT NOT NULL,
    markdown TEXT NOT NULL,
    content TEXT NOT NULL,
    injection TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    edits TEXT NOT NULL DEFAULT '[]',
    created INTEGER NOT NULL,
    views INTEGER NOT NULL DEFAULT 0,
    public INTEGER NOT NULL DEFAULT 0,
    members_only INTEGER NOT NULL DEFAULT 0,
    no_comments INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_writs_created ON writs(created);
CREATE INDEX IF NOT EXISTS idx_writs_author ON writs(author);

CREATE TABLE IF NOT EXISTS writ_tags (
    writ_id TEXT NOT NULL REFERENCES writs(id) ON DELETE CASCADE,
    tag TEXT NOT NULL,
    PRIMARY KEY (writ_id, tag)
);

CREATE INDEX IF NOT EXISTS idx_writ_tags_tag ON writ_tags(tag);
`
