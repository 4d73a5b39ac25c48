package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // remote libsql/Turso driver
	_ "modernc.org/sqlite"
)

// Storage is a durable counter, list and set store backed by SQLite.
type Storage struct {
	db           *sql.DB
	driver       string
	path         string
	writeMu      sync.Mutex
	queryTimeout time.Duration

	// Prepared statements for the per-visit hot path
	stmtIncr      *sql.Stmt
	stmtGet       *sql.Stmt
	stmtPush      *sql.Stmt
	stmtTrim      *sql.Stmt
	stmtAddMember *sql.Stmt
}

// Options configures the Storage instance.
type Options struct {
	MaxConnections int
	QueryTimeout   time.Duration
}

// New creates a new Storage instance with default options.
// For custom options, use NewWithOptions.
func New(dbPath string) (*Storage, error) {
	return NewWithOptions(dbPath, Options{
		MaxConnections: 1,
		QueryTimeout:   30 * time.Second,
	})
}

// NewWithOptions opens the database at dbPath. libsql:// and wss:// URLs are
// served by the libsql driver; anything else is a local SQLite file.
func NewWithOptions(dbPath string, opts Options) (*Storage, error) {
	driver, dsn := "sqlite", dbPath
	if isRemote(dbPath) {
		driver = "libsql"
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = dbPath + "?_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	maxConns := opts.MaxConnections
	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	queryTimeout := opts.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}

	s := &Storage{
		db:           db,
		driver:       driver,
		path:         dbPath,
		queryTimeout: queryTimeout,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func isRemote(dbPath string) bool {
	return strings.HasPrefix(dbPath, "libsql://") || strings.HasPrefix(dbPath, "wss://")
}

func (s *Storage) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS kv_counters (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS kv_lists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	list_key TEXT NOT NULL,
	value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_kv_lists_key ON kv_lists(list_key, id);

CREATE TABLE IF NOT EXISTS kv_sets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	set_key TEXT NOT NULL,
	member TEXT NOT NULL,
	UNIQUE(set_key, member)
);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) prepareStatements() error {
	var err error

	s.stmtIncr, err = s.db.Prepare(`
INSERT INTO kv_counters (key, value) VALUES (?, 1)
ON CONFLICT(key) DO UPDATE SET value = value + 1
RETURNING value`)
	if err != nil {
		return fmt.Errorf("prepare incr: %w", err)
	}

	s.stmtGet, err = s.db.Prepare(`SELECT value FROM kv_counters WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("prepare get: %w", err)
	}

	s.stmtPush, err = s.db.Prepare(`INSERT INTO kv_lists (list_key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare push: %w", err)
	}

	s.stmtTrim, err = s.db.Prepare(`
DELETE FROM kv_lists
WHERE list_key = ? AND id NOT IN (
	SELECT id FROM kv_lists WHERE list_key = ? ORDER BY id DESC LIMIT ?
)`)
	if err != nil {
		return fmt.Errorf("prepare trim: %w", err)
	}

	s.stmtAddMember, err = s.db.Prepare(`INSERT INTO kv_sets (set_key, member) VALUES (?, ?) ON CONFLICT(set_key, member) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare add member: %w", err)
	}

	return nil
}

// Close closes the database connection and prepared statements.
func (s *Storage) Close() error {
	for _, stmt := range []*sql.Stmt{s.stmtIncr, s.stmtGet, s.stmtPush, s.stmtTrim, s.stmtAddMember} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

// Driver returns the database/sql driver name in use.
func (s *Storage) Driver() string {
	return s.driver
}
