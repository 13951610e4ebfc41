// Package ledger provides persistent custody state using SQLite: deposit
// wallets, append-only ledger entries, and the set of processed
// transaction hashes.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the custody database. SQLite has a single writer, so all
// mutations go through one connection guarded by the mutex.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open opens (or creates) the custody database under dataDir.
func Open(dataDir string) (*Store, error) {
	dataDir = expandPath(dataDir)

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "custody.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// initSchema creates all database tables.
func (s *Store) initSchema() error {
	schema := `
	-- Deposit wallets, one per (owner, coin, network).
	-- Monetary columns are TEXT holding exact decimal strings; the
	-- watermark is the raw on-chain balance in smallest units, TEXT so
	-- wei-scale values never overflow.
	CREATE TABLE IF NOT EXISTS wallets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		coin TEXT NOT NULL,
		network TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL,
		privkey TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		pending TEXT NOT NULL DEFAULT '0',
		watermark TEXT NOT NULL DEFAULT '0',
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER,

		UNIQUE(owner, coin, network)
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_coin ON wallets(coin, active);
	CREATE INDEX IF NOT EXISTS idx_wallets_address ON wallets(address);

	-- Append-only ledger entries. Never updated, never deleted.
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		coin TEXT NOT NULL,
		side TEXT NOT NULL,
		amount TEXT NOT NULL,
		price TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		txhash TEXT,
		txtype TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_owner ON entries(owner, coin);
	CREATE INDEX IF NOT EXISTS idx_entries_hash ON entries(txhash);

	-- Processed transaction hashes. The primary key makes marking a
	-- hash atomic: the first INSERT wins, every later one is a no-op.
	CREATE TABLE IF NOT EXISTS seen_hashes (
		coin TEXT NOT NULL,
		txhash TEXT NOT NULL,
		seen_at INTEGER NOT NULL,

		PRIMARY KEY (coin, txhash)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
