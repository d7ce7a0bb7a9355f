package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection with initialization logic.
type DB struct {
	*sql.DB
}

// Open creates or opens the SQLite database at the given path, runs schema
// initialization, and configures WAL mode for concurrent reads.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS chat_sessions (
  id TEXT PRIMARY KEY,
  description TEXT,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_created_at ON chat_sessions(created_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// runMigrations applies schema changes added after the initial schema. Each
// migration is idempotent so it is safe to call on every database open.
func runMigrations(db *sql.DB) error {
	// --- Migration v1: per-session mode and prompt bookkeeping ---
	hasMode, err := columnExists(db, "chat_sessions", "mode")
	if err != nil {
		return fmt.Errorf("check mode column: %w", err)
	}
	if !hasMode {
		if _, err := db.Exec(`ALTER TABLE chat_sessions ADD COLUMN mode TEXT NOT NULL DEFAULT 'Default'`); err != nil {
			return fmt.Errorf("run migration v1 (mode): %w", err)
		}
	}

	hasFlag, err := columnExists(db, "chat_sessions", "prompt_delivered")
	if err != nil {
		return fmt.Errorf("check prompt_delivered column: %w", err)
	}
	if !hasFlag {
		if _, err := db.Exec(`ALTER TABLE chat_sessions ADD COLUMN prompt_delivered INTEGER NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("run migration v1 (prompt_delivered): %w", err)
		}
	}

	// --- Migration v2: message log ---
	if err := runMessagesMigration(db); err != nil {
		return err
	}

	return nil
}

// runMessagesMigration creates the messages table (Migration v2).
func runMessagesMigration(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('system', 'user', 'assistant')),
			content TEXT NOT NULL,
			metadata TEXT,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (chat_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages(chat_id, created_at)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("create messages index: %w", err)
		}
	}
	return nil
}

// SessionCount returns the total number of chat sessions in the database.
func (db *DB) SessionCount() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM chat_sessions").Scan(&count)
	return count, err
}

// columnExists checks if a column exists in a table. It properly closes the
// rows cursor before returning, avoiding deadlocks with MaxOpenConns(1).
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(
		fmt.Sprintf("SELECT name FROM pragma_table_info('%s') WHERE name = ?", table),
		column,
	)
	if err != nil {
		return false, err
	}
	found := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	return found, nil
}
