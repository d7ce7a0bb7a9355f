package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

// ModeChecker validates mode names against the mode registry.
type ModeChecker interface {
	IsValid(name string) bool
	Default() string
}

// SessionStore handles chat session CRUD on SQLite. Every method is a single
// statement, so each record change is atomic.
type SessionStore struct {
	db    *DB
	modes ModeChecker
}

func NewSessionStore(db *DB, modes ModeChecker) *SessionStore {
	return &SessionStore{db: db, modes: modes}
}

const sessionColumns = `id, COALESCE(description, ''), mode, prompt_delivered, created_at, updated_at`

// Create inserts a new session. An empty mode selects the registry default.
func (s *SessionStore) Create(description, mode string) (*models.ChatSession, error) {
	if mode == "" {
		mode = s.modes.Default()
	}
	if !s.modes.IsValid(mode) {
		return nil, fmt.Errorf("create session: %w: %q", models.ErrInvalidMode, mode)
	}

	now := time.Now().Unix()
	sess := &models.ChatSession{
		ID:          uuid.New().String(),
		Description: description,
		Mode:        mode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.Exec(`
		INSERT INTO chat_sessions (id, description, mode, prompt_delivered, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, sess.ID, nullString(description), sess.Mode, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// Get fetches a session by ID. Unknown ids yield models.ErrNotFound.
func (s *SessionStore) Get(id string) (*models.ChatSession, error) {
	sess, err := scanSession(s.db.QueryRow(`SELECT `+sessionColumns+` FROM chat_sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// List returns all sessions in creation order.
func (s *SessionStore) List() ([]*models.ChatSession, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM chat_sessions ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.ChatSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// UpdateMode sets a new mode and clears the prompt-delivered flag in one
// statement.
func (s *SessionStore) UpdateMode(id, mode string) error {
	if !s.modes.IsValid(mode) {
		return fmt.Errorf("update mode: %w: %q", models.ErrInvalidMode, mode)
	}
	res, err := s.db.Exec(`
		UPDATE chat_sessions SET mode = ?, prompt_delivered = 0, updated_at = ?
		WHERE id = ?
	`, mode, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("update mode: %w", err)
	}
	return requireRow(res, id)
}

// UpdateDescription replaces the session's free-text label.
func (s *SessionStore) UpdateDescription(id, description string) error {
	res, err := s.db.Exec(`
		UPDATE chat_sessions SET description = ?, updated_at = ? WHERE id = ?
	`, nullString(description), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("update description: %w", err)
	}
	return requireRow(res, id)
}

// SetPromptDelivered records whether the current mode's prompt reached the
// upstream conversation.
func (s *SessionStore) SetPromptDelivered(id string, delivered bool) error {
	res, err := s.db.Exec(`
		UPDATE chat_sessions SET prompt_delivered = ?, updated_at = ? WHERE id = ?
	`, boolToInt(delivered), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("set prompt delivered: %w", err)
	}
	return requireRow(res, id)
}

// ResetPromptDelivered clears the flag on every session. Called at startup,
// when the upstream conversation is brand new.
func (s *SessionStore) ResetPromptDelivered() (int64, error) {
	res, err := s.db.Exec(`UPDATE chat_sessions SET prompt_delivered = 0 WHERE prompt_delivered != 0`)
	if err != nil {
		return 0, fmt.Errorf("reset prompt delivered: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes a session; its messages go with it via ON DELETE CASCADE.
func (s *SessionStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireRow(res, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.ChatSession, error) {
	var sess models.ChatSession
	var delivered int
	if err := row.Scan(&sess.ID, &sess.Description, &sess.Mode, &delivered, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return nil, err
	}
	sess.PromptDelivered = delivered != 0
	return &sess, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
