package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/models"
)

// privateBlock matches <private>...</private> spans (non-greedy, dotall).
var privateBlock = regexp.MustCompile(`(?s)<private>.*?</private>`)

const redactedMarker = "[redacted]"

// Redact replaces every <private> span with a marker so transcripts never
// persist text the user flagged as private.
func Redact(content string) string {
	return strings.TrimSpace(privateBlock.ReplaceAllString(content, redactedMarker))
}

// MessageStore persists the per-session transcript.
type MessageStore struct {
	db *DB
}

func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append records one message for chatID.
func (s *MessageStore) Append(chatID string, role models.MessageRole, content string, metadata map[string]any) (*models.Message, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("append message: %w: role %q", models.ErrValidation, role)
	}

	var metaJSON sql.NullString
	if len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		metaJSON = sql.NullString{String: string(data), Valid: true}
	}

	msg := &models.Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   Redact(content),
		CreatedAt: time.Now().Unix(),
		Metadata:  metadata,
	}

	_, err := s.db.Exec(`
		INSERT INTO messages (id, chat_id, role, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChatID, string(msg.Role), msg.Content, metaJSON, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListByChat returns the most recent messages of a chat in chronological
// order. A non-positive limit means 100.
func (s *MessageStore) ListByChat(chatID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT id, chat_id, role, content, metadata, created_at FROM (
			SELECT id, chat_id, role, content, metadata, created_at, rowid AS seq
			FROM messages
			WHERE chat_id = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		) ORDER BY created_at ASC, seq ASC
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		var role string
		var metaJSON sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ChatID, &role, &msg.Content, &metaJSON, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = models.MessageRole(role)
		if metaJSON.Valid {
			if err := json.Unmarshal([]byte(metaJSON.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for message %s: %w", msg.ID, err)
			}
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// Count returns the number of messages logged for a chat.
func (s *MessageStore) Count(chatID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// DeleteByChat removes the transcript of a chat, returning how many rows went.
func (s *MessageStore) DeleteByChat(chatID string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM messages WHERE chat_id = ?`, chatID)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return res.RowsAffected()
}
