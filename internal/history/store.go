// Package history persists chat exchanges per session in PostgreSQL.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// Message roles. Every exchange writes one row per role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// History limits. Requests without an explicit limit get DefaultLimit;
// requests above MaxLimit are capped, not rejected.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Message is one stored chat message.
type Message struct {
	ID        int       `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ip_address,omitempty"`
}

// Querier is the database surface the store needs. *pgxpool.Pool satisfies
// it in production.
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads and writes chat history. Safe for concurrent use.
type Store struct {
	db     Querier
	logger log.Logger
}

// New creates a history Store.
func New(db Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger}
}

const insertMessageSQL = `
INSERT INTO chat_messages (session_id, role, content, ip_address)
VALUES ($1, $2, $3, NULLIF($4, ''))`

// SaveExchange stores a question and its answer in one transaction, so a
// session never ends up with a question missing its answer or vice versa.
func (s *Store) SaveExchange(ctx context.Context, sessionID, ip, question, answer string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin exchange transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, insertMessageSQL, sessionID, RoleUser, question, ip); err != nil {
		return fmt.Errorf("insert user message: %w", err)
	}
	if _, err := tx.Exec(ctx, insertMessageSQL, sessionID, RoleAssistant, answer, ip); err != nil {
		return fmt.Errorf("insert assistant message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit exchange: %w", err)
	}

	s.logger.Debug("saved exchange", "session_id", sessionID)
	return nil
}

// The inner query picks the most recent rows; the outer one restores
// chronological order for display.
const selectHistorySQL = `
SELECT id, session_id, role, content, timestamp, coalesce(ip_address, '')
FROM (
    SELECT id, session_id, role, content, timestamp, ip_address
    FROM chat_messages
    WHERE session_id = $1
    ORDER BY timestamp DESC, id DESC
    LIMIT $2
) recent
ORDER BY timestamp ASC, id ASC`

// History returns up to limit most recent messages for a session, oldest
// first. A non-positive limit selects DefaultLimit; anything above MaxLimit
// is capped. An unknown session yields an empty slice.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := s.db.Query(ctx, selectHistorySQL, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Timestamp, &m.IPAddress); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// DeleteSession removes all messages of a session and returns how many rows
// were removed. Deleting an unknown session is not an error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM chat_messages WHERE session_id = $1", sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session %q: %w", sessionID, err)
	}

	deleted := int(tag.RowsAffected())
	s.logger.Debug("deleted session history", "session_id", sessionID, "messages", deleted)
	return deleted, nil
}
