package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/vachat/internal/db"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Session is a server-side conversation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore persists sessions and their turns in SQLite.
type SessionStore struct {
	db *db.DB
}

// NewSessionStore creates a SessionStore backed by the given database.
func NewSessionStore(database *db.DB) *SessionStore {
	return &SessionStore{db: database}
}

// Create starts a new session.
func (s *SessionStore) Create(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		userID = "anonymous"
	}
	now := time.Now().UTC()
	sess := Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &sess, nil
}

// Get returns a session by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM chat_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return &sess, nil
}

// Append adds turns to the end of a session.
func (s *SessionStore) Append(ctx context.Context, sessionID string, turns ...Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM chat_turns WHERE session_id = ?`, sessionID,
	).Scan(&next); err != nil {
		return fmt.Errorf("reading turn sequence: %w", err)
	}

	now := time.Now().UTC()
	for i, t := range turns {
		created := now
		if ts, err := time.Parse(time.RFC3339, t.Timestamp); err == nil {
			created = ts.UTC()
		}
		var turnContext sql.NullString
		if t.Context != "" {
			turnContext = sql.NullString{String: t.Context, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_turns (id, session_id, seq, role, content, context, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), sessionID, next+i, string(t.Role), t.Content, turnContext, created,
		)
		if err != nil {
			return fmt.Errorf("adding turn: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return tx.Commit()
}

// Turns returns a session's turns in order.
func (s *SessionStore) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, context, created_at
		 FROM chat_turns WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var (
			t           Turn
			role        string
			turnContext sql.NullString
			created     time.Time
		)
		if err := rows.Scan(&role, &t.Content, &turnContext, &created); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Role = Role(role)
		t.Context = turnContext.String
		t.Timestamp = created.UTC().Format(time.RFC3339)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Count returns the total number of sessions.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_sessions`).Scan(&count)
	return count, err
}
