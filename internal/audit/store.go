package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/vachat/internal/db"
	"github.com/ziadkadry99/vachat/internal/policy"
)

// Store persists policy events in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

var _ policy.EventSink = (*Store)(nil)

// RecordPolicyEvent inserts a policy event. If e.ID is empty a UUID is generated.
func (s *Store) RecordPolicyEvent(ctx context.Context, e policy.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	flagged := e.Flagged
	if flagged == nil {
		flagged = []string{}
	}
	flaggedJSON, err := json.Marshal(flagged)
	if err != nil {
		return fmt.Errorf("marshalling flagged categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO policy_events (
			id, timestamp, stage, category, allowed, flagged_categories,
			session_id, slot, excerpt, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Timestamp.UTC().Format(time.DateTime),
		string(e.Stage),
		string(e.Category),
		boolToInt(e.Allowed),
		string(flaggedJSON),
		e.SessionID,
		e.Slot,
		e.Excerpt,
		e.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting policy event: %w", err)
	}
	return nil
}

// GetByID retrieves a single policy event.
func (s *Store) GetByID(ctx context.Context, id string) (*policy.Event, error) {
	row := s.db.QueryRowContext(ctx, selectEvents+" WHERE id = ?", id)
	return scanInto(row)
}

// QueryFilter controls which events are returned by Query.
type QueryFilter struct {
	Category  policy.Category
	Stage     policy.Stage
	SessionID string
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

const selectEvents = "SELECT id, timestamp, stage, category, allowed, flagged_categories, session_id, slot, excerpt, detail FROM policy_events"

// Query returns events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]policy.Event, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Stage != "" {
		clauses = append(clauses, "stage = ?")
		args = append(args, string(filter.Stage))
	}
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}
	if filter.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.Until.UTC().Format(time.DateTime))
	}

	query := selectEvents
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying policy events: %w", err)
	}
	defer rows.Close()

	var events []policy.Event
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Summarize counts stored events by category and stage.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		ByCategory: map[policy.Category]int{},
		ByStage:    map[policy.Stage]int{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, category, detail LIKE '%moderation failed%', COUNT(*)
		FROM policy_events GROUP BY 1, 2, 3`)
	if err != nil {
		return nil, fmt.Errorf("summarizing policy events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			stage, category string
			failure         bool
			n               int
		)
		if err := rows.Scan(&stage, &category, &failure, &n); err != nil {
			return nil, err
		}
		sum.Total += n
		sum.ByStage[policy.Stage(stage)] += n
		sum.ByCategory[policy.Category(category)] += n
		if failure {
			sum.Failures += n
		}
	}
	return sum, rows.Err()
}

// DeleteBefore removes all events older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM policy_events WHERE timestamp < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old policy events: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*policy.Event, error) {
	var (
		e               policy.Event
		ts              string
		stage, category string
		allowed         int
		flaggedJSON     string
	)

	err := sc.Scan(&e.ID, &ts, &stage, &category, &allowed, &flaggedJSON,
		&e.SessionID, &e.Slot, &e.Excerpt, &e.Detail)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("policy event not found")
		}
		return nil, err
	}

	e.Stage = policy.Stage(stage)
	e.Category = policy.Category(category)
	e.Allowed = allowed != 0

	if t, parseErr := time.Parse(time.DateTime, ts); parseErr == nil {
		e.Timestamp = t
	} else if t, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
		e.Timestamp = t
	}

	if err := json.Unmarshal([]byte(flaggedJSON), &e.Flagged); err != nil {
		e.Flagged = nil
	}

	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
