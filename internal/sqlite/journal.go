package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/labspace/labnav/internal/domain/journal"
)

// JournalRepository implements journal.Repository for SQLite
type JournalRepository struct {
	db *DB
}

// NewJournalRepository creates a new JournalRepository
func NewJournalRepository(db *DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Log inserts a new journal event
func (r *JournalRepository) Log(ctx context.Context, event *journal.Event) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO event_log (
			event_type, activity_id, url, summary, details, generation, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.Type,
		nullString(event.ActivityID),
		nullString(event.URL),
		event.Summary,
		nullString(event.Details),
		event.Generation,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		event.ID = id
	}
	event.CreatedAt = createdAt

	return nil
}

// List returns journal events matching the given filters, newest first
func (r *JournalRepository) List(ctx context.Context, opts journal.ListOptions) ([]journal.Event, error) {
	query := `
		SELECT id, event_type, activity_id, url, summary, details, generation, created_at
		FROM event_log
	`

	args := []interface{}{}
	conditions := []string{}

	if opts.ActivityID != "" {
		conditions = append(conditions, "activity_id = ?")
		args = append(args, opts.ActivityID)
	}
	if opts.Type != nil {
		conditions = append(conditions, "event_type = ?")
		args = append(args, *opts.Type)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 && opts.Offset > 0 {
		limit = -1
	}
	if limit != 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []journal.Event
	for rows.Next() {
		var event journal.Event
		var activityID, url, details sql.NullString
		if err := rows.Scan(
			&event.ID,
			&event.Type,
			&activityID,
			&url,
			&event.Summary,
			&details,
			&event.Generation,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.ActivityID = activityID.String
		event.URL = url.String
		event.Details = details.String
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
