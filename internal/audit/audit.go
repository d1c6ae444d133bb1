// Package audit records operator actions taken through the dashboard.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Action identifies what the operator did.
type Action string

const (
	ActionStoreCreated   Action = "store.created"
	ActionStoreUpdated   Action = "store.updated"
	ActionStaffCreated   Action = "staff.created"
	ActionStaffUpdated   Action = "staff.updated"
	ActionStaffDeleted   Action = "staff.deleted"
	ActionCourseCreated  Action = "course.created"
	ActionCourseUpdated  Action = "course.updated"
	ActionCourseDeleted  Action = "course.deleted"
	ActionSettingsSaved  Action = "settings.saved"
	ActionOperatorLogin  Action = "auth.login"
	ActionOperatorLogout Action = "auth.logout"
)

// Event is an immutable audit record.
type Event struct {
	ID        string          `json:"id"`
	Action    Action          `json:"action"`
	UserID    string          `json:"user_id,omitempty"`
	StoreID   string          `json:"store_id,omitempty"`
	EntityID  string          `json:"entity_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Service writes events to the operator_audit_events table. A nil *Service
// discards events, so callers need no configuration checks.
type Service struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewService(db *sql.DB, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{db: db, logger: logger}
}

// LogEvent inserts event.
func (s *Service) LogEvent(ctx context.Context, event Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO operator_audit_events (
			id, action, user_id, store_id, entity_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Action,
		nullString(event.UserID),
		nullString(event.StoreID),
		nullString(event.EntityID),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to log event: %w", err)
	}
	return nil
}

// Record is LogEvent for handlers: failures are logged, not returned.
func (s *Service) Record(ctx context.Context, event Event) {
	if s == nil {
		return
	}
	if err := s.LogEvent(ctx, event); err != nil {
		s.logger.Error("audit: record failed", "action", string(event.Action), "error", err)
	}
}

// Filter narrows QueryEvents.
type Filter struct {
	StoreID string
	UserID  string
	Action  Action
	Since   time.Time
	Limit   int
}

// QueryEvents returns matching events, newest first.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := `
		SELECT id, action, user_id, store_id, entity_id, details, created_at
		FROM operator_audit_events
		WHERE 1=1
	`
	var args []any
	argIdx := 1
	if filter.StoreID != "" {
		query += fmt.Sprintf(" AND store_id = $%d", argIdx)
		args = append(args, filter.StoreID)
		argIdx++
	}
	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var userID, storeID, entityID sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.Action, &userID, &storeID, &entityID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		e.UserID = userID.String
		e.StoreID = storeID.String
		e.EntityID = entityID.String
		e.Details = details
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate events: %w", err)
	}
	return events, nil
}

// Details marshals v for Event.Details, ignoring encoding failures.
func Details(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
