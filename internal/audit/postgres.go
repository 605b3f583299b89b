package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"idverify/pkg/domain"
)

// Schema creates the audit table.
const Schema = `
CREATE TABLE IF NOT EXISTS verification_audit_events (
    id         UUID PRIMARY KEY,
    session_id UUID        NOT NULL,
    user_id    UUID        NOT NULL,
    action     TEXT        NOT NULL,
    occurred   TIMESTAMPTZ NOT NULL,
    payload    JSONB       NOT NULL
);

CREATE INDEX IF NOT EXISTS verification_audit_events_session
    ON verification_audit_events (session_id, occurred);
`

// PostgresStore persists audit events durably. Opened with database/sql and
// the pq driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_audit_events (id, session_id, user_id, action, occurred, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), event.SessionID.String(), event.UserID.String(),
		event.Action, event.Timestamp, payload,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID domain.SessionID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM verification_audit_events
		WHERE session_id = $1 ORDER BY occurred`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("select audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
