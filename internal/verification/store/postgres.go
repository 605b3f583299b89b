package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"idverify/internal/verification/models"
	"idverify/pkg/domain"
)

// Schema creates the session table. The partial unique index is what enforces
// one active session per user at the database level.
const Schema = `
CREATE TABLE IF NOT EXISTS verification_sessions (
    id         UUID PRIMARY KEY,
    user_id    UUID        NOT NULL,
    status     TEXT        NOT NULL,
    version    BIGINT      NOT NULL DEFAULT 0,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    payload    JSONB       NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS verification_sessions_one_active_per_user
    ON verification_sessions (user_id)
    WHERE status NOT IN ('completed', 'failed', 'expired', 'cancelled');
`

const pgUniqueViolation = "23505"

// Postgres persists sessions in PostgreSQL. The full session rides in a JSONB
// payload; the columns exist for the uniqueness index and the version check.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO verification_sessions (id, user_id, status, version, expires_at, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID.String(), session.UserID.String(), string(session.Status),
		session.Version, session.ExpiresAt, session.CreatedAt, payload,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrActiveSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	var payload []byte
	var version int64
	err := p.pool.QueryRow(ctx, `
		SELECT payload, version FROM verification_sessions WHERE id = $1`,
		id.String(),
	).Scan(&payload, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	// The column is authoritative: a payload written by an older writer may
	// lag the committed version.
	session.Version = version
	return &session, nil
}

func (p *Postgres) Update(ctx context.Context, session *models.Session, expectedVersion int64) error {
	next := *session
	next.Version = expectedVersion + 1
	payload, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE verification_sessions
		SET status = $1, version = $2, expires_at = $3, payload = $4
		WHERE id = $5 AND version = $6`,
		string(next.Status), next.Version, next.ExpiresAt, payload,
		next.ID.String(), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is missing or the version moved on; distinguish so
		// callers can surface the right error.
		var exists bool
		if scanErr := p.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM verification_sessions WHERE id = $1)`,
			next.ID.String(),
		).Scan(&exists); scanErr != nil {
			return fmt.Errorf("check session existence: %w", scanErr)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	session.Version = next.Version
	return nil
}

func (p *Postgres) FindActiveByUser(ctx context.Context, userID domain.UserID) (*models.Session, error) {
	var payload []byte
	var version int64
	err := p.pool.QueryRow(ctx, `
		SELECT payload, version FROM verification_sessions
		WHERE user_id = $1
		  AND status NOT IN ('completed', 'failed', 'expired', 'cancelled')`,
		userID.String(),
	).Scan(&payload, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select active session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	session.Version = version
	return &session, nil
}
