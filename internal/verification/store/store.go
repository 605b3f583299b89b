// Package store persists verification sessions. All implementations enforce
// two invariants: at most one non-terminal session per user, and
// version-checked writes so concurrent transitions cannot silently clobber
// each other.
package store

import (
	"context"

	"idverify/internal/verification/models"
	"idverify/pkg/domain"
	"idverify/pkg/platform/sentinel"
)

// Re-exported so callers do not import sentinel directly for store errors.
var (
	ErrNotFound            = sentinel.ErrNotFound
	ErrConflict            = sentinel.ErrConflict
	ErrActiveSessionExists = sentinel.ErrActiveSessionExists
)

// Store is the session persistence contract.
type Store interface {
	// Create persists a new session. Returns ErrActiveSessionExists when the
	// user already has a non-terminal session.
	Create(ctx context.Context, session *models.Session) error

	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id domain.SessionID) (*models.Session, error)

	// Update writes the session only if the stored version still equals
	// expectedVersion, then increments the version. Returns ErrConflict when
	// another writer got there first.
	Update(ctx context.Context, session *models.Session, expectedVersion int64) error

	// FindActiveByUser returns the user's non-terminal session or ErrNotFound.
	FindActiveByUser(ctx context.Context, userID domain.UserID) (*models.Session, error)
}
