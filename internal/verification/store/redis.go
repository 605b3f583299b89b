package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idverify/internal/verification/models"
	"idverify/pkg/domain"
)

const (
	sessionKeyPrefix    = "verif:session:"
	activeUserKeyPrefix = "verif:active:"

	// Keys outlive the session TTL so terminal sessions stay readable for a
	// while after the flow ends.
	terminalRetention = 24 * time.Hour
)

// Redis persists sessions as JSON values and uses WATCH-guarded transactions
// for the version check. The production-recommended store for multi-node
// deployments.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func sessionKey(id domain.SessionID) string {
	return sessionKeyPrefix + id.String()
}

func activeUserKey(userID domain.UserID) string {
	return activeUserKeyPrefix + userID.String()
}

func (r *Redis) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt) + terminalRetention

	// The active-user key is the uniqueness guard: SETNX wins or loses
	// atomically, so two racing Create calls cannot both succeed.
	ok, err := r.client.SetNX(ctx, activeUserKey(session.UserID), session.ID.String(), ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve active session slot: %w", err)
	}
	if !ok {
		// The slot may belong to a session that already ended; the service
		// releases it on terminal transitions, but a crashed writer can leave
		// it behind until the TTL clears it.
		heldBy, err := r.client.Get(ctx, activeUserKey(session.UserID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("inspect active session slot: %w", err)
		}
		if heldBy != "" {
			if stale, staleErr := r.isTerminalOrGone(ctx, heldBy); staleErr == nil && stale {
				if err := r.client.Set(ctx, activeUserKey(session.UserID), session.ID.String(), ttl).Err(); err != nil {
					return fmt.Errorf("reclaim active session slot: %w", err)
				}
				ok = true
			}
		}
		if !ok {
			return ErrActiveSessionExists
		}
	}

	if err := r.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *Redis) isTerminalOrGone(ctx context.Context, rawSessionID string) (bool, error) {
	id, err := domain.ParseSessionID(rawSessionID)
	if err != nil {
		return true, nil
	}
	session, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return session.Status.IsTerminal(), nil
}

func (r *Redis) Get(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *Redis) Update(ctx context.Context, session *models.Session, expectedVersion int64) error {
	key := sessionKey(session.ID)

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("fetch session for update: %w", err)
		}

		var stored models.Session
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if stored.Version != expectedVersion {
			return ErrConflict
		}

		next := *session
		next.Version = expectedVersion + 1
		payload, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		ttl := time.Until(next.ExpiresAt) + terminalRetention
		if ttl <= 0 {
			ttl = terminalRetention
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			if next.Status.IsTerminal() {
				pipe.Del(ctx, activeUserKey(next.UserID))
			}
			return nil
		})
		if err != nil {
			return err
		}
		session.Version = next.Version
		return nil
	}

	err := r.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer modified the key between WATCH and EXEC.
		return ErrConflict
	}
	return err
}

func (r *Redis) FindActiveByUser(ctx context.Context, userID domain.UserID) (*models.Session, error) {
	rawID, err := r.client.Get(ctx, activeUserKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch active session index: %w", err)
	}

	id, err := domain.ParseSessionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt active session index for user %s: %w", userID, err)
	}

	session, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, ErrNotFound
	}
	return session, nil
}
