package attempts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	attemptKeyPrefix = "verif:attempts:"

	// Records expire on their own well past any cooldown, so abandoned users
	// do not accumulate forever.
	recordTTL = 72 * time.Hour
)

// RedisStore keeps attempt records in Redis, shared across instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func attemptKey(userID string) string {
	return attemptKeyPrefix + userID
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*Record, error) {
	raw, err := r.client.Get(ctx, attemptKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch attempt record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal attempt record: %w", err)
	}
	return &record, nil
}

func (r *RedisStore) Save(ctx context.Context, record *Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal attempt record: %w", err)
	}
	if err := r.client.Set(ctx, attemptKey(record.UserID), payload, recordTTL).Err(); err != nil {
		return fmt.Errorf("store attempt record: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, attemptKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear attempt record: %w", err)
	}
	return nil
}
