package imagestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"idverify/pkg/platform/sentinel"
)

const imageKeyPrefix = "verif:image:"

// Redis stores images with a TTL matching the session lifetime. Images are
// working data for the verification flow, not an archive.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Put(ctx context.Context, image []byte) (string, error) {
	ref := uuid.NewString()
	if err := r.client.Set(ctx, imageKeyPrefix+ref, image, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return ref, nil
}

func (r *Redis) Get(ctx context.Context, ref string) ([]byte, error) {
	image, err := r.client.Get(ctx, imageKeyPrefix+ref).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	return image, nil
}

func (r *Redis) Delete(ctx context.Context, ref string) error {
	if err := r.client.Del(ctx, imageKeyPrefix+ref).Err(); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
