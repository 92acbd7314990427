package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptPrefix = "login_attempts:"

// LoginAttemptRepository counts failed logins per identity in Redis. Without a
// client every method is a no-op and nothing is ever throttled.
type LoginAttemptRepository struct {
	client *redis.Client
}

// NewLoginAttemptRepository constructs the repository; client may be nil.
func NewLoginAttemptRepository(client *redis.Client) *LoginAttemptRepository {
	return &LoginAttemptRepository{client: client}
}

// Failures returns the current failure count for identity.
func (r *LoginAttemptRepository) Failures(ctx context.Context, identity string) (int64, error) {
	if r.client == nil {
		return 0, nil
	}
	n, err := r.client.Get(ctx, loginAttemptPrefix+identity).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get login attempts: %w", err)
	}
	return n, nil
}

// RecordFailure increments the failure counter; the window starts at the first failure.
func (r *LoginAttemptRepository) RecordFailure(ctx context.Context, identity string, window time.Duration) (int64, error) {
	if r.client == nil {
		return 0, nil
	}
	key := loginAttemptPrefix + identity
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis record login failure: %w", err)
	}
	return incr.Val(), nil
}

// Reset clears the counter after a successful login.
func (r *LoginAttemptRepository) Reset(ctx context.Context, identity string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, loginAttemptPrefix+identity).Err(); err != nil {
		return fmt.Errorf("redis reset login attempts: %w", err)
	}
	return nil
}
