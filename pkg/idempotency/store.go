// Package idempotency guards operations that must run at most once,
// backed by Redis SET NX with a TTL.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// ClaimCapture claims the capture slot for one logical order. A second
// capture attempt for the same order finds the slot taken.
func (s *Store) ClaimCapture(ctx context.Context, orderID string) (bool, error) {
	return s.Claim(ctx, fmt.Sprintf("idem:capture:%s", orderID))
}

// ForgetCapture frees the slot after an attempt that never reached the
// gateway, so a legitimate retry is not refused.
func (s *Store) ForgetCapture(ctx context.Context, orderID string) error {
	return s.Forget(ctx, fmt.Sprintf("idem:capture:%s", orderID))
}

// Claim marks key as used. It returns true when this caller won the
// claim, false when the key was already taken.
func (s *Store) Claim(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
}

// Forget releases a claim, used to roll back after the guarded
// operation failed before producing any effect.
func (s *Store) Forget(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
