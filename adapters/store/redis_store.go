package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "walletauth:"

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

type attemptRecord struct {
	Address    string                 `json:"address"`
	Transcript core.Transcript        `json:"transcript"`
	Challenge  core.PrivateParameters `json:"challenge"`
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: defaultPrefix,
	}
}

// WithPrefix returns a copy of the store that namespaces keys under prefix
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	return &RedisStore{client: s.client, prefix: prefix}
}

func (s *RedisStore) attemptKey(id string) string     { return s.prefix + "attempt:" + id }
func (s *RedisStore) invalidatedKey(id string) string { return s.prefix + "invalidated:" + id }

// SaveAttempt stores an attempt with expiration
func (s *RedisStore) SaveAttempt(ctx context.Context, attempt ports.Attempt, ttl time.Duration) error {
	payload, err := json.Marshal(attemptRecord{
		Address:    attempt.Address,
		Transcript: attempt.Transcript,
		Challenge:  attempt.Challenge,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}

	if err := s.client.Set(ctx, s.attemptKey(attempt.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}

	return nil
}

// TakeAttempt consumes an attempt with GETDEL
func (s *RedisStore) TakeAttempt(ctx context.Context, attemptID string) (ports.Attempt, error) {
	payload, err := s.client.GetDel(ctx, s.attemptKey(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.Attempt{}, core.ErrUnknownAttempt
	}
	if err != nil {
		return ports.Attempt{}, fmt.Errorf("failed to take attempt: %w", err)
	}

	var record attemptRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return ports.Attempt{}, fmt.Errorf("failed to decode attempt: %w", err)
	}

	return ports.Attempt{
		ID:         attemptID,
		Address:    record.Address,
		Transcript: record.Transcript,
		Challenge:  record.Challenge,
	}, nil
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	// Set key with expiration
	if err := s.client.Set(ctx, s.invalidatedKey(tokenID), "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.invalidatedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}

var _ ports.Store = (*RedisStore)(nil)
