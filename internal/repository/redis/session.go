package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/studiogate/pkg/errors"
)

const sessionKeyPrefix = "session:"

// SessionStore implements repository.SessionStore using Redis.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a new Redis-backed session store.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Create starts a new session for the user and returns its identifier.
func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	sessionID := uuid.New().String()
	key := sessionKeyPrefix + sessionID

	if err := s.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set session: %w", err)
	}

	return sessionID, nil
}

// Get resolves a session identifier to the owning user's identifier.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	key := sessionKeyPrefix + sessionID

	userID, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("redis get session: %w", err)
	}

	return userID, nil
}

// Delete tears down a session. Deleting a missing session is a no-op.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	key := sessionKeyPrefix + sessionID

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}

	return nil
}
