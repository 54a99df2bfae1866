package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/studiogate/pkg/errors"
)

const revokedKeyPrefix = "revoked:"

// RevocationTTL is how long a revoked credential stays on the denylist.
// Credentials live for at most an hour, so a revocation entry is useless
// after that and is left to expire on its own.
const RevocationTTL = time.Hour

// RevocationStore implements repository.RevocationStore using Redis.
// Credentials are keyed by their SHA-256 digest so the raw bearer token
// never lands in the store.
type RevocationStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRevocationStore creates a new Redis-backed revocation store.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{
		client: client,
		ttl:    RevocationTTL,
	}
}

// Revoke adds the credential to the denylist. Revoking an already revoked
// credential returns an AlreadyExists error.
func (s *RevocationStore) Revoke(ctx context.Context, token, userID string) error {
	key := revokedKeyPrefix + digest(token)

	set, err := s.client.SetNX(ctx, key, userID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx revocation: %w", err)
	}
	if !set {
		return apperrors.AlreadyExists("revocation", "token", digest(token)[:12])
	}

	return nil
}

// IsRevoked reports whether the credential is on the denylist.
func (s *RevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	key := revokedKeyPrefix + digest(token)

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists revocation: %w", err)
	}

	return n > 0, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
