package repository

import (
	"context"
	"time"

	"github.com/utafrali/studiogate/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByGoogleID retrieves a user by their Google account identifier.
	GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error)

	// UpdateTokens replaces the stored delegated credentials for a user and
	// bumps their last login timestamp.
	UpdateTokens(ctx context.Context, userID string, tokens domain.TokenBundle) error
}

// RevocationStore records bearer credentials that have been invalidated
// before their natural expiry. Entries fall out of the store automatically
// once the credential itself can no longer be valid.
type RevocationStore interface {
	// Revoke adds the credential to the denylist. Revoking an already
	// revoked credential returns an AlreadyExists error.
	Revoke(ctx context.Context, token, userID string) error

	// IsRevoked reports whether the credential is on the denylist.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// SessionStore manages server-side login sessions.
type SessionStore interface {
	// Create starts a new session for the user and returns its identifier.
	Create(ctx context.Context, userID string, ttl time.Duration) (string, error)

	// Get resolves a session identifier to the owning user's identifier.
	Get(ctx context.Context, sessionID string) (string, error)

	// Delete tears down a session. Deleting a missing session is a no-op.
	Delete(ctx context.Context, sessionID string) error
}
