package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/utafrali/studiogate/pkg/errors"

	"github.com/utafrali/studiogate/internal/auth"
	"github.com/utafrali/studiogate/internal/domain"
	"github.com/utafrali/studiogate/internal/event"
	"github.com/utafrali/studiogate/internal/repository"
)

// IdentityProvider drives the external authorization code flow. Implemented
// by oauth.Client; mocked in tests.
type IdentityProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (domain.TokenBundle, error)
	FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error)
}

// LoginResult is everything produced by a completed sign-in.
type LoginResult struct {
	User       *domain.User
	Credential *domain.Credential
	SessionID  string
}

// AuthService implements the sign-in, sign-out, and credential lifecycle.
type AuthService struct {
	users       repository.UserRepository
	sessions    repository.SessionStore
	revocations repository.RevocationStore
	provider    IdentityProvider
	issuer      *auth.Issuer
	producer    *event.Producer
	sessionTTL  time.Duration
	logger      *slog.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionStore,
	revocations repository.RevocationStore,
	provider IdentityProvider,
	issuer *auth.Issuer,
	producer *event.Producer,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		sessions:    sessions,
		revocations: revocations,
		provider:    provider,
		issuer:      issuer,
		producer:    producer,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

// AuthURL builds the external consent page URL for the given state.
func (s *AuthService) AuthURL(state string) string {
	return s.provider.AuthURL(state)
}

// CompleteLogin finishes the authorization code flow: it exchanges the code,
// resolves the identity, upserts the user record with fresh delegated
// credentials, opens a session, and issues a bearer credential.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*LoginResult, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("authorization code is required")
	}

	tokens, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.Upstream("google-oauth", err)
	}
	if tokens.ExpiresAt.IsZero() {
		// Providers occasionally omit the expiry; assume the usual hour.
		tokens.ExpiresAt = time.Now().UTC().Add(time.Hour)
	}

	profile, err := s.provider.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	user, firstTime, err := s.upsertUser(ctx, profile, tokens)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue credential: %w", err)
	}

	sessionID, err := s.sessions.Create(ctx, user.ID, s.sessionTTL)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	// Publish login event (non-blocking on failure).
	if err := s.producer.PublishUserLoggedIn(ctx, user, firstTime); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_in event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.Bool("first_time", firstTime),
	)

	return &LoginResult{
		User:       user,
		Credential: &domain.Credential{Token: token, ExpiresAt: expiresAt},
		SessionID:  sessionID,
	}, nil
}

// upsertUser finds or creates the user for the given identity and stores the
// fresh delegated credentials. Returns whether this was a first sign-in.
func (s *AuthService) upsertUser(ctx context.Context, profile *domain.Profile, tokens domain.TokenBundle) (*domain.User, bool, error) {
	user, err := s.users.GetByGoogleID(ctx, profile.ID)
	switch {
	case err == nil:
		if err := s.users.UpdateTokens(ctx, user.ID, tokens); err != nil {
			return nil, false, fmt.Errorf("refresh stored credentials: %w", err)
		}
		user.Tokens = tokens
		user.LastLogin = time.Now().UTC()
		return user, false, nil

	case errors.Is(err, apperrors.ErrNotFound):
		newUser := &domain.User{
			GoogleID: profile.ID,
			Email:    profile.Email,
			Name:     profile.Name,
			Tokens:   tokens,
		}
		createErr := s.users.Create(ctx, newUser)
		if createErr == nil {
			return newUser, true, nil
		}

		// Two concurrent first logins can race on the insert; the loser
		// re-reads the winner's row and stores its own fresh tokens.
		if errors.Is(createErr, apperrors.ErrAlreadyExists) {
			existing, getErr := s.users.GetByGoogleID(ctx, profile.ID)
			if errors.Is(getErr, apperrors.ErrNotFound) {
				// The conflict was on another column (the email is
				// already bound to a different Google account).
				return nil, false, createErr
			}
			if getErr != nil {
				return nil, false, fmt.Errorf("refetch user after create race: %w", getErr)
			}
			if err := s.users.UpdateTokens(ctx, existing.ID, tokens); err != nil {
				return nil, false, fmt.Errorf("refresh stored credentials: %w", err)
			}
			existing.Tokens = tokens
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create user: %w", createErr)

	default:
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}
}

// ResolveSession maps a session identifier to its user.
func (s *AuthService) ResolveSession(ctx context.Context, sessionID string) (*domain.User, error) {
	userID, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthenticated("session not found or expired")
		}
		return nil, apperrors.Storage(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthenticated("session user no longer exists")
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}

	return user, nil
}

// IssueCredential signs a fresh bearer credential for an already
// authenticated user.
func (s *AuthService) IssueCredential(userID, email string) (*domain.Credential, error) {
	token, expiresAt, err := s.issuer.Issue(userID, email)
	if err != nil {
		return nil, fmt.Errorf("issue credential: %w", err)
	}
	return &domain.Credential{Token: token, ExpiresAt: expiresAt}, nil
}

// GetUser loads a user by ID. Used after credential validation, so a missing
// row means the credential outlived its user.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthenticated("user no longer exists")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// ResolveCredential validates a bearer credential and checks the denylist.
// A structurally valid but revoked credential is reported distinctly so the
// client knows re-authentication, not retry, is required.
func (s *AuthService) ResolveCredential(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.issuer.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthenticated("invalid or expired credential")
	}

	revoked, err := s.revocations.IsRevoked(ctx, token)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if revoked {
		return nil, apperrors.TokenInvalidated()
	}

	return claims, nil
}

// RevokeCredential places a credential on the denylist ahead of its natural
// expiry. Revoking an already revoked credential returns AlreadyExists.
func (s *AuthService) RevokeCredential(ctx context.Context, token, userID string) error {
	if err := s.revocations.Revoke(ctx, token, userID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "credential revoked",
		slog.String("user_id", userID),
	)

	return nil
}

// Logout revokes the presented credential and the stored delegated access
// credential, then tears down the session. Revocation comes first: if a
// denylist write fails the session survives and the client sees the error,
// so a half-logged-out state cannot leave a live credential behind. A
// credential that is already on the denylist does not block the teardown.
func (s *AuthService) Logout(ctx context.Context, sessionID, token string, user *domain.User) error {
	revoke := []string{}
	if token != "" {
		revoke = append(revoke, token)
	}
	if stored := user.Tokens.AccessToken; stored != "" && stored != token {
		revoke = append(revoke, stored)
	}
	for _, t := range revoke {
		err := s.revocations.Revoke(ctx, t, user.ID)
		if err != nil && !errors.Is(err, apperrors.ErrAlreadyExists) {
			return fmt.Errorf("revoke credential on logout: %w", err)
		}
	}

	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return apperrors.Storage(err)
		}
	}

	// Publish logout event (non-blocking on failure).
	if err := s.producer.PublishUserLoggedOut(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_out event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", user.ID),
	)

	return nil
}
