package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/studiogate/pkg/errors"
	pkgkafka "github.com/utafrali/studiogate/pkg/kafka"

	"github.com/utafrali/studiogate/internal/auth"
	"github.com/utafrali/studiogate/internal/domain"
	"github.com/utafrali/studiogate/internal/event"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	args := m.Called(ctx, googleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) UpdateTokens(ctx context.Context, userID string, tokens domain.TokenBundle) error {
	args := m.Called(ctx, userID, tokens)
	return args.Error(0)
}

// --- Mock Session Store ---

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, userID, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Error(1)
}

func (m *mockSessionStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// --- Mock Revocation Store ---

type mockRevocationStore struct {
	mock.Mock
}

func (m *mockRevocationStore) Revoke(ctx context.Context, token, userID string) error {
	args := m.Called(ctx, token, userID)
	return args.Error(0)
}

func (m *mockRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

// --- Mock Identity Provider ---

type mockIdentityProvider struct {
	mock.Mock
}

func (m *mockIdentityProvider) AuthURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *mockIdentityProvider) Exchange(ctx context.Context, code string) (domain.TokenBundle, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.TokenBundle), args.Error(1)
}

func (m *mockIdentityProvider) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

// --- Mock Kafka Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, evt *pkgkafka.Event) error {
	args := m.Called(ctx, topic, evt)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestIssuer() *auth.Issuer {
	return auth.NewIssuer("test-secret-key-for-testing", time.Hour)
}

func newTestProducer(pub *mockPublisher) *event.Producer {
	return event.NewProducer(pub, newTestLogger())
}

type authFixture struct {
	users       *mockUserRepository
	sessions    *mockSessionStore
	revocations *mockRevocationStore
	provider    *mockIdentityProvider
	publisher   *mockPublisher
	svc         *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:       new(mockUserRepository),
		sessions:    new(mockSessionStore),
		revocations: new(mockRevocationStore),
		provider:    new(mockIdentityProvider),
		publisher:   new(mockPublisher),
	}
	f.svc = NewAuthService(
		f.users,
		f.sessions,
		f.revocations,
		f.provider,
		newTestIssuer(),
		newTestProducer(f.publisher),
		24*time.Hour,
		newTestLogger(),
	)
	return f
}

func testTokens() domain.TokenBundle {
	return domain.TokenBundle{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		Scope:        "openid email profile https://www.googleapis.com/auth/youtube.upload",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}
}

func testProfile() *domain.Profile {
	return &domain.Profile{
		ID:    "google-sub-123",
		Email: "creator@example.com",
		Name:  "Creator",
	}
}

// --- CompleteLogin Tests ---

func TestCompleteLogin_FirstTimeCreatesUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	tokens := testTokens()

	f.provider.On("Exchange", ctx, "auth-code").Return(tokens, nil)
	f.provider.On("FetchProfile", ctx, tokens.AccessToken).Return(testProfile(), nil)
	f.users.On("GetByGoogleID", ctx, "google-sub-123").
		Return(nil, apperrors.NotFound("user", "google-sub-123"))
	f.users.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			u := args.Get(1).(*domain.User)
			u.ID = "user-1"
		}).
		Return(nil)
	f.sessions.On("Create", ctx, "user-1", 24*time.Hour).Return("session-1", nil)
	f.publisher.On("Publish", ctx, event.TopicUserLoggedIn, mock.AnythingOfType("*kafka.Event")).Return(nil)

	result, err := f.svc.CompleteLogin(ctx, "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)
	assert.Equal(t, "creator@example.com", result.User.Email)
	assert.Equal(t, tokens.AccessToken, result.User.Tokens.AccessToken)
	assert.NotEmpty(t, result.Credential.Token)
	assert.False(t, result.Credential.ExpiresAt.IsZero())
	assert.Equal(t, "session-1", result.SessionID)

	f.users.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestCompleteLogin_ReturningUserUpdatesTokens(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	tokens := testTokens()

	existing := &domain.User{
		ID:       "user-1",
		GoogleID: "google-sub-123",
		Email:    "creator@example.com",
		Name:     "Creator",
	}

	f.provider.On("Exchange", ctx, "auth-code").Return(tokens, nil)
	f.provider.On("FetchProfile", ctx, tokens.AccessToken).Return(testProfile(), nil)
	f.users.On("GetByGoogleID", ctx, "google-sub-123").Return(existing, nil)
	f.users.On("UpdateTokens", ctx, "user-1", tokens).Return(nil)
	f.sessions.On("Create", ctx, "user-1", 24*time.Hour).Return("session-2", nil)
	f.publisher.On("Publish", ctx, event.TopicUserLoggedIn, mock.AnythingOfType("*kafka.Event")).Return(nil)

	result, err := f.svc.CompleteLogin(ctx, "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)
	assert.Equal(t, tokens.AccessToken, result.User.Tokens.AccessToken)

	f.users.AssertExpectations(t)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCompleteLogin_CreateRaceRefetchesWinner(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	tokens := testTokens()

	winner := &domain.User{
		ID:       "user-1",
		GoogleID: "google-sub-123",
		Email:    "creator@example.com",
	}

	f.provider.On("Exchange", ctx, "auth-code").Return(tokens, nil)
	f.provider.On("FetchProfile", ctx, tokens.AccessToken).Return(testProfile(), nil)
	f.users.On("GetByGoogleID", ctx, "google-sub-123").
		Return(nil, apperrors.NotFound("user", "google-sub-123")).Once()
	f.users.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "google_id", "google-sub-123"))
	f.users.On("GetByGoogleID", ctx, "google-sub-123").Return(winner, nil).Once()
	f.users.On("UpdateTokens", ctx, "user-1", tokens).Return(nil)
	f.sessions.On("Create", ctx, "user-1", 24*time.Hour).Return("session-3", nil)
	f.publisher.On("Publish", ctx, event.TopicUserLoggedIn, mock.AnythingOfType("*kafka.Event")).Return(nil)

	result, err := f.svc.CompleteLogin(ctx, "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)

	f.users.AssertExpectations(t)
}

func TestCompleteLogin_EmailBoundToAnotherAccount(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	tokens := testTokens()

	f.provider.On("Exchange", ctx, "auth-code").Return(tokens, nil)
	f.provider.On("FetchProfile", ctx, tokens.AccessToken).Return(testProfile(), nil)
	f.users.On("GetByGoogleID", ctx, "google-sub-123").
		Return(nil, apperrors.NotFound("user", "google-sub-123")).Once()
	f.users.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "creator@example.com"))
	f.users.On("GetByGoogleID", ctx, "google-sub-123").
		Return(nil, apperrors.NotFound("user", "google-sub-123")).Once()

	result, err := f.svc.CompleteLogin(ctx, "auth-code")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "email")
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteLogin_EmptyCode(t *testing.T) {
	f := newAuthFixture()

	result, err := f.svc.CompleteLogin(context.Background(), "")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	f.provider.AssertNotCalled(t, "Exchange", mock.Anything, mock.Anything)
}

func TestCompleteLogin_ExchangeFailure(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.provider.On("Exchange", ctx, "bad-code").
		Return(domain.TokenBundle{}, errors.New("invalid_grant"))

	result, err := f.svc.CompleteLogin(ctx, "bad-code")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamFailure)
}

func TestCompleteLogin_MissingProviderExpiryDefaultsToAnHour(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	tokens := testTokens()
	tokens.ExpiresAt = time.Time{}

	existing := &domain.User{ID: "user-1", GoogleID: "google-sub-123"}

	f.provider.On("Exchange", ctx, "auth-code").Return(tokens, nil)
	f.provider.On("FetchProfile", ctx, tokens.AccessToken).Return(testProfile(), nil)
	f.users.On("GetByGoogleID", ctx, "google-sub-123").Return(existing, nil)
	f.users.On("UpdateTokens", ctx, "user-1", mock.MatchedBy(func(tb domain.TokenBundle) bool {
		return !tb.ExpiresAt.IsZero() && time.Until(tb.ExpiresAt) <= time.Hour
	})).Return(nil)
	f.sessions.On("Create", ctx, "user-1", 24*time.Hour).Return("session-4", nil)
	f.publisher.On("Publish", ctx, event.TopicUserLoggedIn, mock.AnythingOfType("*kafka.Event")).Return(nil)

	_, err := f.svc.CompleteLogin(ctx, "auth-code")

	require.NoError(t, err)
	f.users.AssertExpectations(t)
}

func TestCompleteLogin_PublishFailureDoesNotFailLogin(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	tokens := testTokens()

	existing := &domain.User{ID: "user-1", GoogleID: "google-sub-123"}

	f.provider.On("Exchange", ctx, "auth-code").Return(tokens, nil)
	f.provider.On("FetchProfile", ctx, tokens.AccessToken).Return(testProfile(), nil)
	f.users.On("GetByGoogleID", ctx, "google-sub-123").Return(existing, nil)
	f.users.On("UpdateTokens", ctx, "user-1", tokens).Return(nil)
	f.sessions.On("Create", ctx, "user-1", 24*time.Hour).Return("session-5", nil)
	f.publisher.On("Publish", ctx, event.TopicUserLoggedIn, mock.AnythingOfType("*kafka.Event")).
		Return(errors.New("broker unreachable"))

	result, err := f.svc.CompleteLogin(ctx, "auth-code")

	require.NoError(t, err)
	assert.Equal(t, "session-5", result.SessionID)
}

// --- ResolveSession Tests ---

func TestResolveSession_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user := &domain.User{ID: "user-1", Email: "creator@example.com"}

	f.sessions.On("Get", ctx, "session-1").Return("user-1", nil)
	f.users.On("GetByID", ctx, "user-1").Return(user, nil)

	got, err := f.svc.ResolveSession(ctx, "session-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)
}

func TestResolveSession_Expired(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.sessions.On("Get", ctx, "session-gone").
		Return("", apperrors.NotFound("session", "session-gone"))

	got, err := f.svc.ResolveSession(ctx, "session-gone")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

// --- ResolveCredential Tests ---

func TestResolveCredential_Valid(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	issuer := newTestIssuer()
	token, _, err := issuer.Issue("user-1", "creator@example.com")
	require.NoError(t, err)

	f.revocations.On("IsRevoked", ctx, token).Return(false, nil)

	claims, err := f.svc.ResolveCredential(ctx, token)

	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "creator@example.com", claims.Email)
}

func TestResolveCredential_Revoked(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	issuer := newTestIssuer()
	token, _, err := issuer.Issue("user-1", "creator@example.com")
	require.NoError(t, err)

	f.revocations.On("IsRevoked", ctx, token).Return(true, nil)

	claims, err := f.svc.ResolveCredential(ctx, token)

	assert.Nil(t, claims)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalidated)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestResolveCredential_Malformed(t *testing.T) {
	f := newAuthFixture()

	claims, err := f.svc.ResolveCredential(context.Background(), "not-a-token")

	assert.Nil(t, claims)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	f.revocations.AssertNotCalled(t, "IsRevoked", mock.Anything, mock.Anything)
}

// --- Logout Tests ---

func logoutUser() *domain.User {
	return &domain.User{
		ID: "user-1",
		Tokens: domain.TokenBundle{
			AccessToken: "ya29.stored",
		},
	}
}

func TestLogout_RevokesBeforeTeardown(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.revocations.On("Revoke", ctx, "bearer-token", "user-1").Return(nil)
	f.revocations.On("Revoke", ctx, "ya29.stored", "user-1").Return(nil)
	f.sessions.On("Delete", ctx, "session-1").Return(nil)
	f.publisher.On("Publish", ctx, event.TopicUserLoggedOut, mock.AnythingOfType("*kafka.Event")).Return(nil)

	err := f.svc.Logout(ctx, "session-1", "bearer-token", logoutUser())

	require.NoError(t, err)
	f.revocations.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
}

func TestLogout_RevokeFailureKeepsSession(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.revocations.On("Revoke", ctx, "bearer-token", "user-1").
		Return(apperrors.Storage(errors.New("redis down")))

	err := f.svc.Logout(ctx, "session-1", "bearer-token", logoutUser())

	assert.ErrorIs(t, err, apperrors.ErrStorageFailure)
	f.sessions.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestLogout_AlreadyRevokedTolerated(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.revocations.On("Revoke", ctx, "bearer-token", "user-1").
		Return(apperrors.AlreadyExists("revocation", "token", "abc"))
	f.revocations.On("Revoke", ctx, "ya29.stored", "user-1").Return(nil)
	f.sessions.On("Delete", ctx, "session-1").Return(nil)
	f.publisher.On("Publish", ctx, event.TopicUserLoggedOut, mock.AnythingOfType("*kafka.Event")).Return(nil)

	err := f.svc.Logout(ctx, "session-1", "bearer-token", logoutUser())

	require.NoError(t, err)
	f.sessions.AssertExpectations(t)
}

// A cookie-only logout still writes the stored delegated credential to the
// denylist: signing out must not depend on the client presenting a bearer.
func TestLogout_NoBearerRevokesStoredCredential(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.revocations.On("Revoke", ctx, "ya29.stored", "user-1").Return(nil)
	f.sessions.On("Delete", ctx, "session-1").Return(nil)
	f.publisher.On("Publish", ctx, event.TopicUserLoggedOut, mock.AnythingOfType("*kafka.Event")).Return(nil)

	err := f.svc.Logout(ctx, "session-1", "", logoutUser())

	require.NoError(t, err)
	f.revocations.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
}

func TestLogout_NoStoredCredentialSkipsSecondRevocation(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	bare := &domain.User{ID: "user-1"}

	f.revocations.On("Revoke", ctx, "bearer-token", "user-1").Return(nil)
	f.sessions.On("Delete", ctx, "session-1").Return(nil)
	f.publisher.On("Publish", ctx, event.TopicUserLoggedOut, mock.AnythingOfType("*kafka.Event")).Return(nil)

	err := f.svc.Logout(ctx, "session-1", "bearer-token", bare)

	require.NoError(t, err)
	f.revocations.AssertNumberOfCalls(t, "Revoke", 1)
}
