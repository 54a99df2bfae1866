package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/studiogate/pkg/errors"
)

func testClient(userinfoURL string) *Client {
	return NewClient(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/auth/google/callback",
		UserinfoURL:  userinfoURL,
	}, nil)
}

func TestAuthURL_Params(t *testing.T) {
	c := testClient("")

	raw := c.AuthURL("state-token-abc")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:8080/auth/google/callback", q.Get("redirect_uri"))
	assert.Equal(t, "state-token-abc", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))

	scope := q.Get("scope")
	assert.Contains(t, scope, "userinfo.profile")
	assert.Contains(t, scope, "userinfo.email")
	assert.Contains(t, scope, "youtube.upload")
	assert.Contains(t, scope, "openid")
}

func TestNewState_RandomAndURLSafe(t *testing.T) {
	first, err := NewState()
	require.NoError(t, err)
	second, err := NewState()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
	assert.NotEmpty(t, first)
}

func TestFetchProfile_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ya29.access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"google-uid-42","email":"alice@example.com","name":"Alice Smith"}`))
	}))
	defer server.Close()

	c := testClient(server.URL)

	profile, err := c.FetchProfile(context.Background(), "ya29.access")
	require.NoError(t, err)
	assert.Equal(t, "google-uid-42", profile.ID)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, "Alice Smith", profile.Name)
}

func TestFetchProfile_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	defer server.Close()

	c := testClient(server.URL)

	_, err := c.FetchProfile(context.Background(), "stale-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated), "expected ErrUnauthenticated, got: %v", err)
}

func TestFetchProfile_MissingSubject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"email":"alice@example.com"}`))
	}))
	defer server.Close()

	c := testClient(server.URL)

	_, err := c.FetchProfile(context.Background(), "ya29.access")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing subject")
}

func TestFetchProfile_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{broken`))
	}))
	defer server.Close()

	c := testClient(server.URL)

	_, err := c.FetchProfile(context.Background(), "ya29.access")
	require.Error(t, err)
}
