package domain

import (
	"time"
)

// TokenBundle holds the delegated Google credentials stored for a user.
type TokenBundle struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	Scope        string    `json:"scope,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// User represents a registered user in the system. Accounts are created on
// first Google sign-in; there is no password credential.
type User struct {
	ID        string      `json:"id"`
	GoogleID  string      `json:"google_id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Tokens    TokenBundle `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	LastLogin time.Time   `json:"last_login"`
}

// HasDelegatedAccess reports whether the user has a Google access token on
// file that can be used to act on their behalf.
func (u *User) HasDelegatedAccess() bool {
	return u.Tokens.AccessToken != ""
}

// Profile is the identity returned by the Google userinfo endpoint.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Credential is the bearer credential issued to a client after login.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
