package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/utafrali/studiogate/internal/domain"
	"github.com/utafrali/studiogate/pkg/httpclient"
)

// Scopes requested from Google. Profile and email identify the user; the
// youtube.upload scope lets the service publish videos on their behalf.
var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/youtube.upload",
	"openid",
}

const defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Config holds the Google OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// UserinfoURL overrides the Google userinfo endpoint. Used in tests.
	UserinfoURL string
}

// Client drives the Google authorization code flow and profile lookup.
type Client struct {
	oauth       *oauth2.Config
	userinfoURL string
	http        *httpclient.Client
}

// NewClient creates a Google OAuth client.
func NewClient(cfg Config, hc *httpclient.Client) *Client {
	userinfoURL := cfg.UserinfoURL
	if userinfoURL == "" {
		userinfoURL = defaultUserinfoURL
	}
	if hc == nil {
		hc = httpclient.New(httpclient.DefaultConfig())
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		userinfoURL: userinfoURL,
		http:        hc,
	}
}

// NewState returns a random, URL-safe state value for CSRF protection.
func NewState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// AuthURL builds the Google consent page URL. Offline access with a forced
// consent prompt guarantees a refresh token on every approval.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange swaps an authorization code for Google tokens.
func (c *Client) Exchange(ctx context.Context, code string) (domain.TokenBundle, error) {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.TokenBundle{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	bundle := domain.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		bundle.ExpiresAt = tok.Expiry.UTC()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		bundle.Scope = scope
	}

	return bundle, nil
}

// FetchProfile retrieves the user's identity from the userinfo endpoint.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "google-userinfo")
	}

	var profile domain.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("userinfo response missing subject id")
	}

	return &profile, nil
}
