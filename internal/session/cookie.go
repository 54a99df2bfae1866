package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

// CookieName is the session cookie issued after login.
const CookieName = "studiogate_session"

// ErrInvalidCookie is returned when the cookie is absent, malformed, or its
// signature does not verify.
var ErrInvalidCookie = errors.New("invalid session cookie")

// Codec writes and reads HMAC-signed session cookies. The cookie value is
// "<session-id>.<signature>" so a client cannot mint or alter session IDs.
type Codec struct {
	secret []byte
	secure bool
}

// NewCodec creates a cookie codec. secure controls the cookie's Secure flag
// and should be true outside development.
func NewCodec(secret string, secure bool) *Codec {
	return &Codec{secret: []byte(secret), secure: secure}
}

// Write sets the signed session cookie on the response.
func (c *Codec) Write(w http.ResponseWriter, sessionID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID + "." + c.sign(sessionID),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read extracts and verifies the session ID from the request cookie.
func (c *Codec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrInvalidCookie
	}

	sessionID, sig, ok := strings.Cut(cookie.Value, ".")
	if !ok || sessionID == "" {
		return "", ErrInvalidCookie
	}

	if !hmac.Equal([]byte(sig), []byte(c.sign(sessionID))) {
		return "", ErrInvalidCookie
	}

	return sessionID, nil
}

// Clear expires the session cookie on the response.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Codec) sign(sessionID string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
