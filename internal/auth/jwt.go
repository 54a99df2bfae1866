package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors distinguishing why a credential was rejected.
var (
	ErrExpired          = errors.New("credential expired")
	ErrInvalidSignature = errors.New("credential signature invalid")
	ErrMalformed        = errors.New("credential malformed")
)

// Claims represents the JWT claims for an issued bearer credential.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer handles bearer credential generation and validation.
type Issuer struct {
	secret       []byte
	accessExpiry time.Duration
}

// NewIssuer creates a credential issuer with the given secret and expiry.
func NewIssuer(secret string, accessExpiry time.Duration) *Issuer {
	return &Issuer{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
	}
}

// Expiry returns the configured credential lifetime.
func (m *Issuer) Expiry() time.Duration {
	return m.accessExpiry
}

// Issue creates a signed bearer credential for the given user.
func (m *Issuer) Issue(userID, email string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(m.accessExpiry)
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "studiogate",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign credential: %w", err)
	}

	return signedToken, expiresAt, nil
}

// Validate parses and validates a bearer credential, returning the claims.
// The error wraps one of the package sentinels so callers can distinguish an
// expired credential from a tampered or garbled one.
func (m *Issuer) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrMalformed)
	}

	return claims, nil
}
