package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/studiogate/pkg/errors"
	"github.com/utafrali/studiogate/pkg/httputil"

	"github.com/utafrali/studiogate/internal/domain"
	"github.com/utafrali/studiogate/internal/service"
	"github.com/utafrali/studiogate/internal/session"
)

// Principal is the authenticated caller attached to the request context.
// Token is set when the request carried a bearer credential, SessionID when
// it carried a session cookie; a request may carry both.
type Principal struct {
	User      *domain.User
	Token     string
	SessionID string
}

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// Authenticate resolves the caller from either a bearer credential or a
// session cookie. Bearer credentials win when both are present; a revoked
// credential is rejected even if the session is still live, so revocation
// cannot be bypassed by replaying the cookie alongside it.
func Authenticate(svc *service.AuthService, cookies *session.Codec, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := &Principal{}

			if sessionID, err := cookies.Read(r); err == nil {
				p.SessionID = sessionID
			}

			if auth := r.Header.Get("Authorization"); auth != "" {
				token, ok := strings.CutPrefix(auth, "Bearer ")
				if !ok || token == "" {
					httputil.WriteError(w, r, apperrors.Unauthenticated("authorization header must be a bearer credential"), logger)
					return
				}
				p.Token = token

				claims, err := svc.ResolveCredential(r.Context(), token)
				if err != nil {
					httputil.WriteError(w, r, err, logger)
					return
				}

				user, err := svc.GetUser(r.Context(), claims.UserID)
				if err != nil {
					httputil.WriteError(w, r, err, logger)
					return
				}
				p.User = user
			} else if p.SessionID != "" {
				user, err := svc.ResolveSession(r.Context(), p.SessionID)
				if err != nil {
					httputil.WriteError(w, r, err, logger)
					return
				}
				p.User = user
			} else {
				httputil.WriteError(w, r, apperrors.Unauthenticated("authentication required"), logger)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireDelegatedAccess rejects callers whose account has no stored upload
// credentials. The upload service re-checks this, but failing early keeps
// large request bodies from being read for nothing.
func RequireDelegatedAccess(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				httputil.WriteError(w, r, apperrors.Unauthenticated("authentication required"), logger)
				return
			}
			if !p.User.HasDelegatedAccess() {
				httputil.WriteError(w, r, apperrors.MissingDelegatedAccess(), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
