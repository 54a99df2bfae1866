package http

import (
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/utafrali/studiogate/pkg/errors"
	"github.com/utafrali/studiogate/pkg/httputil"

	"github.com/utafrali/studiogate/internal/domain"
	"github.com/utafrali/studiogate/internal/oauth"
	"github.com/utafrali/studiogate/internal/service"
	"github.com/utafrali/studiogate/internal/session"
)

// stateCookieName holds the anti-forgery state between the redirect to the
// consent page and the callback.
const stateCookieName = "studiogate_oauth_state"

// stateTTL bounds how long a pending consent flow stays valid.
const stateTTL = 10 * time.Minute

// consentRemediation is returned whenever the user declines on the consent
// screen. Unverified apps only admit allow-listed accounts, so the denial is
// usually fixable.
const consentRemediation = "access was denied on the consent screen; if this app is unverified, ask its owner to add your account as a test user"

// AuthHandler handles the sign-in flow and credential lifecycle endpoints.
type AuthHandler struct {
	service    *service.AuthService
	cookies    *session.Codec
	sessionTTL time.Duration
	secure     bool
	logger     *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, cookies *session.Codec, sessionTTL time.Duration, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:    svc,
		cookies:    cookies,
		sessionTTL: sessionTTL,
		secure:     secure,
		logger:     logger,
	}
}

// --- Response types ---

// CredentialBundle is the delegated provider credential as returned to the
// signed-in user on /auth/success and /auth/status.
type CredentialBundle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionResponse is the signed-in summary: profile, the delegated provider
// bundle, and a bearer credential for API calls.
type SessionResponse struct {
	User       *domain.Profile    `json:"user"`
	Tokens     CredentialBundle   `json:"tokens"`
	Credential *domain.Credential `json:"credential,omitempty"`
}

func bundleFrom(u *domain.User) CredentialBundle {
	return CredentialBundle{
		AccessToken:  u.Tokens.AccessToken,
		RefreshToken: u.Tokens.RefreshToken,
		Scope:        u.Tokens.Scope,
		TokenType:    u.Tokens.TokenType,
		ExpiresAt:    u.Tokens.ExpiresAt,
	}
}

// --- Handlers ---

// BeginLogin handles GET /auth/login. It stores a fresh anti-forgery state
// in a short-lived cookie and redirects the browser to the consent page.
func (h *AuthHandler) BeginLogin(w http.ResponseWriter, r *http.Request) {
	state, err := oauth.NewState()
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /auth/callback. The provider redirects here with
// either an authorization code or an error. A denied consent lands on the
// consent-error endpoint, which must never collapse into the generic failure
// path; everything else that goes wrong ends up on /auth/failure.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if provErr := q.Get("error"); provErr != "" {
		if provErr == "access_denied" {
			http.Redirect(w, r, "/auth/consent-error", http.StatusFound)
			return
		}
		h.logger.WarnContext(r.Context(), "provider returned authorization error",
			slog.String("error", provErr),
		)
		http.Redirect(w, r, "/auth/failure", http.StatusFound)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != q.Get("state") {
		h.logger.WarnContext(r.Context(), "callback state mismatch")
		http.Redirect(w, r, "/auth/failure", http.StatusFound)
		return
	}
	clearStateCookie(w, h.secure)

	result, err := h.service.CompleteLogin(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "login failed",
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/auth/failure", http.StatusFound)
		return
	}

	h.cookies.Write(w, result.SessionID, h.sessionTTL)
	http.Redirect(w, r, "/auth/success", http.StatusFound)
}

// Success handles GET /auth/success. Only reachable with an established
// session; returns the profile, the provider bundle, and a fresh bearer
// credential.
func (h *AuthHandler) Success(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httputil.WriteError(w, r, apperrors.Unauthenticated("not authenticated"), h.logger)
		return
	}

	cred, err := h.service.IssueCredential(p.User.ID, p.User.Email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SessionResponse{
			User:       &domain.Profile{ID: p.User.ID, Email: p.User.Email, Name: p.User.Name},
			Tokens:     bundleFrom(p.User),
			Credential: cred,
		},
	})
}

// Status handles GET /auth/status. Requires authentication (which includes
// the revocation check for bearer callers) and returns the signed-in summary.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httputil.WriteError(w, r, apperrors.Unauthenticated("not authenticated"), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: SessionResponse{
			User:   &domain.Profile{ID: p.User.ID, Email: p.User.Email, Name: p.User.Name},
			Tokens: bundleFrom(p.User),
		},
	})
}

// Failure handles GET /auth/failure.
func (h *AuthHandler) Failure(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, r, apperrors.Unauthenticated("login failed, restart the login flow"), h.logger)
}

// ConsentError handles GET /auth/consent-error with a remediation message.
func (h *AuthHandler) ConsentError(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, r, apperrors.ConsentDenied(consentRemediation), h.logger)
}

// Logout handles GET /auth/logout. The presented credential and the stored
// delegated access credential are revoked before the session is torn down; a
// denylist failure leaves the session in place and surfaces the error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httputil.WriteError(w, r, apperrors.Unauthenticated("not authenticated"), h.logger)
		return
	}

	if err := h.service.Logout(r.Context(), p.SessionID, p.Token, p.User); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.Clear(w)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "logged out"},
	})
}

// Revoke handles POST /auth/revoke. It puts the presented bearer credential
// on the denylist without touching the session.
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httputil.WriteError(w, r, apperrors.Unauthenticated("not authenticated"), h.logger)
		return
	}
	if p.Token == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("a bearer credential is required to revoke"), h.logger)
		return
	}

	if err := h.service.RevokeCredential(r.Context(), p.Token, p.User.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "credential revoked"},
	})
}

// Me handles GET /api/v1/users/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httputil.WriteError(w, r, apperrors.Unauthenticated("not authenticated"), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: p.User})
}

func clearStateCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
