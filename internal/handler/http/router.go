package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/studiogate/pkg/health"
	"github.com/utafrali/studiogate/pkg/httputil"
	"github.com/utafrali/studiogate/pkg/middleware"

	"github.com/utafrali/studiogate/internal/service"
	"github.com/utafrali/studiogate/internal/session"
)

// RouterConfig carries the handler-level settings the router needs.
type RouterConfig struct {
	CORS          middleware.CORSConfig
	SessionTTL    time.Duration
	UploadMax     int64
	SecureCookies bool
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	authService *service.AuthService,
	uploadService *service.UploadService,
	cookies *session.Codec,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("studiogate"))
	r.Use(middleware.Tracing("studiogate"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{
			Data: map[string]string{"service": "studiogate", "login": "/auth/login"},
		})
	})

	authHandler := NewAuthHandler(authService, cookies, cfg.SessionTTL, cfg.SecureCookies, logger)
	uploadHandler := NewUploadHandler(uploadService, cfg.UploadMax, logger)

	// Sign-in flow (public). The /auth/google aliases match the provider
	// console's registered redirect URI.
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.BeginLogin)
		r.Get("/google", authHandler.BeginLogin)
		r.Get("/callback", authHandler.Callback)
		r.Get("/google/callback", authHandler.Callback)
		r.Get("/failure", authHandler.Failure)
		r.Get("/consent-error", authHandler.ConsentError)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(authService, cookies, logger))
			r.Get("/success", authHandler.Success)
			r.Get("/status", authHandler.Status)
			r.Get("/logout", authHandler.Logout)
			r.Post("/logout", authHandler.Logout)
			r.Post("/revoke", authHandler.Revoke)
		})
	})

	// Upload (authenticated, delegated access required)
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(authService, cookies, logger))
		r.Use(RequireDelegatedAccess(logger))
		r.Post("/upload", uploadHandler.Upload)
	})

	// Authenticated API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(authService, cookies, logger))

		r.Get("/users/me", authHandler.Me)

		r.Group(func(r chi.Router) {
			r.Use(RequireDelegatedAccess(logger))
			r.Post("/videos", uploadHandler.Upload)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "route not found"},
		})
	})

	return r
}
