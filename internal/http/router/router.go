package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"user-admin-service/internal/http/handler"
	"user-admin-service/internal/http/middleware"
	"user-admin-service/internal/http/response"
	"user-admin-service/internal/security"
	"user-admin-service/internal/service"
)

// Dependencies carries everything the router mounts. The Limiter is shared
// across scopes; nil falls back to an in-process fixed window.
type Dependencies struct {
	Logger      *slog.Logger
	AuthHandler *handler.AuthHandler
	UserHandler *handler.UserHandler
	JWTManager  *security.JWTManager
	Cookies     *security.CookieManager
	AuthService *service.AuthService
	Limiter     middleware.Limiter

	CORSOrigins           []string
	AuthRateLimitRPM      int
	APIRateLimitRPM       int
	RateLimitFailOpen     bool
	RateLimitTrustedCIDRs []string
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(dep.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(dep.CORSOrigins))

	r.Get("/health/live", func(w http.ResponseWriter, req *http.Request) {
		response.JSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		response.JSON(w, req, http.StatusOK, map[string]string{"status": "ready"})
	})

	limiter := dep.Limiter
	if limiter == nil {
		limiter = middleware.NewLocalFixedWindowLimiter()
	}
	mode := middleware.FailClosed
	if dep.RateLimitFailOpen {
		mode = middleware.FailOpen
	}
	bypass := middleware.NewBypassEvaluator(middleware.BypassConfig{
		ProbePaths:   []string{"/health/live", "/health/ready"},
		TrustedCIDRs: dep.RateLimitTrustedCIDRs,
	})
	authLimit := middleware.NewDistributedRateLimiter(limiter, dep.AuthRateLimitRPM, time.Minute, mode, "auth").
		WithBypass(bypass)
	apiLimit := middleware.NewDistributedRateLimiterWithKey(limiter, dep.APIRateLimitRPM, time.Minute, mode, "api",
		middleware.SubjectOrIPKeyFunc(dep.JWTManager)).
		WithBypass(bypass)

	requireAuth := middleware.RequireAuth(dep.JWTManager)
	blockGate := middleware.BlockGate(dep.AuthService, dep.Cookies)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(authLimit.Middleware())
		r.Post("/register", dep.AuthHandler.Register)
		r.Post("/login", dep.AuthHandler.Login)
		r.Post("/refresh", dep.AuthHandler.Refresh)
		r.Post("/logout", dep.AuthHandler.Logout)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, blockGate)
			r.Get("/check", dep.AuthHandler.Check)
			r.Get("/verify-email", dep.AuthHandler.VerifyEmail)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(apiLimit.Middleware())
		r.Use(requireAuth, blockGate)
		r.Get("/", dep.UserHandler.List)
		r.Delete("/unverified", dep.UserHandler.DeleteUnverified)
		r.Patch("/{id}/block", dep.UserHandler.Block)
		r.Patch("/{id}/unblock", dep.UserHandler.Unblock)
		r.Delete("/{id}", dep.UserHandler.Delete)
	})

	return r
}

// corsMiddleware allows the configured dashboard origins to call the API
// with credentials. Cookies require an exact origin echo, never a wildcard.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Vary", "Origin")
				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
					h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
					h.Set("Access-Control-Max-Age", "600")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}
