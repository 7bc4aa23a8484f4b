package middleware

import (
	"errors"
	"net/http"
	"strings"

	"user-admin-service/internal/http/response"
	"user-admin-service/internal/security"
	"user-admin-service/internal/service"
)

// RequireAuth accepts the access token from the cookie or an Authorization
// bearer header and rejects the request when neither parses. Claims land in
// the request context for the handlers behind it.
func RequireAuth(jwtMgr *security.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, security.AccessTokenCookie)
			if raw == "" {
				raw = bearerToken(r)
			}
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
				return
			}
			claims, err := jwtMgr.ParseAccessToken(raw)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// BlockGate re-reads the account behind a valid access token on every
// request. A token is never enough on its own: a user blocked or deleted a
// moment ago is refused even though the token has minutes left to live.
func BlockGate(auth *service.AuthService, cookies *security.CookieManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
				return
			}
			userID, err := security.UserIDFromClaims(claims)
			if err != nil {
				cookies.ClearTokenCookies(w)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
				return
			}
			user, err := auth.AuthorizeActive(r.Context(), userID)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrAccessDenied):
					cookies.ClearTokenCookies(w)
					response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "Access denied.", nil)
				case errors.Is(err, service.ErrUnauthorized):
					cookies.ClearTokenCookies(w)
					response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
				default:
					response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong.", nil)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) >= len("bearer ")+1 && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}
