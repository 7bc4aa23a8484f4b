package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"user-admin-service/internal/http/middleware"
	"user-admin-service/internal/http/response"
	"user-admin-service/internal/repository"
	"user-admin-service/internal/security"
	"user-admin-service/internal/service"
)

type AuthHandler struct {
	authSvc *service.AuthService
	jwtMgr  *security.JWTManager
	cookies *security.CookieManager
}

func NewAuthHandler(authSvc *service.AuthService, jwtMgr *security.JWTManager, cookies *security.CookieManager) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, jwtMgr: jwtMgr, cookies: cookies}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Title    string `json:"title,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body.", nil)
		return
	}

	user, pair, err := h.authSvc.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Title:    req.Title,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPassword):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Must enter non-empty password", nil)
		case errors.Is(err, service.ErrEmptyName):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Must enter non-empty name", nil)
		case errors.Is(err, service.ErrInvalidEmail):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Must enter a valid email", nil)
		case errors.Is(err, repository.ErrDuplicateEmail):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "An account with this email already exists.", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong.", nil)
		}
		return
	}

	h.cookies.SetTokenCookies(w, pair.AccessToken, pair.RefreshToken)
	response.JSON(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body.", nil)
		return
	}

	user, pair, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password.", nil)
		case errors.Is(err, service.ErrAccessDenied):
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "Access denied.", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong.", nil)
		}
		return
	}

	h.cookies.SetTokenCookies(w, pair.AccessToken, pair.RefreshToken)
	response.JSON(w, r, http.StatusOK, user)
}

// Refresh rotates the session off the refresh cookie. Any failure clears
// both cookies: a client that cannot refresh holds nothing worth keeping.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := security.GetCookie(r, security.RefreshTokenCookie)
	if raw == "" {
		h.cookies.ClearTokenCookies(w)
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
		return
	}

	user, pair, err := h.authSvc.Refresh(r.Context(), raw)
	if err != nil {
		h.cookies.ClearTokenCookies(w)
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong.", nil)
		}
		return
	}

	h.cookies.SetTokenCookies(w, pair.AccessToken, pair.RefreshToken)
	response.JSON(w, r, http.StatusOK, user)
}

// Logout succeeds no matter what came in: expired token, no token, already
// logged out. The cookies are gone either way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := security.GetCookie(r, security.AccessTokenCookie); raw != "" {
		if claims, err := h.jwtMgr.ParseAccessToken(raw); err == nil {
			if userID, err := security.UserIDFromClaims(claims); err == nil {
				if err := h.authSvc.Logout(r.Context(), userID); err != nil {
					response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong.", nil)
					return
				}
			}
		}
	}
	h.cookies.ClearTokenCookies(w)
	response.Message(w, r, http.StatusOK, "Logged out.")
}

// Check reports the authenticated account. It sits behind the auth and
// block middleware, so reaching it at all means the session is good.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
		return
	}
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	response.JSON(w, r, http.StatusOK, user)
}

// VerifyEmail confirms the authenticated account's pending verification.
// The route sits behind the auth and block middleware; the emailed link
// only works in a browser that already holds the session cookies.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
		return
	}
	alreadyVerified, err := h.authSvc.VerifyEmail(r.Context(), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
		case errors.Is(err, service.ErrVerificationNotFound):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "No verification token found for this user.", nil)
		case errors.Is(err, service.ErrVerificationExpired):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Verification link has expired. Please request a new one.", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong.", nil)
		}
		return
	}
	if alreadyVerified {
		response.Message(w, r, http.StatusOK, "Email already verified. You can now log in.")
		return
	}
	response.Message(w, r, http.StatusOK, "Email verified successfully! You can now log in.")
}

func authUserIDAndClaims(r *http.Request) (uint, *security.Claims, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return 0, nil, errors.New("missing auth context")
	}
	id64, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, nil, err
	}
	return uint(id64), claims, nil
}
