package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"user-admin-service/internal/domain"
	"user-admin-service/internal/repository"
	"user-admin-service/internal/security"
	"user-admin-service/internal/service"
)

// gateUserRepository serves a single account to the auth service. Only the
// lookups and the session revocation used by the gate are live.
type gateUserRepository struct {
	user        *domain.User
	clearedHash bool
}

func (g *gateUserRepository) FindByID(id uint) (*domain.User, error) {
	if g.user == nil || g.user.ID != id {
		return nil, repository.ErrUserNotFound
	}
	return g.user, nil
}
func (g *gateUserRepository) SetRefreshTokenHash(id uint, hash *string) error {
	if hash == nil {
		g.clearedHash = true
		if g.user != nil {
			g.user.RefreshTokenHash = nil
		}
	}
	return nil
}
func (g *gateUserRepository) Create(*domain.User) error { return errors.New("not implemented") }
func (g *gateUserRepository) FindByEmail(string) (*domain.User, error) {
	return nil, errors.New("not implemented")
}
func (g *gateUserRepository) Update(*domain.User) error { return errors.New("not implemented") }
func (g *gateUserRepository) List(string, string) ([]domain.User, error) {
	return nil, errors.New("not implemented")
}
func (g *gateUserRepository) FindByStatus(domain.Status) ([]domain.User, error) {
	return nil, errors.New("not implemented")
}
func (g *gateUserRepository) Delete(uint) error              { return errors.New("not implemented") }
func (g *gateUserRepository) SetBlocked(uint, bool) error    { return errors.New("not implemented") }
func (g *gateUserRepository) RotateRefreshHash(uint, string, string) error {
	return errors.New("not implemented")
}
func (g *gateUserRepository) MarkVerified(uint) error           { return errors.New("not implemented") }
func (g *gateUserRepository) ClearVerificationToken(uint) error { return errors.New("not implemented") }

type noopLoginEvents struct{}

func (noopLoginEvents) Create(*domain.LoginEvent) error { return errors.New("not implemented") }
func (noopLoginEvents) ListByUserID(uint) ([]domain.LoginEvent, error) {
	return nil, errors.New("not implemented")
}

func newGateFixtures(user *domain.User) (*security.JWTManager, *gateUserRepository, func(http.Handler) http.Handler) {
	jwtMgr := security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456", "abcdefghijklmnopqrstuvwxyz654321")
	repo := &gateUserRepository{user: user}
	auth := service.NewAuthService(
		repo,
		noopLoginEvents{},
		jwtMgr,
		service.NewLogEmailVerificationNotifier(slog.Default()),
		slog.Default(),
		15*time.Minute,
		7*24*time.Hour,
		"pepper",
		24*time.Hour,
		"http://localhost:3000",
	)
	cookies := security.NewCookieManager("", false, "lax", 15*time.Minute, 7*24*time.Hour)
	gate := BlockGate(auth, cookies)
	return jwtMgr, repo, gate
}

func TestRequireAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	jwtMgr := security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456", "abcdefghijklmnopqrstuvwxyz654321")
	handler := RequireAuth(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid token")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: "garbage"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rr.Code)
	}

	// A refresh token is never accepted where an access token is required.
	refresh, err := jwtMgr.SignRefreshToken(1, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token, got %d", rr.Code)
	}
}

func TestRequireAuthAcceptsCookieAndBearer(t *testing.T) {
	jwtMgr := security.NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456", "abcdefghijklmnopqrstuvwxyz654321")
	token, err := jwtMgr.SignAccessToken(42, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	var gotSubject string
	handler := RequireAuth(jwtMgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("expected claims in context")
		}
		gotSubject = claims.Subject
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || gotSubject != "42" {
		t.Fatalf("cookie auth failed: code=%d subject=%q", rr.Code, gotSubject)
	}

	gotSubject = ""
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || gotSubject != "42" {
		t.Fatalf("bearer auth failed: code=%d subject=%q", rr.Code, gotSubject)
	}
}

func TestBlockGateAllowsActiveUser(t *testing.T) {
	user := &domain.User{ID: 7, Email: "u@example.com", Status: domain.StatusActive}
	jwtMgr, _, gate := newGateFixtures(user)
	token, err := jwtMgr.SignAccessToken(7, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	var gotID uint
	handler := RequireAuth(jwtMgr)(gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		gotID = u.ID
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || gotID != 7 {
		t.Fatalf("expected pass-through for active user: code=%d id=%d", rr.Code, gotID)
	}
}

func TestBlockGateRefusesBlockedUserMidSession(t *testing.T) {
	hash := "live-session"
	user := &domain.User{ID: 7, Status: domain.StatusActive, Blocked: true, RefreshTokenHash: &hash}
	jwtMgr, repo, gate := newGateFixtures(user)
	token, err := jwtMgr.SignAccessToken(7, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	handler := RequireAuth(jwtMgr)(gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a blocked user")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for blocked user, got %d", rr.Code)
	}
	if !repo.clearedHash {
		t.Fatal("expected stored refresh hash revoked")
	}
	cleared := 0
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge == -1 && c.Value == "" {
			cleared++
		}
	}
	if cleared != 2 {
		t.Fatalf("expected both token cookies cleared, got %d", cleared)
	}
}

func TestBlockGateRejectsDeletedUser(t *testing.T) {
	jwtMgr, _, gate := newGateFixtures(nil)
	token, err := jwtMgr.SignAccessToken(7, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	handler := RequireAuth(jwtMgr)(gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a deleted user")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d", rr.Code)
	}
}
