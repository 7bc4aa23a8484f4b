package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"user-admin-service/internal/domain"
	"user-admin-service/internal/http/handler"
	"user-admin-service/internal/http/router"
	"user-admin-service/internal/repository"
	"user-admin-service/internal/security"
	"user-admin-service/internal/service"
)

// capturingNotifier records verification links instead of sending mail so
// tests can follow them.
type capturingNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *capturingNotifier) SendEmailVerification(_ context.Context, v service.VerificationNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.tokens == nil {
		n.tokens = make(map[string]string)
	}
	n.tokens[v.Email] = v.Token
	return nil
}

func (n *capturingNotifier) tokenFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[email]
}

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	notifier *capturingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.LoginEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := repository.NewUserRepository(db)
	logins := repository.NewLoginEventRepository(db)
	jwtMgr := security.NewJWTManager("user-admin-service", "dashboard", "abcdefghijklmnopqrstuvwxyz123456", "abcdefghijklmnopqrstuvwxyz654321")
	cookies := security.NewCookieManager("", false, "lax", 15*time.Minute, 7*24*time.Hour)
	notifier := &capturingNotifier{}
	log := slog.Default()

	authSvc := service.NewAuthService(users, logins, jwtMgr, notifier, log,
		15*time.Minute, 7*24*time.Hour, "integration-pepper", 24*time.Hour, "http://localhost:3000")
	userSvc := service.NewUserAdminService(users, log)

	h := router.New(router.Dependencies{
		Logger:           log,
		AuthHandler:      handler.NewAuthHandler(authSvc, jwtMgr, cookies),
		UserHandler:      handler.NewUserHandler(userSvc),
		JWTManager:       jwtMgr,
		Cookies:          cookies,
		AuthService:      authSvc,
		CORSOrigins:      []string{"http://localhost:3000"},
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
	})

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{
		server:   server,
		client:   &http.Client{Jar: jar},
		notifier: notifier,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func (e *testEnv) register(t *testing.T, name, email, password string) map[string]any {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d body %v", email, resp.StatusCode, body)
	}
	return body
}

func (e *testEnv) login(t *testing.T, email, password string) (*http.Response, map[string]any) {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, nil)
}

func (e *testEnv) cookieValue(t *testing.T, name string) string {
	t.Helper()
	u, err := url.Parse(e.server.URL)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func errorMessage(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	msg, _ := e["message"].(string)
	return msg
}

func dataMessage(body map[string]any) string {
	d, _ := body["data"].(map[string]any)
	msg, _ := d["message"].(string)
	return msg
}

func dataID(body map[string]any) uint {
	d, _ := body["data"].(map[string]any)
	id, _ := d["id"].(float64)
	return uint(id)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
