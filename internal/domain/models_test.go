package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestUserModelTagsAndDefaults(t *testing.T) {
	typ := reflect.TypeOf(User{})

	email, ok := typ.FieldByName("Email")
	if !ok {
		t.Fatal("missing User.Email field")
	}
	if got := email.Tag.Get("json"); got != "email" {
		t.Fatalf("User.Email json tag mismatch: %q", got)
	}
	if !strings.Contains(email.Tag.Get("gorm"), "uniqueIndex") {
		t.Fatalf("User.Email gorm tag missing uniqueIndex: %q", email.Tag.Get("gorm"))
	}

	status, ok := typ.FieldByName("Status")
	if !ok {
		t.Fatal("missing User.Status field")
	}
	if !strings.Contains(status.Tag.Get("gorm"), "default:Unverified") {
		t.Fatalf("User.Status gorm tag missing default:Unverified: %q", status.Tag.Get("gorm"))
	}

	lastLogin, ok := typ.FieldByName("LastLoginAt")
	if !ok {
		t.Fatal("missing User.LastLoginAt field")
	}
	if got := lastLogin.Tag.Get("json"); got != "lastLoginAt,omitempty" {
		t.Fatalf("User.LastLoginAt json tag mismatch: %q", got)
	}
}

func TestSensitiveFieldsAreHiddenFromJSON(t *testing.T) {
	typ := reflect.TypeOf(User{})
	for _, field := range []string{"PasswordHash", "RefreshTokenHash", "EmailVerificationToken", "EmailVerificationExpiresAt"} {
		f, ok := typ.FieldByName(field)
		if !ok {
			t.Fatalf("User.%s missing", field)
		}
		if got := f.Tag.Get("json"); got != "-" {
			t.Fatalf("expected User.%s json tag '-', got %q", field, got)
		}
	}

	hash := "secret-hash"
	raw, err := json.Marshal(User{PasswordHash: "pw-hash", RefreshTokenHash: &hash})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "hash") {
		t.Fatalf("serialized user leaks secrets: %s", raw)
	}
}

func TestStatusValid(t *testing.T) {
	if !StatusUnverified.Valid() || !StatusActive.Valid() {
		t.Fatal("expected known statuses to be valid")
	}
	if Status("Deleted").Valid() {
		t.Fatal("expected unknown status to be invalid")
	}
}

func TestHasActiveSession(t *testing.T) {
	var u User
	if u.HasActiveSession() {
		t.Fatal("expected no session without hash")
	}
	empty := ""
	u.RefreshTokenHash = &empty
	if u.HasActiveSession() {
		t.Fatal("expected no session with empty hash")
	}
	hash := "abc"
	u.RefreshTokenHash = &hash
	if !u.HasActiveSession() {
		t.Fatal("expected active session with hash")
	}
	if u.LastLoginAt != nil {
		t.Fatal("zero value should have nil LastLoginAt")
	}
	u.LastLoginAt = ptr(time.Now())
	if u.LastLoginAt == nil {
		t.Fatal("expected LastLoginAt to be set")
	}
}

func ptr[T any](v T) *T { return &v }
