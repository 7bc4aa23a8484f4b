package repository

import (
	"errors"
	"testing"
	"time"

	"user-admin-service/internal/domain"
)

func TestCreateNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)

	user := &domain.User{Name: "A", Email: "  Mixed.Case@Example.COM ", PasswordHash: "h"}
	if err := repo.Create(user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Email != "mixed.case@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}

	dup := &domain.User{Name: "B", Email: "MIXED.CASE@example.com", PasswordHash: "h"}
	if err := repo.Create(dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestFindByEmailIsCaseInsensitive(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	created := createUserForTest(t, repo, "someone@example.com")

	found, err := repo.FindByEmail("  SOMEONE@example.com ")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected user %d, got %d", created.ID, found.ID)
	}

	if _, err := repo.FindByEmail("nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRotateRefreshHashOnlyWinsOnce(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	user := createUserForTest(t, repo, "rotate@example.com")

	oldHash := "old-hash"
	if err := repo.SetRefreshTokenHash(user.ID, &oldHash); err != nil {
		t.Fatalf("set hash: %v", err)
	}

	if err := repo.RotateRefreshHash(user.ID, oldHash, "new-hash-1"); err != nil {
		t.Fatalf("first rotation: %v", err)
	}
	// Second rotation off the same old hash loses the race.
	if err := repo.RotateRefreshHash(user.ID, oldHash, "new-hash-2"); !errors.Is(err, ErrStaleRefreshHash) {
		t.Fatalf("expected ErrStaleRefreshHash, got %v", err)
	}

	stored, err := repo.FindByID(user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.RefreshTokenHash == nil || *stored.RefreshTokenHash != "new-hash-1" {
		t.Fatalf("expected winner's hash to stand, got %v", stored.RefreshTokenHash)
	}
}

func TestSetBlockedClearsRefreshHash(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	user := createUserForTest(t, repo, "blocked@example.com")

	hash := "session-hash"
	if err := repo.SetRefreshTokenHash(user.ID, &hash); err != nil {
		t.Fatalf("set hash: %v", err)
	}
	if err := repo.SetBlocked(user.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}

	stored, err := repo.FindByID(user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.Blocked {
		t.Fatal("expected user blocked")
	}
	if stored.RefreshTokenHash != nil {
		t.Fatalf("expected refresh hash cleared on block, got %v", *stored.RefreshTokenHash)
	}

	// Unblocking does not resurrect the session.
	if err := repo.SetBlocked(user.ID, false); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	stored, err = repo.FindByID(user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Blocked || stored.RefreshTokenHash != nil {
		t.Fatalf("unexpected state after unblock: blocked=%v hash=%v", stored.Blocked, stored.RefreshTokenHash)
	}

	if err := repo.SetBlocked(9999, true); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for missing user, got %v", err)
	}
}

func TestDeleteRemovesLoginEvents(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)
	logins := NewLoginEventRepository(db)
	user := createUserForTest(t, repo, "delete@example.com")

	for i := 0; i < 3; i++ {
		if err := logins.Create(&domain.LoginEvent{UserID: user.ID}); err != nil {
			t.Fatalf("create login event: %v", err)
		}
	}

	if err := repo.Delete(user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	events, err := logins.ListByUserID(user.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected login events removed with user, got %d", len(events))
	}

	if err := repo.Delete(user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on repeat delete, got %v", err)
	}
}

func TestListSortingAndFallback(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	for i, spec := range []struct {
		name  string
		email string
		login time.Time
	}{
		{"Charlie", "c@example.com", now.Add(-1 * time.Hour)},
		{"Alice", "a@example.com", now},
		{"Bob", "b@example.com", now.Add(-2 * time.Hour)},
	} {
		login := spec.login
		u := &domain.User{Name: spec.name, Email: spec.email, PasswordHash: "h", LastLoginAt: &login}
		if err := repo.Create(u); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	byName, err := repo.List("name", "asc")
	if err != nil {
		t.Fatalf("list by name: %v", err)
	}
	if byName[0].Name != "Alice" || byName[2].Name != "Charlie" {
		t.Fatalf("unexpected name order: %v %v %v", byName[0].Name, byName[1].Name, byName[2].Name)
	}

	// Unknown sort field falls back to last login, newest first.
	byDefault, err := repo.List("nonsense", "")
	if err != nil {
		t.Fatalf("list default: %v", err)
	}
	if byDefault[0].Name != "Alice" || byDefault[2].Name != "Bob" {
		t.Fatalf("unexpected default order: %v %v %v", byDefault[0].Name, byDefault[1].Name, byDefault[2].Name)
	}
}

func TestFindByStatusAndVerificationLifecycle(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewUserRepository(db)

	token := "verification-token"
	expires := time.Now().Add(24 * time.Hour)
	user := &domain.User{
		Name:                       "Pending",
		Email:                      "pending@example.com",
		PasswordHash:               "h",
		Status:                     domain.StatusUnverified,
		EmailVerificationToken:     &token,
		EmailVerificationExpiresAt: &expires,
	}
	if err := repo.Create(user); err != nil {
		t.Fatalf("create: %v", err)
	}
	createUserForTest(t, repo, "active@example.com")

	pending, err := repo.FindByStatus(domain.StatusUnverified)
	if err != nil {
		t.Fatalf("find by status: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != user.ID {
		t.Fatalf("unexpected unverified set: %+v", pending)
	}

	if err := repo.MarkVerified(user.ID); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	verified, err := repo.FindByID(user.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if verified.Status != domain.StatusActive || verified.EmailVerificationToken != nil || verified.EmailVerificationExpiresAt != nil {
		t.Fatalf("unexpected state after verification: %+v", verified)
	}

	// The unverified set shrinks accordingly.
	pending, err = repo.FindByStatus(domain.StatusUnverified)
	if err != nil {
		t.Fatalf("find by status: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no unverified users left, got %+v", pending)
	}
}
