package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"user-admin-service/internal/domain"
	"user-admin-service/internal/observability"
	"user-admin-service/internal/repository"
	"user-admin-service/internal/security"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses do not reveal which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccessDenied       = errors.New("access denied")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmptyPassword      = errors.New("password must not be empty")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmptyName          = errors.New("name must not be empty")

	ErrVerificationNotFound = errors.New("no verification token found")
	ErrVerificationExpired  = errors.New("verification token expired")
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Title    string
}

type AuthService struct {
	users    repository.UserRepository
	logins   repository.LoginEventRepository
	tokens   *security.JWTManager
	notifier EmailVerificationNotifier
	logger   *slog.Logger

	accessTTL       time.Duration
	refreshTTL      time.Duration
	pepper          string
	verificationTTL time.Duration
	frontendURL     string

	now func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	logins repository.LoginEventRepository,
	tokens *security.JWTManager,
	notifier EmailVerificationNotifier,
	logger *slog.Logger,
	accessTTL, refreshTTL time.Duration,
	pepper string,
	verificationTTL time.Duration,
	frontendURL string,
) *AuthService {
	return &AuthService{
		users:           users,
		logins:          logins,
		tokens:          tokens,
		notifier:        notifier,
		logger:          logger,
		accessTTL:       accessTTL,
		refreshTTL:      refreshTTL,
		pepper:          pepper,
		verificationTTL: verificationTTL,
		frontendURL:     frontendURL,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an unverified account and immediately establishes a
// session for it. Verification gates nothing but the status field until the
// user confirms the email.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, TokenPair, error) {
	if strings.TrimSpace(in.Password) == "" {
		return nil, TokenPair{}, ErrEmptyPassword
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, TokenPair{}, ErrEmptyName
	}
	email := repository.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, TokenPair{}, ErrInvalidEmail
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}
	verificationToken, err := security.NewVerificationToken()
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("generate verification token: %w", err)
	}
	expiresAt := s.now().Add(s.verificationTTL)

	user := &domain.User{
		Name:                       strings.TrimSpace(in.Name),
		Email:                      email,
		PasswordHash:               passwordHash,
		Status:                     domain.StatusUnverified,
		EmailVerificationToken:     &verificationToken,
		EmailVerificationExpiresAt: &expiresAt,
	}
	if title := strings.TrimSpace(in.Title); title != "" {
		user.Title = &title
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			observability.RecordAuthEvent(ctx, "register", "conflict")
			return nil, TokenPair{}, err
		}
		observability.RecordAuthEvent(ctx, "register", "error")
		return nil, TokenPair{}, err
	}

	if err := s.notifier.SendEmailVerification(ctx, VerificationNotification{
		UserID:          user.ID,
		Email:           user.Email,
		Token:           verificationToken,
		ExpiresAt:       expiresAt,
		VerificationURL: s.verificationURL(verificationToken),
	}); err != nil {
		// Registration stands even when the notification fails. The token is
		// still in the database and a resend path can pick it up.
		s.logger.WarnContext(ctx, "verification email not sent", "user_id", user.ID, "error", err)
	}

	pair, err := s.establishSession(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	observability.RecordAuthEvent(ctx, "register", "success")
	return user, pair, nil
}

// Login verifies credentials and establishes a session. Unknown email and
// wrong password are indistinguishable to the caller; a blocked account is
// refused before any session state is written.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, TokenPair, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthEvent(ctx, "login", "invalid_credentials")
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		observability.RecordAuthEvent(ctx, "login", "error")
		return nil, TokenPair{}, err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		observability.RecordAuthEvent(ctx, "login", "invalid_credentials")
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if user.Blocked {
		observability.RecordAuthEvent(ctx, "login", "blocked")
		return nil, TokenPair{}, ErrAccessDenied
	}

	pair, err := s.establishSession(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.users.Update(user); err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.logins.Create(&domain.LoginEvent{UserID: user.ID}); err != nil {
		s.logger.WarnContext(ctx, "login event not recorded", "user_id", user.ID, "error", err)
	}
	observability.RecordAuthEvent(ctx, "login", "success")
	return user, pair, nil
}

// Refresh rotates the refresh token: the presented token must hash to the
// stored value, and the swap to the new hash is conditional on the stored
// value still being unchanged. A presented token that no longer matches is
// treated as reuse and revokes the session outright.
func (s *AuthService) Refresh(ctx context.Context, rawRefreshToken string) (*domain.User, TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(rawRefreshToken)
	if err != nil {
		observability.RecordAuthEvent(ctx, "refresh", "invalid_token")
		return nil, TokenPair{}, ErrUnauthorized
	}
	userID, err := security.UserIDFromClaims(claims)
	if err != nil {
		observability.RecordAuthEvent(ctx, "refresh", "invalid_token")
		return nil, TokenPair{}, ErrUnauthorized
	}

	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthEvent(ctx, "refresh", "unknown_user")
			return nil, TokenPair{}, ErrUnauthorized
		}
		return nil, TokenPair{}, err
	}
	if user.Blocked {
		// Refresh never distinguishes a blocked account from a dead session:
		// both are a plain 401 so the token grants no probe into account
		// state. The stored hash is cleared as on any revocation.
		if err := s.users.SetRefreshTokenHash(user.ID, nil); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, TokenPair{}, err
		}
		observability.RecordSessionRevoked(ctx, "blocked")
		observability.RecordAuthEvent(ctx, "refresh", "blocked")
		return nil, TokenPair{}, ErrUnauthorized
	}
	if !user.HasActiveSession() {
		observability.RecordAuthEvent(ctx, "refresh", "no_session")
		return nil, TokenPair{}, ErrUnauthorized
	}

	presentedHash := security.HashRefreshToken(rawRefreshToken, s.pepper)
	if presentedHash != *user.RefreshTokenHash {
		// A valid-looking token that does not match the stored hash means it
		// was already rotated away or the session was revoked. Clear the
		// stored hash so the whole lineage dies.
		if err := s.users.SetRefreshTokenHash(user.ID, nil); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, TokenPair{}, err
		}
		observability.RecordSessionRevoked(ctx, "reuse_detected")
		observability.RecordAuthEvent(ctx, "refresh", "reuse_detected")
		return nil, TokenPair{}, ErrUnauthorized
	}

	newRefresh, err := s.tokens.SignRefreshToken(user.ID, s.refreshTTL)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	newHash := security.HashRefreshToken(newRefresh, s.pepper)
	if err := s.users.RotateRefreshHash(user.ID, presentedHash, newHash); err != nil {
		if errors.Is(err, repository.ErrStaleRefreshHash) {
			// Lost a concurrent rotation race. The winner's session stays
			// intact, this caller just retries from its own refresh path.
			observability.RecordAuthEvent(ctx, "refresh", "rotation_conflict")
			return nil, TokenPair{}, ErrUnauthorized
		}
		return nil, TokenPair{}, err
	}

	accessToken, err := s.tokens.SignAccessToken(user.ID, s.accessTTL)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	observability.RecordAuthEvent(ctx, "refresh", "success")
	return user, TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout drops the stored refresh hash. It is idempotent: logging out a
// user with no session, or one that was already deleted, succeeds.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	if err := s.users.SetRefreshTokenHash(userID, nil); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}
	observability.RecordSessionRevoked(ctx, "logout")
	observability.RecordAuthEvent(ctx, "logout", "success")
	return nil
}

// AuthorizeActive re-reads the account behind an accepted access token. A
// blocked account is refused and loses its stored session on the spot; a
// deleted account simply fails authorization.
func (s *AuthService) AuthorizeActive(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if user.Blocked {
		if err := s.users.SetRefreshTokenHash(user.ID, nil); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		observability.RecordSessionRevoked(ctx, "blocked")
		return nil, ErrAccessDenied
	}
	return user, nil
}

// VerifyEmail resolves the pending verification for an authenticated
// account. The caller is identified by their session, not by the token in
// the link, so a link can only ever verify the account that is logged in.
// An expired token is cleared so the stale link cannot be retried; an
// already active account reports alreadyVerified instead of failing.
func (s *AuthService) VerifyEmail(ctx context.Context, userID uint) (alreadyVerified bool, err error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthEvent(ctx, "verify_email", "unknown_user")
			return false, ErrUnauthorized
		}
		return false, err
	}
	if user.Status == domain.StatusActive {
		observability.RecordAuthEvent(ctx, "verify_email", "already_verified")
		return true, nil
	}
	if user.EmailVerificationToken == nil {
		observability.RecordAuthEvent(ctx, "verify_email", "not_found")
		return false, ErrVerificationNotFound
	}
	if user.EmailVerificationExpiresAt != nil && user.EmailVerificationExpiresAt.Before(s.now()) {
		if err := s.users.ClearVerificationToken(user.ID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return false, err
		}
		observability.RecordAuthEvent(ctx, "verify_email", "expired")
		return false, ErrVerificationExpired
	}
	if err := s.users.MarkVerified(user.ID); err != nil {
		return false, err
	}
	observability.RecordAuthEvent(ctx, "verify_email", "success")
	return false, nil
}

func (s *AuthService) establishSession(ctx context.Context, user *domain.User) (TokenPair, error) {
	accessToken, err := s.tokens.SignAccessToken(user.ID, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := s.tokens.SignRefreshToken(user.ID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	hash := security.HashRefreshToken(refreshToken, s.pepper)
	// Keep the in-memory row in step with the column write. Login saves the
	// whole record afterwards for LastLoginAt; a stale hash on the struct
	// would overwrite the session that was just established.
	user.RefreshTokenHash = &hash
	if err := s.users.SetRefreshTokenHash(user.ID, &hash); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *AuthService) verificationURL(token string) string {
	base := strings.TrimRight(s.frontendURL, "/")
	if base == "" {
		return ""
	}
	return base + "/verify-email?token=" + url.QueryEscape(token)
}
