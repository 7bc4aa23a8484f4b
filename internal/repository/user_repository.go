package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"user-admin-service/internal/domain"
	"user-admin-service/internal/observability"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	// ErrStaleRefreshHash is returned when a conditional rotation finds the
	// stored hash already changed: a concurrent refresh won the race or the
	// session was revoked in between.
	ErrStaleRefreshHash = errors.New("stored refresh-token hash changed concurrently")
)

// Allowed sort fields for the admin listing, request name -> column.
var userSortColumns = map[string]string{
	"name":        "name",
	"email":       "email",
	"status":      "status",
	"lastLoginAt": "last_login_at",
}

type UserRepository interface {
	Create(user *domain.User) error
	FindByID(id uint) (*domain.User, error)
	FindByEmail(email string) (*domain.User, error)
	Update(user *domain.User) error
	List(sortBy, order string) ([]domain.User, error)
	FindByStatus(status domain.Status) ([]domain.User, error)
	Delete(id uint) error
	SetBlocked(id uint, blocked bool) error
	SetRefreshTokenHash(id uint, hash *string) error
	RotateRefreshHash(id uint, oldHash, newHash string) error
	MarkVerified(id uint) error
	ClearVerificationToken(id uint) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (r *GormUserRepository) Create(user *domain.User) error {
	user.Email = NormalizeEmail(user.Email)
	if err := r.db.Create(user).Error; err != nil {
		if isDuplicateKeyError(err) {
			observability.RecordRepositoryOperation(context.Background(), "user", "create", "conflict")
			return ErrDuplicateEmail
		}
		observability.RecordRepositoryOperation(context.Background(), "user", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "create", "success")
	return nil
}

func (r *GormUserRepository) FindByID(id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "find_by_id", "success")
	return &user, nil
}

func (r *GormUserRepository) FindByEmail(email string) (*domain.User, error) {
	var user domain.User
	err := r.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "user", "find_by_email", "not_found")
			return nil, ErrUserNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "user", "find_by_email", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "find_by_email", "success")
	return &user, nil
}

func (r *GormUserRepository) Update(user *domain.User) error {
	if err := r.db.Save(user).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "update", "success")
	return nil
}

func (r *GormUserRepository) List(sortBy, order string) ([]domain.User, error) {
	column, ok := userSortColumns[sortBy]
	if !ok {
		column = "last_login_at"
	}
	direction := "DESC"
	if strings.EqualFold(order, "asc") {
		direction = "ASC"
	}
	var users []domain.User
	if err := r.db.Order(column + " " + direction).Find(&users).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "list", "success")
	return users, nil
}

func (r *GormUserRepository) FindByStatus(status domain.Status) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.Where("status = ?", status).Find(&users).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "find_by_status", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "find_by_status", "success")
	return users, nil
}

// Delete removes the user and its login events in one transaction. The
// cascade is done explicitly so behavior does not depend on the driver
// enforcing foreign keys.
func (r *GormUserRepository) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&domain.LoginEvent{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	switch {
	case err == nil:
		observability.RecordRepositoryOperation(context.Background(), "user", "delete", "success")
	case errors.Is(err, ErrUserNotFound):
		observability.RecordRepositoryOperation(context.Background(), "user", "delete", "not_found")
	default:
		observability.RecordRepositoryOperation(context.Background(), "user", "delete", "error")
	}
	return err
}

// SetBlocked flips the blocked flag. Blocking also clears the stored
// refresh-token hash so no further refresh can succeed for the account.
func (r *GormUserRepository) SetBlocked(id uint, blocked bool) error {
	updates := map[string]any{"blocked": blocked}
	if blocked {
		updates["refresh_token_hash"] = nil
	}
	res := r.db.Model(&domain.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "set_blocked", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "user", "set_blocked", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "set_blocked", "success")
	return nil
}

func (r *GormUserRepository) SetRefreshTokenHash(id uint, hash *string) error {
	res := r.db.Model(&domain.User{}).Where("id = ?", id).Update("refresh_token_hash", hash)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "set_refresh_hash", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "user", "set_refresh_hash", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "set_refresh_hash", "success")
	return nil
}

// RotateRefreshHash swaps the stored hash only if it still equals oldHash.
// Two concurrent refresh attempts off the same token cannot both succeed:
// the loser sees zero affected rows and gets ErrStaleRefreshHash.
func (r *GormUserRepository) RotateRefreshHash(id uint, oldHash, newHash string) error {
	res := r.db.Model(&domain.User{}).
		Where("id = ? AND refresh_token_hash = ?", id, oldHash).
		Update("refresh_token_hash", newHash)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "rotate_refresh_hash", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "user", "rotate_refresh_hash", "stale")
		return ErrStaleRefreshHash
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "rotate_refresh_hash", "success")
	return nil
}

func (r *GormUserRepository) MarkVerified(id uint) error {
	res := r.db.Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"status":                        domain.StatusActive,
		"email_verification_token":      nil,
		"email_verification_expires_at": nil,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "mark_verified", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "user", "mark_verified", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "mark_verified", "success")
	return nil
}

func (r *GormUserRepository) ClearVerificationToken(id uint) error {
	res := r.db.Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"email_verification_token":      nil,
		"email_verification_expires_at": nil,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "user", "clear_verification", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "user", "clear_verification", "not_found")
		return ErrUserNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "user", "clear_verification", "success")
	return nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
