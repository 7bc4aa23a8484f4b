package domain

import "time"

// Status is the email-verification state of an account. The set is closed:
// accounts start Unverified and can only move to Active.
type Status string

const (
	StatusUnverified Status = "Unverified"
	StatusActive     Status = "Active"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s == StatusUnverified || s == StatusActive
}

// User is the persisted account record. Credential and token material is
// excluded from JSON serialization; a User value is safe to hand to
// response writers as-is.
type User struct {
	ID    uint    `gorm:"primaryKey" json:"id"`
	Email string  `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name  string  `gorm:"size:100;not null" json:"name"`
	Title *string `gorm:"size:100" json:"title,omitempty"`

	PasswordHash string `gorm:"size:255;not null" json:"-"`

	// RefreshTokenHash is the peppered hash of the latest issued refresh
	// token. nil means no active session: every refresh attempt must fail.
	RefreshTokenHash *string `gorm:"size:128" json:"-"`

	Status  Status `gorm:"size:16;not null;default:Unverified" json:"status"`
	Blocked bool   `gorm:"not null;default:false" json:"blocked"`

	LastLoginAt *time.Time `gorm:"index" json:"lastLoginAt,omitempty"`

	EmailVerificationToken     *string    `gorm:"size:128;uniqueIndex" json:"-"`
	EmailVerificationExpiresAt *time.Time `json:"-"`

	Logins []LoginEvent `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasActiveSession reports whether a refresh-token hash is on record.
func (u *User) HasActiveSession() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}
