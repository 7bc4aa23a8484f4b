package domain

import "time"

// LoginEvent records one successful sign-in. Rows are immutable and are
// removed only by cascade when the owning user is deleted.
type LoginEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
