package repository

import (
	"context"

	"gorm.io/gorm"

	"user-admin-service/internal/domain"
	"user-admin-service/internal/observability"
)

type LoginEventRepository interface {
	Create(event *domain.LoginEvent) error
	ListByUserID(userID uint) ([]domain.LoginEvent, error)
}

type GormLoginEventRepository struct{ db *gorm.DB }

func NewLoginEventRepository(db *gorm.DB) LoginEventRepository {
	return &GormLoginEventRepository{db: db}
}

func (r *GormLoginEventRepository) Create(event *domain.LoginEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "login_event", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "login_event", "create", "success")
	return nil
}

func (r *GormLoginEventRepository) ListByUserID(userID uint) ([]domain.LoginEvent, error) {
	var events []domain.LoginEvent
	if err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&events).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "login_event", "list", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "login_event", "list", "success")
	return events, nil
}
