package service

import (
	"context"
	"errors"
	"log/slog"

	"user-admin-service/internal/domain"
	"user-admin-service/internal/observability"
	"user-admin-service/internal/repository"
)

// UserAdminService backs the dashboard views and the block, unblock and
// delete actions. Every authenticated user is an administrator here; there
// is no role model in front of these operations.
type UserAdminService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserAdminService(users repository.UserRepository, logger *slog.Logger) *UserAdminService {
	return &UserAdminService{users: users, logger: logger}
}

func (s *UserAdminService) List(ctx context.Context, sortBy, order string) ([]domain.User, error) {
	users, err := s.users.List(sortBy, order)
	if err != nil {
		observability.RecordUserAdminEvent(ctx, "list", "error")
		return nil, err
	}
	observability.RecordUserAdminEvent(ctx, "list", "success")
	return users, nil
}

// Block flips the account to blocked and revokes its stored session. The
// blocked user's next authenticated request is refused by the gate; actors
// may block themselves, which ends their own session the same way.
func (s *UserAdminService) Block(ctx context.Context, actorID, targetID uint) error {
	if err := s.users.SetBlocked(targetID, true); err != nil {
		observability.RecordUserAdminEvent(ctx, "block", outcomeFor(err))
		return err
	}
	observability.RecordSessionRevoked(ctx, "blocked")
	observability.RecordUserAdminEvent(ctx, "block", "success")
	observability.EmitAudit(ctx, s.logger, observability.AuditInput{
		Action:       "user.block",
		ActorUserID:  actorID,
		TargetUserID: targetID,
		Outcome:      "success",
	})
	return nil
}

func (s *UserAdminService) Unblock(ctx context.Context, actorID, targetID uint) error {
	if err := s.users.SetBlocked(targetID, false); err != nil {
		observability.RecordUserAdminEvent(ctx, "unblock", outcomeFor(err))
		return err
	}
	observability.RecordUserAdminEvent(ctx, "unblock", "success")
	observability.EmitAudit(ctx, s.logger, observability.AuditInput{
		Action:       "user.unblock",
		ActorUserID:  actorID,
		TargetUserID: targetID,
		Outcome:      "success",
	})
	return nil
}

func (s *UserAdminService) Delete(ctx context.Context, actorID, targetID uint) error {
	if err := s.users.Delete(targetID); err != nil {
		observability.RecordUserAdminEvent(ctx, "delete", outcomeFor(err))
		return err
	}
	observability.RecordUserAdminEvent(ctx, "delete", "success")
	observability.EmitAudit(ctx, s.logger, observability.AuditInput{
		Action:       "user.delete",
		ActorUserID:  actorID,
		TargetUserID: targetID,
		Outcome:      "success",
	})
	return nil
}

// DeleteUnverified removes every account still waiting on email
// verification and reports how many were deleted.
func (s *UserAdminService) DeleteUnverified(ctx context.Context, actorID uint) (int, error) {
	users, err := s.users.FindByStatus(domain.StatusUnverified)
	if err != nil {
		observability.RecordUserAdminEvent(ctx, "delete_unverified", "error")
		return 0, err
	}
	deleted := 0
	for _, u := range users {
		if err := s.users.Delete(u.ID); err != nil {
			// A user verified or removed mid-sweep is not a failure.
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			observability.RecordUserAdminEvent(ctx, "delete_unverified", "error")
			return deleted, err
		}
		deleted++
	}
	observability.RecordUserAdminEvent(ctx, "delete_unverified", "success")
	observability.EmitAudit(ctx, s.logger, observability.AuditInput{
		Action:      "user.delete_unverified",
		ActorUserID: actorID,
		Outcome:     "success",
	})
	return deleted, nil
}

func outcomeFor(err error) string {
	if errors.Is(err, repository.ErrUserNotFound) {
		return "not_found"
	}
	return "error"
}
