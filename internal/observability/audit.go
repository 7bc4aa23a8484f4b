package observability

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// AuditInput describes a security-relevant action for the audit log.
type AuditInput struct {
	Action       string
	ActorUserID  uint
	TargetUserID uint
	Outcome      string
	Detail       string
}

// EmitAudit writes a structured audit line. Audit entries ride the normal
// log pipeline under a fixed "audit" marker so they can be filtered
// downstream.
func EmitAudit(ctx context.Context, logger *slog.Logger, in AuditInput) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.Bool("audit", true),
		slog.String("event_id", uuid.NewString()),
		slog.String("action", in.Action),
		slog.String("outcome", in.Outcome),
	}
	if in.ActorUserID != 0 {
		attrs = append(attrs, slog.Uint64("actor_user_id", uint64(in.ActorUserID)))
	}
	if in.TargetUserID != 0 {
		attrs = append(attrs, slog.Uint64("target_user_id", uint64(in.TargetUserID)))
	}
	if in.Detail != "" {
		attrs = append(attrs, slog.String("detail", in.Detail))
	}
	logger.InfoContext(ctx, "audit event", attrs...)
}
