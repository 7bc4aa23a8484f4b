package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "user-admin-service"

var (
	metricsOnce sync.Once

	authEvents    metric.Int64Counter
	repoOps       metric.Int64Counter
	adminActions  metric.Int64Counter
	sessionsEnded metric.Int64Counter
)

// initMetrics registers counters against the global meter provider. With no
// provider configured the instruments are no-ops, so call sites never need to
// care whether metrics are wired.
func initMetrics() {
	meter := otel.Meter(meterName)
	authEvents, _ = meter.Int64Counter("auth_events_total",
		metric.WithDescription("Authentication operations by outcome"))
	repoOps, _ = meter.Int64Counter("repository_operations_total",
		metric.WithDescription("Repository operations by entity and outcome"))
	adminActions, _ = meter.Int64Counter("user_admin_actions_total",
		metric.WithDescription("Administrative user actions by outcome"))
	sessionsEnded, _ = meter.Int64Counter("sessions_revoked_total",
		metric.WithDescription("Sessions ended grouped by reason"))
}

// RecordAuthEvent counts an authentication operation such as login, refresh
// or logout with its outcome.
func RecordAuthEvent(ctx context.Context, operation, outcome string) {
	metricsOnce.Do(initMetrics)
	authEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordRepositoryOperation counts a storage-layer operation.
func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	metricsOnce.Do(initMetrics)
	repoOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordUserAdminEvent counts an administrative action taken against users.
func RecordUserAdminEvent(ctx context.Context, action, outcome string) {
	metricsOnce.Do(initMetrics)
	adminActions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

// RecordSessionRevoked counts a session ending for a given reason, e.g.
// "logout", "blocked" or "rotation_conflict".
func RecordSessionRevoked(ctx context.Context, reason string) {
	metricsOnce.Do(initMetrics)
	sessionsEnded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
