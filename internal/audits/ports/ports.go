// Package ports defines shared interfaces for the audits module.
package ports

import (
	"context"
	"log/slog"

	"attesta/pkg/platform/audit"
	"attesta/pkg/requestcontext"
)

// AuditPublisher emits operational audit events for evaluation and session
// lifecycle actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs an event to the structured logger and the audit publisher.
// Publishing is fail-open: evaluation outcomes are already persisted in the
// result log, so a broken event pipeline degrades observability, not
// correctness.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		event.RequestID = requestID
	}

	args := append(attrs, "event", event.Action, "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
