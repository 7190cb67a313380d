// Package audit defines the operational audit-event model for the service
// itself: who ran which evaluation, when, with what outcome. This is the
// service's own trail, distinct from the business-level AuditResult records
// the audits module produces.
package audit

import (
	"context"
	"time"

	id "attesta/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance.
	// These require durable storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	AuditorID id.AuditorID
	SubjectID string
	PolicyID  string
	SessionID string
	Action    string
	// Decision is the outcome of the action (e.g. "compliant",
	// "non_compliant", "completed").
	Decision  string
	Reason    string
	RequestID string
}

// AuditEvent names the actions the service emits.
type AuditEvent string

const (
	EventAuditCompleted   AuditEvent = "audit_completed"
	EventSessionCreated   AuditEvent = "session_created"
	EventSessionStarted   AuditEvent = "session_started"
	EventSessionCompleted AuditEvent = "session_completed"
	EventSessionFailed    AuditEvent = "session_failed"
	EventPolicyUpserted   AuditEvent = "policy_upserted"
	EventRecordIngested   AuditEvent = "record_ingested"
)

// eventCategories maps each audit event to its category. Evaluations carry
// regulatory weight; session bookkeeping is operational.
var eventCategories = map[AuditEvent]EventCategory{
	EventAuditCompleted: CategoryCompliance,
	EventPolicyUpserted: CategoryCompliance,

	EventSessionCreated:   CategoryOperations,
	EventSessionStarted:   CategoryOperations,
	EventSessionCompleted: CategoryOperations,
	EventSessionFailed:    CategoryOperations,
	EventRecordIngested:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is the narrow port domain services use to publish events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
