package audits

import (
	"context"

	id "attesta/pkg/domain"
)

// ResultFilter narrows List queries. Zero values match everything.
type ResultFilter struct {
	SubjectID id.SubjectID
	PolicyID  id.PolicyID
	SessionID id.SessionID
}

// ResultLog is the append-only store of audit results. Appends must be
// serialized by the implementation; prior entries are never mutated or
// deleted. List returns entries in insertion order.
type ResultLog interface {
	Append(ctx context.Context, result *AuditResult) error
	List(ctx context.Context, filter ResultFilter) ([]*AuditResult, error)
}

// SessionStore persists audit sessions.
type SessionStore interface {
	// Create stores a new session, or sentinel.ErrConflict when the ID exists.
	Create(ctx context.Context, session *AuditSession) error

	// Get returns the session, or sentinel.ErrNotFound.
	Get(ctx context.Context, sessionID id.SessionID) (*AuditSession, error)

	// Transition advances the session status atomically, enforcing the
	// monotonic state machine. Returns sentinel.ErrInvalidState when the
	// current status does not allow the transition.
	Transition(ctx context.Context, sessionID id.SessionID, from, to SessionStatus) error
}
