// Package audits orchestrates compliance evaluations end-to-end: resolve the
// subject and policy, run the predicate, and append the immutable result to
// the audit log.
package audits

import (
	"time"

	id "attesta/pkg/domain"
	"attesta/pkg/platform/sentinel"
)

// AuditResult is the outcome of evaluating one subject against one policy at
// one point in time. Immutable after creation; the result log is append-only.
type AuditResult struct {
	ID        id.AuditID   `json:"id"`
	SubjectID id.SubjectID `json:"subjectId"`
	PolicyID  id.PolicyID  `json:"policyId"`
	// SessionID is the nil UUID for standalone audits.
	SessionID id.SessionID `json:"sessionId,omitempty"`
	// EvaluationTime is seconds since epoch, supplied by the caller so the
	// evaluation stays deterministic and testable.
	EvaluationTime int64    `json:"evaluationTime"`
	Compliant      bool     `json:"compliant"`
	Reasons        []string `json:"reasons"`
	// OpaqueProofToken is a content digest of the result fields. It is NOT a
	// cryptographic proof and carries no security guarantee; it only keeps
	// the output shape stable until a real proof backend is integrated.
	OpaqueProofToken string    `json:"opaqueProofToken"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SessionStatus tracks the lifecycle of an audit session.
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// validTransitions encodes the monotonic state machine:
// pending -> in_progress -> {completed, failed}. No transition ever moves
// backwards.
var validTransitions = map[SessionStatus][]SessionStatus{
	SessionPending:    {SessionInProgress},
	SessionInProgress: {SessionCompleted, SessionFailed},
}

// CanTransitionTo reports whether the status may advance to next.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// AuditSession groups the audits of multiple subjects under one policy and
// one initiating auditor. The subject set is fixed at creation.
type AuditSession struct {
	ID        id.SessionID   `json:"sessionId"`
	PolicyID  id.PolicyID    `json:"policyId"`
	AuditorID id.AuditorID   `json:"auditorId"`
	Subjects  []id.SubjectID `json:"subjectIds"`
	Status    SessionStatus  `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Advance moves the session to next, enforcing monotonicity.
func (s *AuditSession) Advance(next SessionStatus, now time.Time) error {
	if !s.Status.CanTransitionTo(next) {
		return sentinel.ErrInvalidState
	}
	s.Status = next
	s.UpdatedAt = now
	return nil
}
