package audits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"attesta/internal/audits/metrics"
	"attesta/internal/audits/ports"
	"attesta/internal/compliance"
	"attesta/internal/records"
	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/audit"
	"attesta/pkg/platform/sentinel"
	"attesta/pkg/requestcontext"
)

const defaultSessionConcurrency = 8

// Service runs audits: resolve data, evaluate, log the immutable result.
type Service struct {
	records        records.RecordStore
	policies       records.PolicyStore
	log            ResultLog
	sessions       SessionStore
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher ports.AuditPublisher
	tracer         trace.Tracer
	concurrency    int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithSessionConcurrency bounds how many subjects a session evaluates in
// parallel.
func WithSessionConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(recordStore records.RecordStore, policyStore records.PolicyStore, log ResultLog, sessions SessionStore, opts ...Option) (*Service, error) {
	if recordStore == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if policyStore == nil {
		return nil, fmt.Errorf("policy store is required")
	}
	if log == nil {
		return nil, fmt.Errorf("result log is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}

	svc := &Service{
		records:     recordStore,
		policies:    policyStore,
		log:         log,
		sessions:    sessions,
		tracer:      otel.Tracer("attesta/audits"),
		concurrency: defaultSessionConcurrency,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RunAudit evaluates one subject against one policy at evalTime and appends
// the result to the log.
//
// An unresolved subject or policy is a legitimate audit outcome: the result
// is non-compliant with an explanatory reason, and no error is returned. A
// backing-store failure is different - it propagates as a retryable error and
// is never converted into a verdict.
func (s *Service) RunAudit(ctx context.Context, subjectID id.SubjectID, policyID id.PolicyID, evalTime int64) (*AuditResult, error) {
	return s.runAudit(ctx, subjectID, policyID, id.SessionID{}, evalTime)
}

func (s *Service) runAudit(ctx context.Context, subjectID id.SubjectID, policyID id.PolicyID, sessionID id.SessionID, evalTime int64) (*AuditResult, error) {
	ctx, span := s.tracer.Start(ctx, "audits.RunAudit",
		trace.WithAttributes(
			attribute.String("subject_id", subjectID.String()),
			attribute.String("policy_id", policyID.String()),
		),
	)
	defer span.End()
	start := time.Now()

	record, policy, err := s.resolve(ctx, subjectID, policyID)
	if err != nil {
		return nil, err
	}

	var evaluation compliance.Evaluation
	if record == nil || policy == nil {
		evaluation = compliance.NotFoundEvaluation()
	} else {
		evaluation = compliance.Evaluate(*record, *policy, evalTime)
	}

	result := &AuditResult{
		ID:             id.NewAuditID(),
		SubjectID:      subjectID,
		PolicyID:       policyID,
		SessionID:      sessionID,
		EvaluationTime: evalTime,
		Compliant:      evaluation.Compliant,
		Reasons:        evaluation.Reasons,
		CreatedAt:      time.Now(),
	}
	if result.Reasons == nil {
		result.Reasons = []string{}
	}
	result.OpaqueProofToken = ProofToken(result)

	if err := s.log.Append(ctx, result); err != nil {
		s.metrics.IncrementLogAppendFailure()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to append audit result")
	}

	verdict := verdictLabel(record, policy, evaluation)
	s.metrics.IncrementOutcome(verdict, policyID.String())
	s.metrics.ObserveAuditLatency(time.Since(start))

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Timestamp: time.Now(),
		AuditorID: requestcontext.AuditorID(ctx),
		SubjectID: subjectID.String(),
		PolicyID:  policyID.String(),
		SessionID: sessionLabel(sessionID),
		Action:    string(audit.EventAuditCompleted),
		Decision:  verdict,
	},
		"subject_id", subjectID,
		"policy_id", policyID,
		"compliant", evaluation.Compliant,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

// resolve fetches the record and the policy. A nil record or policy (with nil
// error) means "not found"; any returned error is an infrastructure failure.
func (s *Service) resolve(ctx context.Context, subjectID id.SubjectID, policyID id.PolicyID) (*compliance.TrainingRecord, *compliance.CompliancePolicy, error) {
	record, err := s.records.GetRecord(ctx, subjectID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
	}

	policy, err := s.policies.GetPolicy(ctx, policyID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "policy store unavailable")
	}

	return record, policy, nil
}

// ListResults returns logged results in insertion order, optionally filtered.
func (s *Service) ListResults(ctx context.Context, filter ResultFilter) ([]*AuditResult, error) {
	results, err := s.log.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list audit results")
	}
	return results, nil
}

// CreateSession registers a batch of subjects for auditing under one policy.
// The subject set is fixed at creation; the session starts pending.
func (s *Service) CreateSession(ctx context.Context, policyID id.PolicyID, auditorID id.AuditorID, subjects []id.SubjectID) (*AuditSession, error) {
	if len(subjects) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subjectIds must not be empty")
	}

	now := time.Now()
	session := &AuditSession{
		ID:        id.NewSessionID(),
		PolicyID:  policyID,
		AuditorID: auditorID,
		Subjects:  append([]id.SubjectID(nil), subjects...),
		Status:    SessionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Timestamp: now,
		AuditorID: auditorID,
		PolicyID:  policyID.String(),
		SessionID: session.ID.String(),
		Action:    string(audit.EventSessionCreated),
	},
		"session_id", session.ID,
		"policy_id", policyID,
		"subjects", len(subjects),
	)

	return session, nil
}

// GetSession returns a session by ID.
func (s *Service) GetSession(ctx context.Context, sessionID id.SessionID) (*AuditSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "session not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "session store unavailable")
	}
	return session, nil
}

// RunSession executes all subject audits for a pending session at evalTime.
//
// Subjects are independent and run concurrently with no ordering guarantee.
// The session fails only when the policy cannot be resolved or infrastructure
// breaks mid-run; individual non-compliance (including unknown subjects) is an
// expected result and completes the session normally. Cancellation stops
// scheduling further subjects but never retracts results already appended.
func (s *Service) RunSession(ctx context.Context, sessionID id.SessionID, evalTime int64) (*AuditSession, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Transition(ctx, sessionID, SessionPending, SessionInProgress); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "session already started")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start session")
	}

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Timestamp: time.Now(),
		AuditorID: session.AuditorID,
		PolicyID:  session.PolicyID.String(),
		SessionID: sessionID.String(),
		Action:    string(audit.EventSessionStarted),
	}, "session_id", sessionID)

	// Resolve the policy up front: a session against an unknown policy fails
	// as a whole rather than producing N identical not-found results.
	if _, err := s.policies.GetPolicy(ctx, session.PolicyID); err != nil {
		reason := "policy store unavailable"
		if errors.Is(err, sentinel.ErrNotFound) {
			reason = "policy not found"
		}
		s.failSession(ctx, session, reason)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, reason)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, reason)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, subjectID := range session.Subjects {
		g.Go(func() error {
			_, err := s.runAudit(gctx, subjectID, session.PolicyID, sessionID, evalTime)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.failSession(ctx, session, "subject evaluation failed")
		return nil, err
	}

	if err := s.sessions.Transition(ctx, sessionID, SessionInProgress, SessionCompleted); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete session")
	}
	s.metrics.IncrementSessionOutcome(string(SessionCompleted))

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Timestamp: time.Now(),
		AuditorID: session.AuditorID,
		PolicyID:  session.PolicyID.String(),
		SessionID: sessionID.String(),
		Action:    string(audit.EventSessionCompleted),
		Decision:  string(SessionCompleted),
	}, "session_id", sessionID, "subjects", len(session.Subjects))

	return s.GetSession(ctx, sessionID)
}

// failSession moves the session to failed on a best-effort basis. The caller
// already holds the primary error; a failed bookkeeping write only logs.
func (s *Service) failSession(ctx context.Context, session *AuditSession, reason string) {
	if err := s.sessions.Transition(ctx, session.ID, SessionInProgress, SessionFailed); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to mark session failed",
			"session_id", session.ID,
			"error", err,
		)
	}
	s.metrics.IncrementSessionOutcome(string(SessionFailed))

	ports.LogAudit(ctx, s.logger, s.auditPublisher, audit.Event{
		Timestamp: time.Now(),
		AuditorID: session.AuditorID,
		PolicyID:  session.PolicyID.String(),
		SessionID: session.ID.String(),
		Action:    string(audit.EventSessionFailed),
		Decision:  string(SessionFailed),
		Reason:    reason,
	}, "session_id", session.ID, "reason", reason)
}

func verdictLabel(record *compliance.TrainingRecord, policy *compliance.CompliancePolicy, evaluation compliance.Evaluation) string {
	switch {
	case record == nil || policy == nil:
		return "not_found"
	case evaluation.Compliant:
		return "compliant"
	default:
		return "non_compliant"
	}
}

func sessionLabel(sessionID id.SessionID) string {
	if sessionID.IsNil() {
		return ""
	}
	return sessionID.String()
}
