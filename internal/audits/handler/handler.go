package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attesta/internal/audits"
	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/httputil"
	"attesta/pkg/requestcontext"
)

// Service defines the audit operations the handler exposes.
type Service interface {
	RunAudit(ctx context.Context, subjectID id.SubjectID, policyID id.PolicyID, evalTime int64) (*audits.AuditResult, error)
	ListResults(ctx context.Context, filter audits.ResultFilter) ([]*audits.AuditResult, error)
	CreateSession(ctx context.Context, policyID id.PolicyID, auditorID id.AuditorID, subjects []id.SubjectID) (*audits.AuditSession, error)
	GetSession(ctx context.Context, sessionID id.SessionID) (*audits.AuditSession, error)
	RunSession(ctx context.Context, sessionID id.SessionID, evalTime int64) (*audits.AuditSession, error)
}

// Handler wires audit endpoints to the audits service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an audits handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/audits", h.HandleRunAudit)
	r.Get("/audits", h.HandleListResults)
	r.Post("/sessions", h.HandleCreateSession)
	r.Get("/sessions/{sessionID}", h.HandleGetSession)
	r.Post("/sessions/{sessionID}/run", h.HandleRunSession)
}

// HandleRunAudit handles POST /audits.
func (h *Handler) HandleRunAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	auditorID, ok := h.requireAuditor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RunAuditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	subjectID, policyID, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	evalTime := req.EvaluationTime
	if evalTime == 0 {
		evalTime = requestcontext.Now(ctx).Unix()
	}

	result, err := h.service.RunAudit(ctx, subjectID, policyID, evalTime)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit failed",
			"request_id", requestID,
			"auditor_id", auditorID,
			"subject_id", subjectID,
			"policy_id", policyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "audit completed",
		"request_id", requestID,
		"auditor_id", auditorID,
		"subject_id", subjectID,
		"policy_id", policyID,
		"compliant", result.Compliant,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleListResults handles GET /audits with optional subjectId, policyId,
// and sessionId query filters.
func (h *Handler) HandleListResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter audits.ResultFilter
	if raw := r.URL.Query().Get("subjectId"); raw != "" {
		subjectID, err := id.ParseSubjectID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.SubjectID = subjectID
	}
	if raw := r.URL.Query().Get("policyId"); raw != "" {
		policyID, err := id.ParsePolicyID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.PolicyID = policyID
	}
	if raw := r.URL.Query().Get("sessionId"); raw != "" {
		sessionID, err := id.ParseSessionID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.SessionID = sessionID
	}

	results, err := h.service.ListResults(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResults(results))
}

// HandleCreateSession handles POST /sessions.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	auditorID, ok := h.requireAuditor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	policyID, subjects, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.CreateSession(ctx, policyID, auditorID, subjects)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session created",
		"request_id", requestID,
		"session_id", session.ID,
		"policy_id", policyID,
		"subjects", len(subjects),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromSession(session))
}

// HandleGetSession handles GET /sessions/{sessionID}.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session))
}

// HandleRunSession handles POST /sessions/{sessionID}/run.
func (h *Handler) HandleRunSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, ok := h.requireAuditor(w, ctx); !ok {
		return
	}

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// The body is optional; an absent or empty body means "evaluate now".
	var req RunSessionRequest
	if r.Body != nil && r.ContentLength > 0 {
		decoded, ok := httputil.DecodeAndPrepare[RunSessionRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		req = decoded
	}
	if req.EvaluationTime < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "evaluationTime must not be negative"))
		return
	}
	evalTime := req.EvaluationTime
	if evalTime == 0 {
		evalTime = requestcontext.Now(ctx).Unix()
	}

	session, err := h.service.RunSession(ctx, sessionID, evalTime)
	if err != nil {
		h.logger.ErrorContext(ctx, "session run failed",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session))
}

func (h *Handler) requireAuditor(w http.ResponseWriter, ctx context.Context) (id.AuditorID, bool) {
	auditorID := requestcontext.AuditorID(ctx)
	if auditorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.AuditorID{}, false
	}
	return auditorID, true
}
