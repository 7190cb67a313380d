package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attesta/internal/compliance"
	"attesta/internal/records"
	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/audit"
	"attesta/pkg/platform/httputil"
	"attesta/pkg/requestcontext"
)

// Handler exposes training-record and policy ingestion endpoints.
type Handler struct {
	records  records.RecordStore
	policies records.PolicyStore
	logger   *slog.Logger
	emitter  audit.Emitter
}

type Option func(*Handler)

// WithAuditEmitter attaches an emitter for ingestion audit events.
func WithAuditEmitter(emitter audit.Emitter) Option {
	return func(h *Handler) {
		h.emitter = emitter
	}
}

func New(recordStore records.RecordStore, policyStore records.PolicyStore, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		records:  recordStore,
		policies: policyStore,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts ingestion endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Put("/records/{subjectID}", h.HandlePutRecord)
	r.Put("/policies/{policyID}", h.HandlePutPolicy)
	r.Get("/policies", h.HandleListPolicies)
}

// PutRecordRequest is the wire shape for PUT /records/{subjectID}.
type PutRecordRequest struct {
	TrainingCompletionTime int64 `json:"trainingCompletionTime"`
	Score                  int   `json:"score"`
	ApprovalFlag           bool  `json:"approvalFlag"`
}

// HandlePutRecord upserts a training record.
func (h *Handler) HandlePutRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	auditorID := requestcontext.AuditorID(ctx)
	if auditorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[PutRecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record := &compliance.TrainingRecord{
		SubjectID:              subjectID,
		TrainingCompletionTime: req.TrainingCompletionTime,
		Score:                  req.Score,
		ApprovalFlag:           req.ApprovalFlag,
	}
	if err := record.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.records.PutRecord(ctx, record); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store record"))
		return
	}

	h.emit(ctx, audit.Event{
		Timestamp: time.Now(),
		AuditorID: auditorID,
		SubjectID: subjectID.String(),
		Action:    string(audit.EventRecordIngested),
		RequestID: requestID,
	})
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// PutPolicyRequest is the wire shape for PUT /policies/{policyID}.
type PutPolicyRequest struct {
	MaxTrainingAgeDays int  `json:"maxTrainingAgeDays"`
	MinScore           int  `json:"minScore"`
	RequireApproval    bool `json:"requireApproval"`
}

// HandlePutPolicy upserts a compliance policy.
func (h *Handler) HandlePutPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	auditorID := requestcontext.AuditorID(ctx)
	if auditorID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[PutPolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	policy := &compliance.CompliancePolicy{
		PolicyID:           policyID,
		MaxTrainingAgeDays: req.MaxTrainingAgeDays,
		MinScore:           req.MinScore,
		RequireApproval:    req.RequireApproval,
	}
	if err := policy.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.policies.PutPolicy(ctx, policy); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store policy"))
		return
	}

	h.emit(ctx, audit.Event{
		Timestamp: time.Now(),
		AuditorID: auditorID,
		PolicyID:  policyID.String(),
		Action:    string(audit.EventPolicyUpserted),
		RequestID: requestID,
	})
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}

// HandleListPolicies lists all policies.
func (h *Handler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.policies.ListPolicies(r.Context())
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list policies"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"policies": policies})
}

func (h *Handler) emit(ctx context.Context, event audit.Event) {
	if h.emitter == nil {
		return
	}
	if err := h.emitter.Emit(ctx, event); err != nil && h.logger != nil {
		h.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
