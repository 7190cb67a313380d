package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"attesta/internal/reporting"
	id "attesta/pkg/domain"
	"attesta/pkg/platform/httputil"
	"attesta/pkg/requestcontext"
)

// Service defines the reporting operations the handler exposes.
type Service interface {
	ComputeStatistics(ctx context.Context, policyID id.PolicyID, subjects []id.SubjectID, evalTime int64) (*reporting.Statistics, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts reporting endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/policies/{policyID}/stats", h.HandlePolicyStats)
}

// HandlePolicyStats handles GET /policies/{policyID}/stats. Repeated
// subjectId query parameters scope the aggregation; with none, every subject
// with a training record is included.
func (h *Handler) HandlePolicyStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policyID, err := id.ParsePolicyID(chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var subjects []id.SubjectID
	for _, raw := range r.URL.Query()["subjectId"] {
		subjectID, err := id.ParseSubjectID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		subjects = append(subjects, subjectID)
	}

	evalTime := requestcontext.Now(ctx).Unix()

	stats, err := h.service.ComputeStatistics(ctx, policyID, subjects, evalTime)
	if err != nil {
		h.logger.ErrorContext(ctx, "statistics computation failed",
			"request_id", requestcontext.RequestID(ctx),
			"policy_id", policyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
