package handler

import (
	"time"

	"attesta/internal/audits"
)

// AuditResultResponse mirrors the JSON shape the dashboard renders.
type AuditResultResponse struct {
	ID               string   `json:"id"`
	SubjectID        string   `json:"subjectId"`
	PolicyID         string   `json:"policyId"`
	SessionID        string   `json:"sessionId,omitempty"`
	EvaluationTime   int64    `json:"evaluationTime"`
	Compliant        bool     `json:"compliant"`
	Reasons          []string `json:"reasons"`
	OpaqueProofToken string   `json:"opaqueProofToken"`
	CreatedAt        string   `json:"createdAt"`
}

func FromResult(result *audits.AuditResult) AuditResultResponse {
	resp := AuditResultResponse{
		ID:               result.ID.String(),
		SubjectID:        result.SubjectID.String(),
		PolicyID:         result.PolicyID.String(),
		EvaluationTime:   result.EvaluationTime,
		Compliant:        result.Compliant,
		Reasons:          result.Reasons,
		OpaqueProofToken: result.OpaqueProofToken,
		CreatedAt:        result.CreatedAt.UTC().Format(time.RFC3339),
	}
	if resp.Reasons == nil {
		resp.Reasons = []string{}
	}
	if !result.SessionID.IsNil() {
		resp.SessionID = result.SessionID.String()
	}
	return resp
}

// ListResultsResponse wraps the result collection.
type ListResultsResponse struct {
	Results []AuditResultResponse `json:"results"`
}

func FromResults(results []*audits.AuditResult) ListResultsResponse {
	out := ListResultsResponse{Results: make([]AuditResultResponse, 0, len(results))}
	for _, result := range results {
		out.Results = append(out.Results, FromResult(result))
	}
	return out
}

// SessionResponse mirrors the session JSON shape.
type SessionResponse struct {
	SessionID  string   `json:"sessionId"`
	PolicyID   string   `json:"policyId"`
	AuditorID  string   `json:"auditorId"`
	SubjectIDs []string `json:"subjectIds"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
}

func FromSession(session *audits.AuditSession) SessionResponse {
	subjects := make([]string, 0, len(session.Subjects))
	for _, subjectID := range session.Subjects {
		subjects = append(subjects, subjectID.String())
	}
	return SessionResponse{
		SessionID:  session.ID.String(),
		PolicyID:   session.PolicyID.String(),
		AuditorID:  session.AuditorID.String(),
		SubjectIDs: subjects,
		Status:     string(session.Status),
		CreatedAt:  session.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  session.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
