package handler

import (
	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	strutil "attesta/pkg/platform/strings"
)

// RunAuditRequest is the wire shape for POST /audits.
type RunAuditRequest struct {
	SubjectID string `json:"subjectId"`
	PolicyID  string `json:"policyId"`
	// EvaluationTime is seconds since epoch. Zero means "now" as captured by
	// the request-time middleware, keeping evaluation deterministic per
	// request.
	EvaluationTime int64 `json:"evaluationTime,omitempty"`
}

func (r RunAuditRequest) Validate() (id.SubjectID, id.PolicyID, error) {
	subjectID, err := id.ParseSubjectID(r.SubjectID)
	if err != nil {
		return "", "", err
	}
	policyID, err := id.ParsePolicyID(r.PolicyID)
	if err != nil {
		return "", "", err
	}
	if r.EvaluationTime < 0 {
		return "", "", dErrors.New(dErrors.CodeBadRequest, "evaluationTime must not be negative")
	}
	return subjectID, policyID, nil
}

// CreateSessionRequest is the wire shape for POST /sessions.
type CreateSessionRequest struct {
	PolicyID   string   `json:"policyId"`
	SubjectIDs []string `json:"subjectIds"`
}

func (r CreateSessionRequest) Validate() (id.PolicyID, []id.SubjectID, error) {
	policyID, err := id.ParsePolicyID(r.PolicyID)
	if err != nil {
		return "", nil, err
	}

	// Duplicate subjects would be audited twice; collapse them up front.
	deduped := strutil.DedupeAndTrim(r.SubjectIDs)
	if len(deduped) == 0 {
		return "", nil, dErrors.New(dErrors.CodeBadRequest, "subjectIds must not be empty")
	}
	subjects := make([]id.SubjectID, 0, len(deduped))
	for _, raw := range deduped {
		subjectID, err := id.ParseSubjectID(raw)
		if err != nil {
			return "", nil, err
		}
		subjects = append(subjects, subjectID)
	}
	return policyID, subjects, nil
}

// RunSessionRequest is the wire shape for POST /sessions/{sessionID}/run.
type RunSessionRequest struct {
	EvaluationTime int64 `json:"evaluationTime,omitempty"`
}
