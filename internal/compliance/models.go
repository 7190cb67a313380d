// Package compliance holds the training-compliance domain model and the pure
// evaluation rules. No I/O lives here; stores and services feed it data.
package compliance

import (
	"fmt"

	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
)

// TrainingRecord is one subject's training state as supplied by the external
// data source. Evaluation never mutates it.
type TrainingRecord struct {
	SubjectID id.SubjectID `json:"subjectId"`
	// TrainingCompletionTime is seconds since epoch.
	TrainingCompletionTime int64 `json:"trainingCompletionTime"`
	// Score is the training module result in [0, 100].
	Score int `json:"score"`
	// ApprovalFlag reports whether supervisory approval has been granted.
	ApprovalFlag bool `json:"approvalFlag"`
}

// Validate enforces the record invariants at ingestion time. The predicate
// assumes validated input; out-of-range values are rejected here, never
// clamped.
func (r TrainingRecord) Validate() error {
	if r.SubjectID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subjectId is required")
	}
	if r.TrainingCompletionTime <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "trainingCompletionTime must be positive")
	}
	if r.Score < 0 || r.Score > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("score %d outside [0,100]", r.Score))
	}
	return nil
}

// CompliancePolicy is one named rule set. Immutable during evaluation.
type CompliancePolicy struct {
	PolicyID id.PolicyID `json:"policyId"`
	// MaxTrainingAgeDays bounds how old the completion may be at evaluation
	// time. Age exactly equal to the bound is still compliant.
	MaxTrainingAgeDays int `json:"maxTrainingAgeDays"`
	// MinScore is the minimum passing score, inclusive.
	MinScore int `json:"minScore"`
	// RequireApproval demands ApprovalFlag on the record.
	RequireApproval bool `json:"requireApproval"`
}

// Validate enforces the policy invariants at configuration time.
func (p CompliancePolicy) Validate() error {
	if p.PolicyID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "policyId is required")
	}
	if p.MaxTrainingAgeDays <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "maxTrainingAgeDays must be positive")
	}
	if p.MinScore < 0 || p.MinScore > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("minScore %d outside [0,100]", p.MinScore))
	}
	return nil
}

// Evaluation is the predicate's verdict: compliant iff no reasons accumulated.
type Evaluation struct {
	Compliant bool
	// Reasons holds one human-readable entry per failed condition, in rule
	// order (age, score, approval). Empty when compliant.
	Reasons []string
}
