package compliance

import (
	"fmt"
	"math"
)

// SecondsPerDay converts epoch-second ages into day counts.
const SecondsPerDay = 86400.0

// ReasonNotFound is attached by the audit lifecycle when the subject or policy
// cannot be resolved. An unknown subject is a legitimate audit outcome, not a
// system failure, so it surfaces as a non-compliant evaluation.
const ReasonNotFound = "Employee or policy not found"

// Evaluate applies the compliance rules to one record against one policy at
// evalTime (seconds since epoch). This is pure domain logic - no I/O, no side
// effects, safe for concurrent callers.
//
// Rule order (all rules run; reasons accumulate):
//  1. Training age: expired when strictly older than MaxTrainingAgeDays.
//     Age exactly equal to the bound is compliant.
//  2. Score: passing when Score >= MinScore.
//  3. Approval: required only when the policy demands it.
func Evaluate(record TrainingRecord, policy CompliancePolicy, evalTime int64) Evaluation {
	var reasons []string

	ageDays := float64(evalTime-record.TrainingCompletionTime) / SecondsPerDay
	if ageDays > float64(policy.MaxTrainingAgeDays) {
		overdue := int(math.Floor(ageDays - float64(policy.MaxTrainingAgeDays)))
		reasons = append(reasons, fmt.Sprintf("Training expired %d days ago", overdue))
	}

	if record.Score < policy.MinScore {
		reasons = append(reasons, fmt.Sprintf("Score (%d%%) below minimum (%d%%)", record.Score, policy.MinScore))
	}

	if policy.RequireApproval && !record.ApprovalFlag {
		reasons = append(reasons, "Manager approval required but not obtained")
	}

	return Evaluation{
		Compliant: len(reasons) == 0,
		Reasons:   reasons,
	}
}

// NotFoundEvaluation is the verdict for an unresolvable subject or policy.
func NotFoundEvaluation() Evaluation {
	return Evaluation{
		Compliant: false,
		Reasons:   []string{ReasonNotFound},
	}
}
