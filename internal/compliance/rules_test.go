package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	evalTime     = int64(1700000000)
	daysInSecond = int64(86400)
)

func standardPolicy() CompliancePolicy {
	return CompliancePolicy{
		PolicyID:           "policy-standard",
		MaxTrainingAgeDays: 365,
		MinScore:           80,
		RequireApproval:    false,
	}
}

func recordCompletedDaysAgo(days int64, score int) TrainingRecord {
	return TrainingRecord{
		SubjectID:              "emp-001",
		TrainingCompletionTime: evalTime - days*daysInSecond,
		Score:                  score,
		ApprovalFlag:           true,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name          string
		record        TrainingRecord
		policy        CompliancePolicy
		wantCompliant bool
		wantReasons   []string
	}{
		{
			name:          "fully compliant",
			record:        recordCompletedDaysAgo(30, 92),
			policy:        standardPolicy(),
			wantCompliant: true,
		},
		{
			name:          "expired training",
			record:        recordCompletedDaysAgo(400, 85),
			policy:        standardPolicy(),
			wantCompliant: false,
			wantReasons:   []string{"Training expired 35 days ago"},
		},
		{
			name:          "score below minimum",
			record:        recordCompletedDaysAgo(30, 78),
			policy:        standardPolicy(),
			wantCompliant: false,
			wantReasons:   []string{"Score (78%) below minimum (80%)"},
		},
		{
			name: "missing approval",
			record: TrainingRecord{
				SubjectID:              "emp-001",
				TrainingCompletionTime: evalTime - 30*daysInSecond,
				Score:                  92,
				ApprovalFlag:           false,
			},
			policy: CompliancePolicy{
				PolicyID:           "policy-approval",
				MaxTrainingAgeDays: 365,
				MinScore:           80,
				RequireApproval:    true,
			},
			wantCompliant: false,
			wantReasons:   []string{"Manager approval required but not obtained"},
		},
		{
			name:          "all rules fail and reasons accumulate in rule order",
			record:        TrainingRecord{SubjectID: "emp-001", TrainingCompletionTime: evalTime - 400*daysInSecond, Score: 50},
			policy:        CompliancePolicy{PolicyID: "p", MaxTrainingAgeDays: 365, MinScore: 80, RequireApproval: true},
			wantCompliant: false,
			wantReasons: []string{
				"Training expired 35 days ago",
				"Score (50%) below minimum (80%)",
				"Manager approval required but not obtained",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.record, tt.policy, evalTime)
			assert.Equal(t, tt.wantCompliant, got.Compliant)
			if tt.wantCompliant {
				assert.Empty(t, got.Reasons)
			} else {
				assert.Equal(t, tt.wantReasons, got.Reasons)
			}
		})
	}
}

// TestEvaluate_AgeBoundaryInclusive verifies the tie-break rule: a record whose
// age exactly equals MaxTrainingAgeDays is still compliant. Expiry uses strict
// greater-than, not greater-or-equal.
func TestEvaluate_AgeBoundaryInclusive(t *testing.T) {
	policy := standardPolicy()

	t.Run("age exactly at bound passes", func(t *testing.T) {
		record := recordCompletedDaysAgo(365, 92)
		got := Evaluate(record, policy, evalTime)
		assert.True(t, got.Compliant)
		assert.Empty(t, got.Reasons)
	})

	t.Run("one second past the bound fails", func(t *testing.T) {
		record := recordCompletedDaysAgo(365, 92)
		record.TrainingCompletionTime--
		got := Evaluate(record, policy, evalTime)
		assert.False(t, got.Compliant)
		require.Len(t, got.Reasons, 1)
		assert.Contains(t, got.Reasons[0], "expired")
	})
}

// TestEvaluate_ScoreBoundaryInclusive verifies Score == MinScore passes.
func TestEvaluate_ScoreBoundaryInclusive(t *testing.T) {
	got := Evaluate(recordCompletedDaysAgo(30, 80), standardPolicy(), evalTime)
	assert.True(t, got.Compliant)

	got = Evaluate(recordCompletedDaysAgo(30, 79), standardPolicy(), evalTime)
	assert.False(t, got.Compliant)
}

// TestEvaluate_Idempotent verifies identical inputs always yield identical
// verdicts; the predicate holds no state.
func TestEvaluate_Idempotent(t *testing.T) {
	record := recordCompletedDaysAgo(400, 70)
	policy := standardPolicy()

	first := Evaluate(record, policy, evalTime)
	second := Evaluate(record, policy, evalTime)
	assert.Equal(t, first, second)
}

func TestNotFoundEvaluation(t *testing.T) {
	got := NotFoundEvaluation()
	assert.False(t, got.Compliant)
	assert.Equal(t, []string{ReasonNotFound}, got.Reasons)
}

func TestTrainingRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  TrainingRecord
		wantErr bool
	}{
		{"valid", recordCompletedDaysAgo(30, 92), false},
		{"missing subject", TrainingRecord{TrainingCompletionTime: 1, Score: 50}, true},
		{"zero completion time", TrainingRecord{SubjectID: "e", Score: 50}, true},
		{"negative completion time", TrainingRecord{SubjectID: "e", TrainingCompletionTime: -1, Score: 50}, true},
		{"score above 100", TrainingRecord{SubjectID: "e", TrainingCompletionTime: 1, Score: 101}, true},
		{"score below 0", TrainingRecord{SubjectID: "e", TrainingCompletionTime: 1, Score: -1}, true},
		{"score at bounds", TrainingRecord{SubjectID: "e", TrainingCompletionTime: 1, Score: 100}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCompliancePolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  CompliancePolicy
		wantErr bool
	}{
		{"valid", standardPolicy(), false},
		{"missing id", CompliancePolicy{MaxTrainingAgeDays: 1}, true},
		{"zero max age", CompliancePolicy{PolicyID: "p", MaxTrainingAgeDays: 0}, true},
		{"min score out of range", CompliancePolicy{PolicyID: "p", MaxTrainingAgeDays: 1, MinScore: 101}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
