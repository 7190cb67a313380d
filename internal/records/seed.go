package records

import (
	"context"
	"time"

	"attesta/internal/compliance"
)

// SeedDemoFixtures loads a small set of subjects and policies for local demo
// runs so the API is usable without an HR feed attached.
func SeedDemoFixtures(store *InMemory) error {
	ctx := context.Background()
	now := time.Now().Unix()

	policies := []*compliance.CompliancePolicy{
		{PolicyID: "security-awareness-2026", MaxTrainingAgeDays: 365, MinScore: 80, RequireApproval: false},
		{PolicyID: "data-handling-quarterly", MaxTrainingAgeDays: 90, MinScore: 85, RequireApproval: true},
	}
	for _, p := range policies {
		if err := store.PutPolicy(ctx, p); err != nil {
			return err
		}
	}

	records := []*compliance.TrainingRecord{
		{SubjectID: "emp-1001", TrainingCompletionTime: now - 30*86400, Score: 92, ApprovalFlag: true},
		{SubjectID: "emp-1002", TrainingCompletionTime: now - 400*86400, Score: 85, ApprovalFlag: true},
		{SubjectID: "emp-1003", TrainingCompletionTime: now - 30*86400, Score: 78, ApprovalFlag: true},
		{SubjectID: "emp-1004", TrainingCompletionTime: now - 10*86400, Score: 95, ApprovalFlag: false},
	}
	for _, r := range records {
		if err := store.PutRecord(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
