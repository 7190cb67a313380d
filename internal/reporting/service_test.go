package reporting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attesta/internal/audits"
	"attesta/internal/compliance"
	"attesta/internal/records"
	"attesta/internal/reporting"
	id "attesta/pkg/domain"
)

const evalTime = int64(1700000000)

func newFixture(t *testing.T) (*reporting.Service, *audits.Service, *records.InMemory) {
	t.Helper()

	store := records.NewInMemory()
	ctx := context.Background()
	require.NoError(t, store.PutPolicy(ctx, &compliance.CompliancePolicy{
		PolicyID:           "annual-training",
		MaxTrainingAgeDays: 365,
		MinScore:           80,
	}))
	require.NoError(t, store.PutRecord(ctx, &compliance.TrainingRecord{
		SubjectID:              "emp-ok",
		TrainingCompletionTime: evalTime - 10*86400,
		Score:                  90,
		ApprovalFlag:           true,
	}))
	require.NoError(t, store.PutRecord(ctx, &compliance.TrainingRecord{
		SubjectID:              "emp-low-score",
		TrainingCompletionTime: evalTime - 10*86400,
		Score:                  60,
		ApprovalFlag:           true,
	}))
	require.NoError(t, store.PutRecord(ctx, &compliance.TrainingRecord{
		SubjectID:              "emp-expired",
		TrainingCompletionTime: evalTime - 400*86400,
		Score:                  95,
		ApprovalFlag:           true,
	}))

	auditor, err := audits.New(store, store, audits.NewInMemoryLog(), audits.NewInMemorySessions())
	require.NoError(t, err)

	return reporting.New(auditor, store), auditor, store
}

func TestComputeStatistics(t *testing.T) {
	t.Run("aggregates over all recorded subjects by default", func(t *testing.T) {
		svc, _, _ := newFixture(t)

		stats, err := svc.ComputeStatistics(context.Background(), "annual-training", nil, evalTime)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.CompliantCount)
		assert.Equal(t, 2, stats.NonCompliantCount)
		assert.InDelta(t, 33.33, stats.ComplianceRatePercent, 0.01)
	})

	t.Run("scopes to the supplied subjects", func(t *testing.T) {
		svc, _, _ := newFixture(t)

		stats, err := svc.ComputeStatistics(context.Background(), "annual-training",
			[]id.SubjectID{"emp-ok", "emp-low-score"}, evalTime)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 1, stats.CompliantCount)
		assert.Equal(t, 50.0, stats.ComplianceRatePercent)
	})

	t.Run("unknown subjects count as non-compliant", func(t *testing.T) {
		svc, _, _ := newFixture(t)

		stats, err := svc.ComputeStatistics(context.Background(), "annual-training",
			[]id.SubjectID{"emp-missing"}, evalTime)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Total)
		assert.Equal(t, 0, stats.CompliantCount)
		assert.Equal(t, 1, stats.NonCompliantCount)
		assert.Equal(t, 0.0, stats.ComplianceRatePercent)
	})

	t.Run("empty store yields zero statistics, not an error", func(t *testing.T) {
		store := records.NewInMemory()
		auditor, err := audits.New(store, store, audits.NewInMemoryLog(), audits.NewInMemorySessions())
		require.NoError(t, err)
		svc := reporting.New(auditor, store)

		stats, err := svc.ComputeStatistics(context.Background(), "annual-training", nil, evalTime)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Total)
		assert.Equal(t, 0.0, stats.ComplianceRatePercent)
	})

	t.Run("aggregate agrees with individual audits", func(t *testing.T) {
		svc, auditor, _ := newFixture(t)
		ctx := context.Background()

		stats, err := svc.ComputeStatistics(ctx, "annual-training", nil, evalTime)
		require.NoError(t, err)

		individual := 0
		for _, subject := range []id.SubjectID{"emp-ok", "emp-low-score", "emp-expired"} {
			result, err := auditor.RunAudit(ctx, subject, "annual-training", evalTime)
			require.NoError(t, err)
			if result.Compliant {
				individual++
			}
		}
		assert.Equal(t, individual, stats.CompliantCount)
	})
}
