package records

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attesta/internal/compliance"
	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

// TestRecordLookups verifies upsert and lookup behavior for training records.
func (s *InMemoryStoreSuite) TestRecordLookups() {
	s.Run("stores and finds record by subject", func() {
		record := &compliance.TrainingRecord{
			SubjectID:              "emp-001",
			TrainingCompletionTime: time.Now().Unix() - 30*86400,
			Score:                  92,
			ApprovalFlag:           true,
		}
		s.Require().NoError(s.store.PutRecord(s.ctx, record))

		found, err := s.store.GetRecord(s.ctx, "emp-001")
		s.Require().NoError(err)
		s.Equal(record.Score, found.Score)
	})

	s.Run("returns ErrNotFound for unknown subject", func() {
		_, err := s.store.GetRecord(s.ctx, "emp-unknown")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects invalid record at ingestion", func() {
		record := &compliance.TrainingRecord{
			SubjectID:              "emp-002",
			TrainingCompletionTime: time.Now().Unix(),
			Score:                  150,
		}
		err := s.store.PutRecord(s.ctx, record)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("lookup returns a copy, not shared state", func() {
		record := &compliance.TrainingRecord{
			SubjectID:              "emp-003",
			TrainingCompletionTime: time.Now().Unix() - 86400,
			Score:                  90,
		}
		s.Require().NoError(s.store.PutRecord(s.ctx, record))

		found, err := s.store.GetRecord(s.ctx, "emp-003")
		s.Require().NoError(err)
		found.Score = 0

		again, err := s.store.GetRecord(s.ctx, "emp-003")
		s.Require().NoError(err)
		s.Equal(90, again.Score)
	})
}

// TestListRecordsRestartable verifies a fresh List call re-enumerates the full
// current set with no iterator state between calls.
func (s *InMemoryStoreSuite) TestListRecordsRestartable() {
	now := time.Now().Unix()
	for _, subject := range []string{"emp-b", "emp-a"} {
		s.Require().NoError(s.store.PutRecord(s.ctx, &compliance.TrainingRecord{
			SubjectID:              id.SubjectID(subject),
			TrainingCompletionTime: now,
			Score:                  80,
		}))
	}

	first, err := s.store.ListRecords(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(first, 2)
	s.Equal(id.SubjectID("emp-a"), first[0].SubjectID)

	// A later Put shows up in the next enumeration.
	s.Require().NoError(s.store.PutRecord(s.ctx, &compliance.TrainingRecord{
		SubjectID:              "emp-c",
		TrainingCompletionTime: now,
		Score:                  80,
	}))

	second, err := s.store.ListRecords(s.ctx)
	s.Require().NoError(err)
	s.Len(second, 3)
}

func (s *InMemoryStoreSuite) TestPolicyLookups() {
	s.Run("stores and finds policy", func() {
		policy := &compliance.CompliancePolicy{
			PolicyID:           "annual-training",
			MaxTrainingAgeDays: 365,
			MinScore:           80,
		}
		s.Require().NoError(s.store.PutPolicy(s.ctx, policy))

		found, err := s.store.GetPolicy(s.ctx, "annual-training")
		s.Require().NoError(err)
		s.Equal(365, found.MaxTrainingAgeDays)
	})

	s.Run("returns ErrNotFound for unknown policy", func() {
		_, err := s.store.GetPolicy(s.ctx, "no-such-policy")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects invalid policy", func() {
		policy := &compliance.CompliancePolicy{PolicyID: "bad", MaxTrainingAgeDays: 0}
		err := s.store.PutPolicy(s.ctx, policy)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("upsert replaces thresholds", func() {
		policy := &compliance.CompliancePolicy{PolicyID: "p1", MaxTrainingAgeDays: 180, MinScore: 85}
		s.Require().NoError(s.store.PutPolicy(s.ctx, policy))

		policy.MinScore = 90
		s.Require().NoError(s.store.PutPolicy(s.ctx, policy))

		found, err := s.store.GetPolicy(s.ctx, "p1")
		s.Require().NoError(err)
		s.Equal(90, found.MinScore)
	})
}
