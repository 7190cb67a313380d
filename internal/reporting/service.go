// Package reporting aggregates audit outcomes into per-policy compliance
// statistics.
package reporting

import (
	"context"
	"log/slog"

	"attesta/internal/audits"
	"attesta/internal/records"
	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
)

// Statistics summarizes audit outcomes for one policy over a subject set.
type Statistics struct {
	PolicyID              id.PolicyID `json:"policyId"`
	Total                 int         `json:"total"`
	CompliantCount        int         `json:"compliantCount"`
	NonCompliantCount     int         `json:"nonCompliantCount"`
	ComplianceRatePercent float64     `json:"complianceRatePercent"`
}

// Auditor is the slice of the audits service the reporter needs.
type Auditor interface {
	RunAudit(ctx context.Context, subjectID id.SubjectID, policyID id.PolicyID, evalTime int64) (*audits.AuditResult, error)
}

// Service computes compliance statistics by running one audit per subject.
type Service struct {
	auditor Auditor
	records records.RecordStore
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(auditor Auditor, recordStore records.RecordStore, opts ...Option) *Service {
	svc := &Service{
		auditor: auditor,
		records: recordStore,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ComputeStatistics audits each subject against the policy at evalTime and
// aggregates the verdicts. An empty subject slice means "every subject with a
// training record". Zero subjects yields all-zero statistics with a 0% rate,
// not an error.
//
// The aggregate is derived from the same predicate as individual audits, so
// compliantCount always matches the number of subjects an individual audit
// would clear at the same instant.
func (s *Service) ComputeStatistics(ctx context.Context, policyID id.PolicyID, subjects []id.SubjectID, evalTime int64) (*Statistics, error) {
	if len(subjects) == 0 {
		all, err := s.records.ListRecords(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
		}
		for _, record := range all {
			subjects = append(subjects, record.SubjectID)
		}
	}

	stats := &Statistics{PolicyID: policyID}
	for _, subjectID := range subjects {
		result, err := s.auditor.RunAudit(ctx, subjectID, policyID, evalTime)
		if err != nil {
			return nil, err
		}
		stats.Total++
		if result.Compliant {
			stats.CompliantCount++
		} else {
			stats.NonCompliantCount++
		}
	}

	if stats.Total > 0 {
		stats.ComplianceRatePercent = float64(stats.CompliantCount) / float64(stats.Total) * 100
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "computed compliance statistics",
			"policy_id", policyID,
			"total", stats.Total,
			"compliant", stats.CompliantCount,
			"rate_percent", stats.ComplianceRatePercent,
		)
	}
	return stats, nil
}
