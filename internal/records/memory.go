package records

import (
	"context"
	"sort"
	"sync"

	"attesta/internal/compliance"
	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/sentinel"
)

// InMemory implements RecordStore and PolicyStore over maps. Suitable for
// tests and the demo fixture mode; production runs use the Postgres store.
type InMemory struct {
	mu       sync.RWMutex
	records  map[id.SubjectID]compliance.TrainingRecord
	policies map[id.PolicyID]compliance.CompliancePolicy
}

func NewInMemory() *InMemory {
	return &InMemory{
		records:  make(map[id.SubjectID]compliance.TrainingRecord),
		policies: make(map[id.PolicyID]compliance.CompliancePolicy),
	}
}

func (s *InMemory) GetRecord(_ context.Context, subjectID id.SubjectID) (*compliance.TrainingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	// Copy out so callers can never mutate stored state.
	return &record, nil
}

func (s *InMemory) ListRecords(_ context.Context) ([]*compliance.TrainingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*compliance.TrainingRecord, 0, len(s.records))
	for _, record := range s.records {
		record := record
		out = append(out, &record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (s *InMemory) PutRecord(_ context.Context, record *compliance.TrainingRecord) error {
	if record == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "record is required")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SubjectID] = *record
	return nil
}

func (s *InMemory) GetPolicy(_ context.Context, policyID id.PolicyID) (*compliance.CompliancePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policy, ok := s.policies[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &policy, nil
}

func (s *InMemory) ListPolicies(_ context.Context) ([]*compliance.CompliancePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*compliance.CompliancePolicy, 0, len(s.policies))
	for _, policy := range s.policies {
		policy := policy
		out = append(out, &policy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolicyID < out[j].PolicyID })
	return out, nil
}

func (s *InMemory) PutPolicy(_ context.Context, policy *compliance.CompliancePolicy) error {
	if policy == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "policy is required")
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.PolicyID] = *policy
	return nil
}
