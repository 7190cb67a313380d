// Package records provides lookup of training records and compliance policies.
//
// Stores report missing identifiers with sentinel.ErrNotFound; infrastructure
// failures (backing store unreachable) are wrapped around
// sentinel.ErrUnavailable so callers can tell a legitimate "unknown subject"
// apart from an outage. The two must never be conflated.
package records

import (
	"context"

	"attesta/internal/compliance"
	id "attesta/pkg/domain"
)

// RecordStore resolves subjects to training records.
type RecordStore interface {
	// GetRecord returns the training record for a subject, or
	// sentinel.ErrNotFound.
	GetRecord(ctx context.Context, subjectID id.SubjectID) (*compliance.TrainingRecord, error)

	// ListRecords re-enumerates the full current record set on every call.
	// No iterator state is retained between calls.
	ListRecords(ctx context.Context) ([]*compliance.TrainingRecord, error)

	// PutRecord validates and upserts a record (ingestion path).
	PutRecord(ctx context.Context, record *compliance.TrainingRecord) error
}

// PolicyStore resolves policy identifiers to compliance policies.
type PolicyStore interface {
	// GetPolicy returns the policy, or sentinel.ErrNotFound.
	GetPolicy(ctx context.Context, policyID id.PolicyID) (*compliance.CompliancePolicy, error)

	// ListPolicies re-enumerates the full current policy set on every call.
	ListPolicies(ctx context.Context) ([]*compliance.CompliancePolicy, error)

	// PutPolicy validates and upserts a policy (configuration path).
	PutPolicy(ctx context.Context, policy *compliance.CompliancePolicy) error
}
