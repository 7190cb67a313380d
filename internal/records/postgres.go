package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"attesta/internal/compliance"
	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/sentinel"
)

// Postgres persists training records and policies. Any driver error other
// than "no rows" is an infrastructure failure and propagates wrapped; it is
// never reported as ErrNotFound.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) GetRecord(ctx context.Context, subjectID id.SubjectID) (*compliance.TrainingRecord, error) {
	const query = `
		SELECT subject_id, completion_time, score, approval_flag
		FROM training_records
		WHERE subject_id = $1
	`
	var record compliance.TrainingRecord
	err := s.db.QueryRowContext(ctx, query, subjectID.String()).Scan(
		&record.SubjectID,
		&record.TrainingCompletionTime,
		&record.Score,
		&record.ApprovalFlag,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get training record: %w", err)
	}
	return &record, nil
}

func (s *Postgres) ListRecords(ctx context.Context) ([]*compliance.TrainingRecord, error) {
	const query = `
		SELECT subject_id, completion_time, score, approval_flag
		FROM training_records
		ORDER BY subject_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list training records: %w", err)
	}
	defer rows.Close()

	var out []*compliance.TrainingRecord
	for rows.Next() {
		var record compliance.TrainingRecord
		if err := rows.Scan(&record.SubjectID, &record.TrainingCompletionTime, &record.Score, &record.ApprovalFlag); err != nil {
			return nil, fmt.Errorf("scan training record: %w", err)
		}
		out = append(out, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training records: %w", err)
	}
	return out, nil
}

func (s *Postgres) PutRecord(ctx context.Context, record *compliance.TrainingRecord) error {
	if record == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "record is required")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	const query = `
		INSERT INTO training_records (subject_id, completion_time, score, approval_flag, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id) DO UPDATE SET
			completion_time = EXCLUDED.completion_time,
			score = EXCLUDED.score,
			approval_flag = EXCLUDED.approval_flag,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		record.SubjectID.String(),
		record.TrainingCompletionTime,
		record.Score,
		record.ApprovalFlag,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert training record: %w", err)
	}
	return nil
}

func (s *Postgres) GetPolicy(ctx context.Context, policyID id.PolicyID) (*compliance.CompliancePolicy, error) {
	const query = `
		SELECT policy_id, max_training_age_days, min_score, require_approval
		FROM compliance_policies
		WHERE policy_id = $1
	`
	var policy compliance.CompliancePolicy
	err := s.db.QueryRowContext(ctx, query, policyID.String()).Scan(
		&policy.PolicyID,
		&policy.MaxTrainingAgeDays,
		&policy.MinScore,
		&policy.RequireApproval,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get compliance policy: %w", err)
	}
	return &policy, nil
}

func (s *Postgres) ListPolicies(ctx context.Context) ([]*compliance.CompliancePolicy, error) {
	const query = `
		SELECT policy_id, max_training_age_days, min_score, require_approval
		FROM compliance_policies
		ORDER BY policy_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list compliance policies: %w", err)
	}
	defer rows.Close()

	var out []*compliance.CompliancePolicy
	for rows.Next() {
		var policy compliance.CompliancePolicy
		if err := rows.Scan(&policy.PolicyID, &policy.MaxTrainingAgeDays, &policy.MinScore, &policy.RequireApproval); err != nil {
			return nil, fmt.Errorf("scan compliance policy: %w", err)
		}
		out = append(out, &policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate compliance policies: %w", err)
	}
	return out, nil
}

func (s *Postgres) PutPolicy(ctx context.Context, policy *compliance.CompliancePolicy) error {
	if policy == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "policy is required")
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	const query = `
		INSERT INTO compliance_policies (policy_id, max_training_age_days, min_score, require_approval, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (policy_id) DO UPDATE SET
			max_training_age_days = EXCLUDED.max_training_age_days,
			min_score = EXCLUDED.min_score,
			require_approval = EXCLUDED.require_approval,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		policy.PolicyID.String(),
		policy.MaxTrainingAgeDays,
		policy.MinScore,
		policy.RequireApproval,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert compliance policy: %w", err)
	}
	return nil
}
