package audits

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/sentinel"
)

// PostgresLog persists audit results. Insertion order is preserved through a
// bigserial sequence column; rows are never updated or deleted.
type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

func (l *PostgresLog) Append(ctx context.Context, result *AuditResult) error {
	if result == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "result is required")
	}

	reasons, err := json.Marshal(result.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}

	var sessionID any
	if !result.SessionID.IsNil() {
		sessionID = uuid.UUID(result.SessionID)
	}

	const query = `
		INSERT INTO audit_results (
			id, subject_id, policy_id, session_id, evaluation_time,
			compliant, reasons, proof_token, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = l.db.ExecContext(ctx, query,
		uuid.UUID(result.ID),
		result.SubjectID.String(),
		result.PolicyID.String(),
		sessionID,
		result.EvaluationTime,
		result.Compliant,
		reasons,
		result.OpaqueProofToken,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit result: %w", err)
	}
	return nil
}

func (l *PostgresLog) List(ctx context.Context, filter ResultFilter) ([]*AuditResult, error) {
	query := `
		SELECT id, subject_id, policy_id, session_id, evaluation_time,
		       compliant, reasons, proof_token, created_at
		FROM audit_results
		WHERE ($1 = '' OR subject_id = $1)
		  AND ($2 = '' OR policy_id = $2)
		  AND ($3::uuid IS NULL OR session_id = $3)
		ORDER BY seq
	`
	var sessionID any
	if !filter.SessionID.IsNil() {
		sessionID = uuid.UUID(filter.SessionID)
	}

	rows, err := l.db.QueryContext(ctx, query, filter.SubjectID.String(), filter.PolicyID.String(), sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audit results: %w", err)
	}
	defer rows.Close()

	var out []*AuditResult
	for rows.Next() {
		var (
			result     AuditResult
			resultID   uuid.UUID
			rowSession uuid.NullUUID
			reasons    []byte
		)
		if err := rows.Scan(
			&resultID,
			&result.SubjectID,
			&result.PolicyID,
			&rowSession,
			&result.EvaluationTime,
			&result.Compliant,
			&reasons,
			&result.OpaqueProofToken,
			&result.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit result: %w", err)
		}
		result.ID = id.AuditID(resultID)
		if rowSession.Valid {
			result.SessionID = id.SessionID(rowSession.UUID)
		}
		if err := json.Unmarshal(reasons, &result.Reasons); err != nil {
			return nil, fmt.Errorf("unmarshal reasons: %w", err)
		}
		out = append(out, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit results: %w", err)
	}
	return out, nil
}

// PostgresSessions persists audit sessions.
type PostgresSessions struct {
	db *sql.DB
}

func NewPostgresSessions(db *sql.DB) *PostgresSessions {
	return &PostgresSessions{db: db}
}

func (s *PostgresSessions) Create(ctx context.Context, session *AuditSession) error {
	if session == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "session is required")
	}

	subjects, err := json.Marshal(session.Subjects)
	if err != nil {
		return fmt.Errorf("marshal subjects: %w", err)
	}

	const query = `
		INSERT INTO audit_sessions (id, policy_id, auditor_id, subject_ids, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(session.ID),
		session.PolicyID.String(),
		uuid.UUID(session.AuditorID),
		subjects,
		string(session.Status),
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert audit session: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresSessions) Get(ctx context.Context, sessionID id.SessionID) (*AuditSession, error) {
	const query = `
		SELECT id, policy_id, auditor_id, subject_ids, status, created_at, updated_at
		FROM audit_sessions
		WHERE id = $1
	`
	var (
		session   AuditSession
		rowID     uuid.UUID
		auditorID uuid.UUID
		subjects  []byte
		status    string
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(sessionID)).Scan(
		&rowID,
		&session.PolicyID,
		&auditorID,
		&subjects,
		&status,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audit session: %w", err)
	}
	session.ID = id.SessionID(rowID)
	session.AuditorID = id.AuditorID(auditorID)
	session.Status = SessionStatus(status)
	if err := json.Unmarshal(subjects, &session.Subjects); err != nil {
		return nil, fmt.Errorf("unmarshal subjects: %w", err)
	}
	return &session, nil
}

// Transition advances the session status with a compare-and-set so concurrent
// runners cannot double-start or rewind a session.
func (s *PostgresSessions) Transition(ctx context.Context, sessionID id.SessionID, from, to SessionStatus) error {
	if !from.CanTransitionTo(to) {
		return sentinel.ErrInvalidState
	}

	const query = `
		UPDATE audit_sessions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := s.db.ExecContext(ctx, query, string(to), time.Now(), uuid.UUID(sessionID), string(from))
	if err != nil {
		return fmt.Errorf("transition audit session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition audit session: %w", err)
	}
	if affected == 0 {
		// Either the session is missing or its status moved underneath us.
		if _, getErr := s.Get(ctx, sessionID); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}
