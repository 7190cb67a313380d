//go:build integration

package audits_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attesta/internal/audits"
	platformpostgres "attesta/internal/platform/postgres"
	id "attesta/pkg/domain"
	"attesta/pkg/platform/sentinel"
	"attesta/pkg/testutil/containers"
)

type PostgresAuditsSuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	log      *audits.PostgresLog
	sessions *audits.PostgresSessions
	ctx      context.Context
}

func TestPostgresAuditsSuite(t *testing.T) {
	suite.Run(t, new(PostgresAuditsSuite))
}

func (s *PostgresAuditsSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(platformpostgres.Migrate(s.ctx, s.pg.DB))
	s.log = audits.NewPostgresLog(s.pg.DB)
	s.sessions = audits.NewPostgresSessions(s.pg.DB)
}

func (s *PostgresAuditsSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(s.ctx)
}

func (s *PostgresAuditsSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *PostgresAuditsSuite) newResult(subject string, compliant bool, reasons ...string) *audits.AuditResult {
	if reasons == nil {
		reasons = []string{}
	}
	return &audits.AuditResult{
		ID:               id.NewAuditID(),
		SubjectID:        id.SubjectID(subject),
		PolicyID:         "annual-training",
		EvaluationTime:   1700000000,
		Compliant:        compliant,
		Reasons:          reasons,
		OpaqueProofToken: "token",
	}
}

func (s *PostgresAuditsSuite) TestLogAppendAndListOrder() {
	first := s.newResult("emp-1", true)
	second := s.newResult("emp-2", false, "Score (60%) below minimum (80%)")
	s.Require().NoError(s.log.Append(s.ctx, first))
	s.Require().NoError(s.log.Append(s.ctx, second))

	results, err := s.log.List(s.ctx, audits.ResultFilter{})
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(first.ID, results[0].ID)
	s.Equal(second.ID, results[1].ID)
	s.Equal([]string{"Score (60%) below minimum (80%)"}, results[1].Reasons)
}

func (s *PostgresAuditsSuite) TestLogFilters() {
	sessionID := id.NewSessionID()
	inSession := s.newResult("emp-1", true)
	inSession.SessionID = sessionID
	s.Require().NoError(s.log.Append(s.ctx, inSession))
	s.Require().NoError(s.log.Append(s.ctx, s.newResult("emp-2", true)))

	bySubject, err := s.log.List(s.ctx, audits.ResultFilter{SubjectID: "emp-1"})
	s.Require().NoError(err)
	s.Len(bySubject, 1)

	bySession, err := s.log.List(s.ctx, audits.ResultFilter{SessionID: sessionID})
	s.Require().NoError(err)
	s.Require().Len(bySession, 1)
	s.Equal(sessionID, bySession[0].SessionID)
}

func (s *PostgresAuditsSuite) newSession() *audits.AuditSession {
	// Postgres stores timestamptz at microsecond precision.
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &audits.AuditSession{
		ID:        id.NewSessionID(),
		PolicyID:  "annual-training",
		AuditorID: id.NewAuditorID(),
		Subjects:  []id.SubjectID{"emp-1", "emp-2"},
		Status:    audits.SessionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresAuditsSuite) TestSessionRoundTrip() {
	session := s.newSession()
	s.Require().NoError(s.sessions.Create(s.ctx, session))

	found, err := s.sessions.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.PolicyID, found.PolicyID)
	s.Equal(session.AuditorID, found.AuditorID)
	s.Equal(session.Subjects, found.Subjects)
	s.Equal(audits.SessionPending, found.Status)

	s.Require().ErrorIs(s.sessions.Create(s.ctx, session), sentinel.ErrConflict)
}

func (s *PostgresAuditsSuite) TestSessionTransitionCompareAndSet() {
	session := s.newSession()
	s.Require().NoError(s.sessions.Create(s.ctx, session))

	s.Require().NoError(s.sessions.Transition(s.ctx, session.ID, audits.SessionPending, audits.SessionInProgress))

	err := s.sessions.Transition(s.ctx, session.ID, audits.SessionPending, audits.SessionInProgress)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	s.Require().NoError(s.sessions.Transition(s.ctx, session.ID, audits.SessionInProgress, audits.SessionCompleted))

	found, err := s.sessions.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(audits.SessionCompleted, found.Status)
}

func (s *PostgresAuditsSuite) TestSessionTransitionUnknownSession() {
	err := s.sessions.Transition(s.ctx, id.NewSessionID(), audits.SessionPending, audits.SessionInProgress)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
