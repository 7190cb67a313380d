package audits

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	id "attesta/pkg/domain"
	"attesta/pkg/platform/sentinel"
)

type InMemoryLogSuite struct {
	suite.Suite
	log *InMemoryLog
	ctx context.Context
}

func (s *InMemoryLogSuite) SetupTest() {
	s.log = NewInMemoryLog()
	s.ctx = context.Background()
}

func TestInMemoryLogSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLogSuite))
}

func newResult(subject, policy string, compliant bool) *AuditResult {
	return &AuditResult{
		ID:             id.NewAuditID(),
		SubjectID:      id.SubjectID(subject),
		PolicyID:       id.PolicyID(policy),
		EvaluationTime: 1700000000,
		Compliant:      compliant,
		Reasons:        []string{},
	}
}

func (s *InMemoryLogSuite) TestAppendPreservesInsertionOrder() {
	first := newResult("emp-1", "p1", true)
	second := newResult("emp-2", "p1", false)
	s.Require().NoError(s.log.Append(s.ctx, first))
	s.Require().NoError(s.log.Append(s.ctx, second))

	results, err := s.log.List(s.ctx, ResultFilter{})
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal(first.ID, results[0].ID)
	s.Equal(second.ID, results[1].ID)
}

func (s *InMemoryLogSuite) TestFilters() {
	sessionID := id.NewSessionID()
	inSession := newResult("emp-1", "p1", true)
	inSession.SessionID = sessionID
	s.Require().NoError(s.log.Append(s.ctx, inSession))
	s.Require().NoError(s.log.Append(s.ctx, newResult("emp-1", "p2", true)))
	s.Require().NoError(s.log.Append(s.ctx, newResult("emp-2", "p1", false)))

	bySubject, err := s.log.List(s.ctx, ResultFilter{SubjectID: "emp-1"})
	s.Require().NoError(err)
	s.Len(bySubject, 2)

	byPolicy, err := s.log.List(s.ctx, ResultFilter{PolicyID: "p1"})
	s.Require().NoError(err)
	s.Len(byPolicy, 2)

	bySession, err := s.log.List(s.ctx, ResultFilter{SessionID: sessionID})
	s.Require().NoError(err)
	s.Require().Len(bySession, 1)
	s.Equal(inSession.ID, bySession[0].ID)
}

func (s *InMemoryLogSuite) TestListedEntriesAreCopies() {
	result := newResult("emp-1", "p1", false)
	result.Reasons = []string{"Training expired 5 days ago"}
	s.Require().NoError(s.log.Append(s.ctx, result))

	listed, err := s.log.List(s.ctx, ResultFilter{})
	s.Require().NoError(err)
	listed[0].Reasons[0] = "tampered"

	again, err := s.log.List(s.ctx, ResultFilter{})
	s.Require().NoError(err)
	s.Equal("Training expired 5 days ago", again[0].Reasons[0])
}

// TestConcurrentAppends verifies appends are serialized: no entries are lost
// under concurrent writers.
func (s *InMemoryLogSuite) TestConcurrentAppends() {
	const writers = 50

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.log.Append(s.ctx, newResult("emp-1", "p1", true)); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(0), failures.Load())

	results, err := s.log.List(s.ctx, ResultFilter{})
	s.Require().NoError(err)
	s.Len(results, writers)
}

type InMemorySessionsSuite struct {
	suite.Suite
	store *InMemorySessions
	ctx   context.Context
}

func (s *InMemorySessionsSuite) SetupTest() {
	s.store = NewInMemorySessions()
	s.ctx = context.Background()
}

func TestInMemorySessionsSuite(t *testing.T) {
	suite.Run(t, new(InMemorySessionsSuite))
}

func (s *InMemorySessionsSuite) newSession() *AuditSession {
	return &AuditSession{
		ID:       id.NewSessionID(),
		PolicyID: "p1",
		Subjects: []id.SubjectID{"emp-1"},
		Status:   SessionPending,
	}
}

func (s *InMemorySessionsSuite) TestCreateAndGet() {
	session := s.newSession()
	s.Require().NoError(s.store.Create(s.ctx, session))

	found, err := s.store.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(session.PolicyID, found.PolicyID)

	s.Require().ErrorIs(s.store.Create(s.ctx, session), sentinel.ErrConflict)

	_, err = s.store.Get(s.ctx, id.NewSessionID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySessionsSuite) TestTransitionCompareAndSet() {
	session := s.newSession()
	s.Require().NoError(s.store.Create(s.ctx, session))

	s.Require().NoError(s.store.Transition(s.ctx, session.ID, SessionPending, SessionInProgress))

	// Stale "from" status is rejected.
	err := s.store.Transition(s.ctx, session.ID, SessionPending, SessionInProgress)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	// Backwards transitions are rejected even with the right "from".
	err = s.store.Transition(s.ctx, session.ID, SessionInProgress, SessionPending)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	s.Require().NoError(s.store.Transition(s.ctx, session.ID, SessionInProgress, SessionCompleted))

	found, err := s.store.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(SessionCompleted, found.Status)
}
