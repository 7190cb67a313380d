package audits

import (
	"context"
	"sync"
	"time"

	id "attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/sentinel"
)

// InMemoryLog is the mutex-serialized, append-only result log. Reads copy the
// matching slice so callers never observe later appends through shared state.
type InMemoryLog struct {
	mu      sync.RWMutex
	results []*AuditResult
}

func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{}
}

func (l *InMemoryLog) Append(_ context.Context, result *AuditResult) error {
	if result == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "result is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Store a copy so the caller cannot mutate the logged entry afterwards.
	stored := *result
	stored.Reasons = append([]string(nil), result.Reasons...)
	l.results = append(l.results, &stored)
	return nil
}

func (l *InMemoryLog) List(_ context.Context, filter ResultFilter) ([]*AuditResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*AuditResult
	for _, result := range l.results {
		if filter.SubjectID != "" && result.SubjectID != filter.SubjectID {
			continue
		}
		if filter.PolicyID != "" && result.PolicyID != filter.PolicyID {
			continue
		}
		if !filter.SessionID.IsNil() && result.SessionID != filter.SessionID {
			continue
		}
		copied := *result
		copied.Reasons = append([]string(nil), result.Reasons...)
		out = append(out, &copied)
	}
	return out, nil
}

// InMemorySessions stores sessions keyed by ID.
type InMemorySessions struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*AuditSession
}

func NewInMemorySessions() *InMemorySessions {
	return &InMemorySessions{sessions: make(map[id.SessionID]*AuditSession)}
}

func (s *InMemorySessions) Create(_ context.Context, session *AuditSession) error {
	if session == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "session is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *session
	stored.Subjects = append([]id.SubjectID(nil), session.Subjects...)
	s.sessions[session.ID] = &stored
	return nil
}

func (s *InMemorySessions) Get(_ context.Context, sessionID id.SessionID) (*AuditSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *session
	copied.Subjects = append([]id.SubjectID(nil), session.Subjects...)
	return &copied, nil
}

func (s *InMemorySessions) Transition(_ context.Context, sessionID id.SessionID, from, to SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if session.Status != from || !from.CanTransitionTo(to) {
		return sentinel.ErrInvalidState
	}
	session.Status = to
	session.UpdatedAt = time.Now()
	return nil
}
