package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrSubmitted = errors.New("session already submitted")
)

type Store interface {
	New(instrumentID, respondentID string) (Session, error)
	Get(id string) (Session, error)
	// SaveAnswers merges the given answers into the session's answer
	// map; existing items are overwritten, others kept.
	SaveAnswers(id string, answers map[string]any) (Session, error)
	Submit(id string) (Session, error)
	ListByRespondent(respondentID string) ([]Session, error)
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewInMemoryStore backs sessions with a process-local map, for tests
// and single-shot CLI use.
func NewInMemoryStore() Store {
	return &memoryStore{sessions: map[string]Session{}}
}

func (m *memoryStore) New(instrumentID, respondentID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Session{
		ID:           uuid.NewString(),
		InstrumentID: instrumentID,
		RespondentID: respondentID,
		Status:       StatusInProgress,
		Answers:      map[string]any{},
		StartedAt:    time.Now().Unix(),
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryStore) Get(id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) SaveAnswers(id string, answers map[string]any) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Status == StatusSubmitted {
		return Session{}, ErrSubmitted
	}
	if s.Answers == nil {
		s.Answers = map[string]any{}
	}
	for k, v := range answers {
		s.Answers[k] = v
	}
	m.sessions[id] = s
	return s, nil
}

func (m *memoryStore) Submit(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Status != StatusSubmitted {
		now := time.Now().Unix()
		s.Status = StatusSubmitted
		s.SubmittedAt = &now
		m.sessions[id] = s
	}
	return s, nil
}

func (m *memoryStore) ListByRespondent(respondentID string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, s := range m.sessions {
		if s.RespondentID == respondentID {
			out = append(out, s)
		}
	}
	return out, nil
}
