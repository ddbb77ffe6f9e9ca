package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryParticipantStore keeps participant records in memory. It is the
// default when no database is configured and the double used by tests.
type MemoryParticipantStore struct {
	mu      sync.Mutex
	order   []string          // arrival order
	session map[string]string // participant id -> session id, "" = unassigned
}

func NewMemoryParticipantStore() *MemoryParticipantStore {
	return &MemoryParticipantStore{session: make(map[string]string)}
}

func (s *MemoryParticipantStore) Save(ctx context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.session[participantID]; ok {
		return fmt.Errorf("participant %s already saved", participantID)
	}
	s.session[participantID] = ""
	s.order = append(s.order, participantID)
	return nil
}

func (s *MemoryParticipantStore) Remove(ctx context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.session, participantID)
	for i, id := range s.order {
		if id == participantID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryParticipantStore) AssignToSession(ctx context.Context, participantIDs []string, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range participantIDs {
		if _, ok := s.session[id]; !ok {
			return fmt.Errorf("participant %s not saved", id)
		}
	}
	for _, id := range participantIDs {
		s.session[id] = sessionID
	}
	return nil
}

func (s *MemoryParticipantStore) FetchUnassigned(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, id := range s.order {
		if s.session[id] == "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memorySession struct {
	participants []string
	active       bool
}

// MemorySessionStore keeps session records in memory.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*memorySession)}
}

func (s *MemorySessionStore) Create(ctx context.Context, sessionID string, participantIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		return fmt.Errorf("session %s already exists", sessionID)
	}
	ids := make([]string, len(participantIDs))
	copy(ids, participantIDs)
	s.sessions[sessionID] = &memorySession{participants: ids, active: true}
	return nil
}

func (s *MemorySessionStore) SetActive(ctx context.Context, sessionID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	rec.active = active
	return nil
}

func (s *MemorySessionStore) Remove(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Count reports how many session records exist; used by tests and stats.
func (s *MemorySessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
