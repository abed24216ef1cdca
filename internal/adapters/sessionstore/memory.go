// Package sessionstore provides session registry adapters.
// Clean Architecture: Adapter implementing ports.SessionStore.
package sessionstore

import (
	"sync"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/ports"
)

// InMemoryStore keeps live sessions for the lifetime of the process.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*ports.Session // sessionID -> session
	onChange func(n int)
}

// NewInMemoryStore creates a new in-memory session store. onChange, when
// set, is called with the new session count after every Put or Delete.
func NewInMemoryStore(onChange func(n int)) *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*ports.Session),
		onChange: onChange,
	}
}

// Put registers a session, replacing any session with the same ID.
func (s *InMemoryStore) Put(session *ports.Session) {
	s.mu.Lock()
	s.sessions[session.ID] = session
	n := len(s.sessions)
	s.mu.Unlock()

	s.notify(n)
}

// Get looks up a session by ID.
func (s *InMemoryStore) Get(id string) (*ports.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	return session, ok
}

// Delete removes a session and returns it.
func (s *InMemoryStore) Delete(id string) (*ports.Session, bool) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if ok {
		s.notify(n)
	}
	return session, ok
}

// Len returns the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IDs returns the IDs of all live sessions.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (s *InMemoryStore) notify(n int) {
	if s.onChange != nil {
		s.onChange(n)
	}
}
