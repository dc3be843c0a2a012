package httpapi

import (
	"fmt"
	"strings"
	"sync"

	"github.com/riskibarqy/fpl-assistant/internal/usecase"
)

// SessionFactory builds the chat session for a requested id. An empty id
// lets the session generate its own.
type SessionFactory func(sessionID string) *usecase.ChatSession

const defaultMaxSessions = 4096

// SessionManager keeps live chat sessions keyed by id so follow-up requests
// continue the same transcript.
type SessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*usecase.ChatSession
	factory     SessionFactory
	maxSessions int
}

func NewSessionManager(factory SessionFactory, maxSessions int) *SessionManager {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}

	return &SessionManager{
		sessions:    make(map[string]*usecase.ChatSession),
		factory:     factory,
		maxSessions: maxSessions,
	}
}

// Acquire returns the session for id, creating it on first use. An empty id
// always starts a fresh session.
func (m *SessionManager) Acquire(id string) (*usecase.ChatSession, error) {
	id = strings.TrimSpace(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if session, ok := m.sessions[id]; ok {
			return session, nil
		}
	}

	if m.factory == nil {
		return nil, fmt.Errorf("%w: session factory is not configured", usecase.ErrDependencyUnavailable)
	}
	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("%w: session limit reached", usecase.ErrDependencyUnavailable)
	}

	session := m.factory(id)
	if session == nil || session.ID() == "" {
		return nil, fmt.Errorf("%w: session could not be created", usecase.ErrDependencyUnavailable)
	}
	m.sessions[session.ID()] = session

	return session, nil
}

// Len reports how many sessions are resident.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
