package interview

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager keeps interview sessions in memory.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	defaults interview.Settings
}

// NewManager creates a manager that wires every session with opts.
func NewManager(opts Options, defaults interview.Settings) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		defaults: defaults.Normalized(),
	}
}

// Defaults returns the settings applied to sessions created without overrides.
func (m *Manager) Defaults() interview.Settings {
	return m.defaults
}

// Create provisions a session. Zero fields in settings take the manager defaults.
func (m *Manager) Create(settings interview.Settings) *Session {
	merged := m.defaults
	if settings.QuestionCount > 0 {
		merged.QuestionCount = settings.QuestionCount
	}
	if settings.Scenario != "" {
		merged.Scenario = settings.Scenario
	}
	if settings.Language != "" {
		merged.Language = settings.Language
	}
	merged.Background = settings.Background

	session := NewSession(uuid.NewString(), merged, m.opts)

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()
	return session
}

// Get retrieves a session by identifier.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete drops a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
