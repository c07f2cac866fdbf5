package session

import (
	"errors"
	"sync"
)

var ErrSessionNotFound = errors.New("session not found")

// PortFactory builds per-session speech ports. Either factory may be nil when
// the capability is not configured.
type PortFactory struct {
	Input func(c *Controller) SpeechInputPort
	Audio func(c *Controller) AudioOutputPort
}

// Manager is the in-memory registry of live session controllers.
type Manager struct {
	orc           Orchestrator
	ports         PortFactory
	defaultLocale string

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager bootstraps the in-memory session registry.
func NewManager(orc Orchestrator, ports PortFactory, defaultLocale string) *Manager {
	return &Manager{
		orc:           orc,
		ports:         ports,
		defaultLocale: defaultLocale,
		sessions:      make(map[string]*Controller),
	}
}

// Create provisions a new session controller seeded with the greeting.
func (m *Manager) Create(locale string) *Controller {
	if locale == "" {
		locale = m.defaultLocale
	}

	c := NewController(m.orc, nil, nil, locale)
	if m.ports.Input != nil {
		c.input = m.ports.Input(c)
	}
	if m.ports.Audio != nil {
		c.audio = m.ports.Audio(c)
	}

	m.mu.Lock()
	m.sessions[c.ID()] = c
	m.mu.Unlock()

	return c
}

// Get retrieves a live controller by session identifier.
func (m *Manager) Get(sessionID string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Remove drops a session from the registry.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
