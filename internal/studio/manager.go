package studio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kfashion/internal/domain"
	"kfashion/internal/imagegen"
	"kfashion/internal/infra"
)

// Manager owns every live session, keyed by id.
type Manager struct {
	gen         imagegen.Generator
	logger      *infra.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty manager. A zero idleTimeout disables expiry.
func NewManager(gen imagegen.Generator, logger *infra.Logger, idleTimeout time.Duration) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{
		gen:         gen,
		logger:      logger,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Create starts a new session with the given locale.
func (m *Manager) Create(locale domain.Locale) *Session {
	id := uuid.NewString()
	s := NewSession(id, locale, m.gen, WithClock(m.now), WithLogger(m.logger))

	m.mu.Lock()
	m.sessions[id] = s
	active := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info().Str("session_id", id).Str("locale", string(s.locale)).Int("active", active).Msg("session created")
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// Delete ends a session and disconnects its subscribers.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Close()
	m.logger.Info().Str("session_id", id).Msg("session ended")
	return true
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the idle timeout and returns
// how many were removed. In-flight generations still complete on the removed
// session.
func (m *Manager) Sweep() int {
	if m.idleTimeout <= 0 {
		return 0
	}
	now := m.now()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.IdleSince()) > m.idleTimeout {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	active := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.logger.Info().Int("cleaned", len(expired)).Int("active", active).Msg("expired idle sessions")
	}
	return len(expired)
}

// StartJanitor sweeps idle sessions every interval until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 || m.idleTimeout <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
	m.logger.Debug().Dur("every", every).Dur("idle_timeout", m.idleTimeout).Msg("session janitor started")
}
