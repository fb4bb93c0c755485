package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prepdeck/go-prepdeck/internal/log"
	"github.com/prepdeck/go-prepdeck/pkg/detect"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "prepdeck",
	Subsystem: "session",
	Name:      "active",
	Help:      "Number of live interview sessions.",
})

// Manager tracks live sessions with a concurrency cap and an idle TTL.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	max      int
	ttl      time.Duration
}

// NewManager creates a session manager. max <= 0 means unlimited;
// ttl <= 0 disables idle expiry.
func NewManager(max int, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		max:      max,
		ttl:      ttl,
	}
}

// Create registers a new session with a generated ID.
func (m *Manager) Create(cfg Config, engine *detect.Engine) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.max > 0 && len(m.sessions) >= m.max {
		return nil, fmt.Errorf("session limit %d reached", m.max)
	}

	s := New(uuid.NewString(), cfg, engine)
	m.sessions[s.ID] = s
	activeSessions.Set(float64(len(m.sessions)))
	return s, nil
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove forgets a session. Stopping it is the caller's job.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	activeSessions.Set(float64(len(m.sessions)))
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle past the TTL and returns them so the
// caller can stop them.
func (m *Manager) Sweep(now time.Time) []*Session {
	if m.ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.ttl {
			expired = append(expired, s)
			delete(m.sessions, id)
			log.Info("session expired", "id", id)
		}
	}
	activeSessions.Set(float64(len(m.sessions)))
	return expired
}
