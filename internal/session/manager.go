package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/upload"
)

// DefaultMaxSessions limits concurrent viewer sessions to bound memory.
const DefaultMaxSessions = 100

// SessionMaxAge is how long an idle session is kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is the minimum idle time before a session can be removed.
const SessionKeepAliveWindow = 5 * time.Minute

// Factory builds a new upload session for an id.
type Factory func(id string) *upload.Session

// Manager holds one upload session per browser session id.
type Manager struct {
	sessions    map[string]*upload.Session
	mu          sync.RWMutex
	factory     Factory
	maxSessions int
	log         *logrus.Entry
	now         func() time.Time
}

// NewManager creates a manager. maxSessions <= 0 means DefaultMaxSessions.
func NewManager(factory Factory, maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions:    make(map[string]*upload.Session),
		factory:     factory,
		maxSessions: maxSessions,
		log:         logging.NewLogger("session"),
		now:         time.Now,
	}
}

// Create starts a new session with a random id.
func (m *Manager) Create() *upload.Session {
	id := uuid.New().String()
	s := m.factory(id)

	m.mu.Lock()
	m.evictIfNeeded()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.WithField("session", id).Debug("session created")
	return s
}

// Get returns a session by id and records activity on it.
func (m *Manager) Get(id string) (*upload.Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if ok {
		s.Touch()
	}
	return s, ok
}

// GetOrCreate returns the session for id, or a new session when id is
// unknown. The second result reports whether a session was created.
func (m *Manager) GetOrCreate(id string) (*upload.Session, bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.Create(), true
}

// Delete removes a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Len returns the number of sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// evictIfNeeded removes the least recently used idle sessions until there
// is room for one more. Sessions with an upload in flight are never evicted.
// Caller holds m.mu.
func (m *Manager) evictIfNeeded() {
	for len(m.sessions) >= m.maxSessions {
		var (
			oldestID string
			oldestAt time.Time
		)
		for id, s := range m.sessions {
			if s.IsUploading() {
				continue
			}
			at := s.LastActivity()
			if oldestID == "" || at.Before(oldestAt) {
				oldestID, oldestAt = id, at
			}
		}
		if oldestID == "" {
			return
		}
		delete(m.sessions, oldestID)
		m.log.WithField("session", oldestID).Info("evicted least recently used session")
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but never
// sooner than SessionKeepAliveWindow and never while an upload is in flight.
// It returns the number removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	if maxAge < SessionKeepAliveWindow {
		maxAge = SessionKeepAliveWindow
	}
	now := m.now()
	cutoff := now.Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.IsUploading() {
			continue
		}
		if last := s.LastActivity(); last.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			m.log.WithFields(logrus.Fields{
				"session": id,
				"idle":    now.Sub(last).Round(time.Second).String(),
			}).Info("cleaned up idle session")
		}
	}
	return removed
}

// RunCleanup calls CleanupOldSessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		}
	}
}
