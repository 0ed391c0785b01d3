// Package session owns the per-session cart store and checkout pipeline.
package session

import (
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/observability"
	"github.com/fjod/storefront/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultIdleTTL is how long an untouched session stays in memory.
	DefaultIdleTTL = 30 * time.Minute

	// CleanupInterval is how often idle sessions are evicted
	CleanupInterval = time.Minute
)

var (
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrManagerClosed    = errors.New("session manager closed")
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func ValidID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Session is one browsing session: its cart and the checkout form bound to it.
type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Pipeline

	lastSeen atomic.Int64
	release  func()
}

func (s *Session) close() {
	if s.release != nil {
		s.release()
	}
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Factory builds a session for id. It is called at most once per id while
// the session stays in memory.
type Factory func(id string) (*Session, error)

// Manager keeps live sessions in memory. Carts outlive eviction through their
// slot; only the in-memory handles are dropped.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	factory Factory
	idleTTL time.Duration
	log     *logger.Logger
	now     func() time.Time
	sfg     singleflight.Group

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewManager(factory Factory, idleTTL time.Duration, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	m := &Manager{
		sessions:    make(map[string]*Session),
		factory:     factory,
		idleTTL:     idleTTL,
		log:         log,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// Get returns the session for id, opening it on first use. Concurrent first
// requests for the same id share one factory call.
func (m *Manager) Get(id string) (*Session, error) {
	if !ValidID(id) {
		return nil, ErrInvalidSessionID
	}

	// touched under the lock so evictIdle never drops a session being handed out
	m.mu.RLock()
	s, ok := m.sessions[id]
	closed := m.closed
	if ok && !closed {
		s.touch(m.now())
	}
	m.mu.RUnlock()
	if closed {
		return nil, ErrManagerClosed
	}
	if ok {
		return s, nil
	}

	v, err, _ := m.sfg.Do(id, func() (interface{}, error) {
		m.mu.RLock()
		existing, ok := m.sessions[id]
		if ok {
			existing.touch(m.now())
		}
		m.mu.RUnlock()
		if ok {
			return existing, nil
		}

		created, err := m.factory(id)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			created.close()
			return nil, ErrManagerClosed
		}
		created.touch(m.now())
		m.sessions[id] = created
		observability.ActiveSessions.Set(float64(len(m.sessions)))
		m.log.Debug("session opened", "session_id", id)
		return created, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Session), nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Evict drops the session from memory and releases its slot. A later Get
// reopens it from whatever the slot still holds.
func (m *Manager) Evict(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.close()
	}
	delete(m.sessions, id)
	observability.ActiveSessions.Set(float64(len(m.sessions)))
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stopCleanup:
			return
		}
	}
}

// evictIdle drops sessions idle past the TTL. A session with a checkout in
// flight is kept until the submission settles.
func (m *Manager) evictIdle() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.idleSince(now) < m.idleTTL {
			continue
		}
		if s.Checkout != nil && s.Checkout.InFlight() {
			continue
		}
		delete(m.sessions, id)
		s.close()
		evicted++
	}
	if evicted > 0 {
		observability.ActiveSessions.Set(float64(len(m.sessions)))
		m.log.Debug("evicted idle sessions", "count", evicted, "remaining", len(m.sessions))
	}
	return evicted
}

// Close stops the background cleanup and drops all sessions.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for _, s := range m.sessions {
		s.close()
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	close(m.stopCleanup)
	m.wg.Wait()
	observability.ActiveSessions.Set(0)
	return nil
}
