package identity

import (
	"sync"
	"time"
)

// Manager holds the current session and notifies observers whenever it
// changes: sign-in, sign-out, or expiry.
type Manager struct {
	Now func() time.Time

	mu        sync.Mutex
	session   *Session
	timer     *time.Timer
	observers map[int]func(Session, bool)
	next      int
}

func NewManager() *Manager {
	return &Manager{Now: time.Now, observers: map[int]func(Session, bool){}}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// OnChange registers fn; it receives the new session and whether one is
// held. The returned func unregisters it.
func (m *Manager) OnChange(fn func(Session, bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.observers == nil {
		m.observers = map[int]func(Session, bool){}
	}
	id := m.next
	m.next++
	m.observers[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Set installs s as the current session and arms its expiry.
func (m *Manager) Set(s Session) {
	if s.AccessToken == "" || s.Expired(m.now()) {
		m.SignOut()
		return
	}
	m.mu.Lock()
	m.stopTimerLocked()
	m.session = &s
	if !s.ExpiresAt.IsZero() {
		token := s.AccessToken
		m.timer = time.AfterFunc(s.ExpiresAt.Sub(m.now()), func() { m.expire(token) })
	}
	fns := m.observersLocked()
	m.mu.Unlock()
	for _, fn := range fns {
		fn(s, true)
	}
}

// SignOut drops the session. Observers are notified only if one was held.
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.stopTimerLocked()
	had := m.session != nil
	m.session = nil
	fns := m.observersLocked()
	m.mu.Unlock()
	if !had {
		return
	}
	for _, fn := range fns {
		fn(Session{}, false)
	}
}

func (m *Manager) expire(token string) {
	m.mu.Lock()
	current := m.session != nil && m.session.AccessToken == token
	m.mu.Unlock()
	if current {
		m.SignOut()
	}
}

// Current returns the session if one is held and not expired.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return Session{}, false
	}
	if s.Expired(m.now()) {
		m.SignOut()
		return Session{}, false
	}
	return *s, true
}

// Token is the bearer token source for the remote gateway.
func (m *Manager) Token() string {
	s, ok := m.Current()
	if !ok {
		return ""
	}
	return s.AccessToken
}

// Close stops the expiry timer.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopTimerLocked()
	m.mu.Unlock()
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) observersLocked() []func(Session, bool) {
	fns := make([]func(Session, bool), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	return fns
}
