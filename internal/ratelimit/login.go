package ratelimit

import (
	"sync"
	"time"

	"github.com/Fn-M/HousingManager/internal/models"
)

// LoginThrottle locks a client out after too many consecutive failed logins.
type LoginThrottle struct {
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time

	mu     sync.Mutex
	states map[string]*models.LoginState
}

// NewLoginThrottle allows maxAttempts consecutive failures per key before
// locking it for lockout. A non-positive maxAttempts disables the throttle.
func NewLoginThrottle(maxAttempts int, lockout time.Duration) *LoginThrottle {
	return &LoginThrottle{
		maxAttempts: maxAttempts,
		lockout:     lockout,
		now:         time.Now,
		states:      make(map[string]*models.LoginState),
	}
}

func (t *LoginThrottle) state(key string) *models.LoginState {
	s, ok := t.states[key]
	if !ok {
		s = &models.LoginState{Key: key}
		t.states[key] = s
	}
	return s
}

// Allow reports whether key may attempt a login and, if not, for how long it
// stays locked. An expired lockout is cleared here.
func (t *LoginThrottle) Allow(key string) (bool, time.Duration) {
	if t.maxAttempts <= 0 {
		return true, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s := t.state(key)
	if !s.CanAttempt(now) {
		return false, s.Remaining(now)
	}
	if s.IsLocked {
		s.ClearLock()
	}
	return true, 0
}

// Failure records a failed attempt and reports whether it locked the key.
func (t *LoginThrottle) Failure(key string) bool {
	if t.maxAttempts <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	s := t.state(key)
	s.RecordFailure(now)
	if s.FailureCount >= t.maxAttempts {
		s.SetLocked(now, t.lockout)
		return true
	}
	return false
}

// Success forgets the failures of key.
func (t *LoginThrottle) Success(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, key)
}

// State returns a copy of the tracking state of key.
func (t *LoginThrottle) State(key string) models.LoginState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.states[key]; ok {
		return *s
	}
	return models.LoginState{Key: key}
}

// Prune drops keys that are neither locked nor attempted within idle.
func (t *LoginThrottle) Prune(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for key, s := range t.states {
		if s.Remaining(now) == 0 && now.Sub(s.LastAttempt) > idle {
			delete(t.states, key)
			removed++
		}
	}
	return removed
}
