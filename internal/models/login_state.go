package models

import "time"

// LoginState tracks failed login attempts for one client and its lockout window
type LoginState struct {
	Key          string     `json:"key"`
	IsLocked     bool       `json:"is_locked"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
	FailureCount int        `json:"failure_count"`
	LastAttempt  time.Time  `json:"last_attempt"`
}

// CanAttempt checks if a login attempt is allowed (not locked out)
func (s *LoginState) CanAttempt(now time.Time) bool {
	if !s.IsLocked {
		return true
	}

	if s.LockedUntil == nil {
		return false
	}

	return now.After(*s.LockedUntil)
}

// SetLocked locks the client out until now+lockout
func (s *LoginState) SetLocked(now time.Time, lockout time.Duration) {
	s.IsLocked = true
	lockedUntil := now.Add(lockout)
	s.LockedUntil = &lockedUntil
	s.LastAttempt = now
}

// ClearLock clears the lockout and the failure counter
func (s *LoginState) ClearLock() {
	s.IsLocked = false
	s.LockedUntil = nil
	s.FailureCount = 0
}

// RecordSuccess records a successful login
func (s *LoginState) RecordSuccess(now time.Time) {
	s.LastAttempt = now
	s.ClearLock()
}

// RecordFailure records a failed login
func (s *LoginState) RecordFailure(now time.Time) {
	s.FailureCount++
	s.LastAttempt = now
}

// Remaining returns how long the lockout still lasts, zero when not locked.
func (s *LoginState) Remaining(now time.Time) time.Duration {
	if !s.IsLocked || s.LockedUntil == nil {
		return 0
	}
	if d := s.LockedUntil.Sub(now); d > 0 {
		return d
	}
	return 0
}
