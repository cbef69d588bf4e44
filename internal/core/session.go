package core

import (
	"sync/atomic"
)

// SessionState tracks whether an authenticated session exists. The ingestion
// controller consumes intents only while a session is active.
type SessionState struct {
	active atomic.Bool
}

func NewSessionState(active bool) *SessionState {
	s := &SessionState{}
	s.active.Store(active)
	return s
}

func (s *SessionState) Active() bool {
	return s.active.Load()
}

func (s *SessionState) SetActive(active bool) {
	s.active.Store(active)
}
