// Package session tracks locally connected clients and fans bus events out
// to them. Membership is purely per-process state; cross-instance awareness
// is delegated to the bus.
package session

import (
	"sync"

	"github.com/SAHIL7163/Talksy-backend/internal/models"
)

// sendBuffer bounds each session's outbound queue. A full buffer means the
// recipient is too slow; deliveries to it are dropped, not queued.
const sendBuffer = 64

// Session is one live client connection's local state. The transport layer
// drains Events and writes frames; everything else goes through the Registry.
type Session struct {
	ID string

	mu     sync.Mutex
	ch     chan models.Envelope
	closed bool
}

// NewSession creates a session with a buffered outbound queue.
func NewSession(id string) *Session {
	return &Session{
		ID: id,
		ch: make(chan models.Envelope, sendBuffer),
	}
}

// Events returns the outbound envelope queue for the transport write loop.
func (s *Session) Events() <-chan models.Envelope {
	return s.ch
}

// TrySend enqueues an envelope without blocking. It reports false when the
// session is closed or its buffer is full; the caller treats that as a
// per-recipient drop, never an error.
func (s *Session) TrySend(env models.Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- env:
		return true
	default:
		return false
	}
}

// Close shuts the outbound queue. Safe to call more than once and safe to
// call concurrently with TrySend.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
