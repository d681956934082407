// Package suppress implements the Trigger Suppressor: a
// connection-scoped flag consulted by change-capture triggers so they skip
// logging during replay. The flag must be released on every exit path;
// callers use Session.Disable in a defer, the Go idiom for a scoped-release
// primitive.
package suppress

import "sync/atomic"

// Session holds one connection's suppression flag. It is safe for
// concurrent reads from trigger code and writes from the apply loop that
// owns this connection, though a connection is never shared across
// concurrent apply calls in the first place.
type Session struct {
	suppressed atomic.Bool
}

func NewSession() *Session {
	return &Session{}
}

// Enable marks this session as suppressed: triggers on this connection
// must not append to the change log while it's set.
func (s *Session) Enable() {
	s.suppressed.Store(true)
}

// Disable clears suppression. Call via defer immediately after Enable so it
// fires on every exit path, including errors and panics.
func (s *Session) Disable() {
	s.suppressed.Store(false)
}

// Suppressed reports the current state; this is what a change-capture
// trigger implementation consults before writing a log row.
func (s *Session) Suppressed() bool {
	return s.suppressed.Load()
}

// WithSuppressed enables suppression for the duration of fn and guarantees
// release on every exit path, including a panicking fn.
func WithSuppressed(s *Session, fn func() error) error {
	s.Enable()
	defer s.Disable()
	return fn()
}
