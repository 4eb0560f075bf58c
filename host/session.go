package host

import "sync/atomic"

// SessionState is the lifecycle position of a Session.
type SessionState int32

const (
	// SessionCreated is the state right after a successful Open.
	SessionCreated SessionState = iota
	// SessionActive is entered on the first Set or Get.
	SessionActive
	// SessionClosed is terminal; the handle has been passed to Close.
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionActive:
		return "active"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one open conversation with a module, wrapping the opaque handle
// returned by its Open entry point.
//
// A Session may be handed from one goroutine to another. Using the same
// Session from several goroutines at once is only safe if the module
// synchronizes internally; the bridge adds no locking. Set, Get and Close on
// a closed Session are rejected without calling the module.
type Session struct {
	img    *image
	client string
	handle uintptr
	state  atomic.Int32
}

// Client returns the client name the session was opened with.
func (s *Session) Client() string {
	return s.client
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// activate moves Created to Active. It reports false if the session is closed.
func (s *Session) activate() bool {
	for {
		cur := SessionState(s.state.Load())
		switch cur {
		case SessionClosed:
			return false
		case SessionActive:
			return true
		}
		if s.state.CompareAndSwap(int32(cur), int32(SessionActive)) {
			return true
		}
	}
}

// markClosed moves the session to Closed and reports whether it was open.
func (s *Session) markClosed() bool {
	return SessionState(s.state.Swap(int32(SessionClosed))) != SessionClosed
}
