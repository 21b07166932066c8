// Package connstate implements the session's four-state connection lifecycle.
//
// Grounded on original_source/src/ConnectionState.h's StateManager: a
// lock-free atomic status with a single compare-exchange transition
// primitive and a synchronous post-transition observer callback.
package connstate

import (
	"sync/atomic"
)

// Status is the connection lifecycle enumeration from spec.md §3.
type Status int32

const (
	Disconnected Status = iota
	Connecting
	Connected
	Disconnecting
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Observer is invoked synchronously, on the transitioning goroutine,
// immediately after a successful change.
type Observer func(old, new_ Status)

// Manager holds the atomic status and its observer.
type Manager struct {
	status   atomic.Int32
	observer atomic.Pointer[Observer]
}

// New constructs a Manager starting in Disconnected.
func New() *Manager {
	return &Manager{}
}

// OnChange registers the callback fired after each successful transition.
// Only one observer is supported; registering again replaces it.
func (m *Manager) OnChange(fn Observer) {
	m.observer.Store(&fn)
}

// Get returns the current status.
func (m *Manager) Get() Status {
	return Status(m.status.Load())
}

// Try performs the single legal compare-and-swap transition from `from` to
// `to`. Returns false without side effects if the current status is not
// `from`.
func (m *Manager) Try(from, to Status) bool {
	if !m.status.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	m.fire(from, to)
	return true
}

// Set performs an unconditional transition, used by paths (disconnect,
// failure) that must land in a known state regardless of current status.
func (m *Manager) Set(to Status) {
	old := Status(m.status.Swap(int32(to)))
	if old != to {
		m.fire(old, to)
	}
}

func (m *Manager) fire(old, to Status) {
	if obs := m.observer.Load(); obs != nil && *obs != nil {
		(*obs)(old, to)
	}
}
