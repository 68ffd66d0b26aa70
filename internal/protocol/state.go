// Package protocol implements the streaming core's connection state
// machine and message dispatch (system spec §4.H): Disconnected →
// Negotiating → Ready → Error, driven by decoded wire.Frame values.
//
// Grounded on escalation.ProcessState: a mutex-guarded type whose
// transitions are the only way its state ever changes, generalized from a
// monotonic six-level severity ladder to this protocol's four-state
// handshake machine (monotonic in spirit — a connection that reaches
// Error never leaves it, just as escalation.ProcessState never decays out
// of StateTerminated).
package protocol

import (
	"fmt"
	"sync"
)

// ConnState is one state of the per-connection handshake machine (system
// spec §4.H).
type ConnState uint8

const (
	StateDisconnected ConnState = iota
	StateNegotiating
	StateReady
	StateError
)

// String returns the human-readable state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateNegotiating:
		return "Negotiating"
	case StateReady:
		return "Ready"
	case StateError:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// connState holds the mutable handshake state for one connection. All
// fields are protected by mu; do not access them directly.
type connState struct {
	mu            sync.Mutex
	current       ConnState
	sessionID     string
	selectedMajor uint16
	selectedMinor uint16
}

func newConnState() *connState {
	return &connState{current: StateDisconnected}
}

// Current returns the connection's current state.
func (cs *connState) Current() ConnState {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.current
}

// BeginNegotiation transitions Disconnected → Negotiating. Returns false
// if the connection was not Disconnected.
func (cs *connState) BeginNegotiation() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.current != StateDisconnected {
		return false
	}
	cs.current = StateNegotiating
	return true
}

// CompleteNegotiation transitions Negotiating → Ready, recording the
// session id and negotiated version. Returns false if the connection was
// not Negotiating.
func (cs *connState) CompleteNegotiation(sessionID string, major, minor uint16) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.current != StateNegotiating {
		return false
	}
	cs.current = StateReady
	cs.sessionID = sessionID
	cs.selectedMajor = major
	cs.selectedMinor = minor
	return true
}

// Fail transitions the connection to Error. Error is terminal: once
// entered, it never transitions back (matching escalation.ProcessState's
// terminal-state discipline).
func (cs *connState) Fail() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.current = StateError
}

// SessionID returns the assigned session id, set only after a successful
// handshake.
func (cs *connState) SessionID() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.sessionID
}

// NegotiatedVersion returns the version selected during the handshake.
func (cs *connState) NegotiatedVersion() (major, minor uint16) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.selectedMajor, cs.selectedMinor
}
