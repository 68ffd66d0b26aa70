package protocol

import "testing"

// TestConnState_HappyPathTransitions covers the Disconnected -> Negotiating
// -> Ready path of system spec §4.H.
func TestConnState_HappyPathTransitions(t *testing.T) {
	cs := newConnState()
	if cs.Current() != StateDisconnected {
		t.Fatalf("expected initial state Disconnected, got %v", cs.Current())
	}
	if !cs.BeginNegotiation() {
		t.Fatalf("expected BeginNegotiation to succeed from Disconnected")
	}
	if cs.Current() != StateNegotiating {
		t.Fatalf("expected Negotiating, got %v", cs.Current())
	}
	if !cs.CompleteNegotiation("sess-1", 1, 1) {
		t.Fatalf("expected CompleteNegotiation to succeed from Negotiating")
	}
	if cs.Current() != StateReady {
		t.Fatalf("expected Ready, got %v", cs.Current())
	}
	if got := cs.SessionID(); got != "sess-1" {
		t.Fatalf("expected session id sess-1, got %q", got)
	}
	major, minor := cs.NegotiatedVersion()
	if major != 1 || minor != 1 {
		t.Fatalf("expected negotiated version 1.1, got %d.%d", major, minor)
	}
}

func TestConnState_BeginNegotiationRejectsNonDisconnected(t *testing.T) {
	cs := newConnState()
	cs.BeginNegotiation()
	if cs.BeginNegotiation() {
		t.Fatalf("expected a second BeginNegotiation to fail once already Negotiating")
	}
}

func TestConnState_CompleteNegotiationRejectsWrongState(t *testing.T) {
	cs := newConnState()
	if cs.CompleteNegotiation("sess-x", 1, 0) {
		t.Fatalf("expected CompleteNegotiation to fail from Disconnected")
	}
}

// TestConnState_ErrorIsTerminal covers the "Error never leaves Error"
// discipline noted in state.go's doc comment.
func TestConnState_ErrorIsTerminal(t *testing.T) {
	cs := newConnState()
	cs.BeginNegotiation()
	cs.Fail()
	if cs.Current() != StateError {
		t.Fatalf("expected Error, got %v", cs.Current())
	}
	if cs.CompleteNegotiation("sess-y", 1, 0) {
		t.Fatalf("expected CompleteNegotiation to fail once in Error")
	}
	if cs.Current() != StateError {
		t.Fatalf("expected state to remain Error, got %v", cs.Current())
	}
}

func TestConnState_String(t *testing.T) {
	cases := map[ConnState]string{
		StateDisconnected: "Disconnected",
		StateNegotiating:  "Negotiating",
		StateReady:        "Ready",
		StateError:        "Error",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("state %d: got %q, want %q", state, got, want)
		}
	}
}
