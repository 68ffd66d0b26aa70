package protocol

import (
	"testing"

	"go.uber.org/zap"

	"github.com/octoreflex/octoreflex/internal/invariant"
)

func validHello() Hello {
	return Hello{
		ClientName:    "octoreflex-sim",
		ClientVersion: "1.0.0",
		Versions:      VersionRange{MinMajor: 1, MinMinor: 0, MaxMajor: 1, MaxMinor: 1},
		Capabilities:  CapabilityBinaryProtocol | CapabilityCBOREncoding | CapabilityFixedPoint | CapabilitySandbox,
		PreferredEnc:  "cbor",
	}
}

// TestNegotiate_SelectsHighestMutualVersion covers the handshake success
// path: client supports 1.0-1.1, server's newest supported entry is 1.1.
func TestNegotiate_SelectsHighestMutualVersion(t *testing.T) {
	ack, protoErr := Negotiate(validHello(), "sess-1", "1.2.3", "1.0.0", "hash", "1.0.0", invariant.NewChecker(zap.NewNop()), zap.NewNop())
	if protoErr != nil {
		t.Fatalf("unexpected negotiation error: %+v", protoErr)
	}
	if ack.SelectedMajor != 1 || ack.SelectedMinor != 1 {
		t.Fatalf("expected version 1.1 selected, got %d.%d", ack.SelectedMajor, ack.SelectedMinor)
	}
	if ack.SessionID != "sess-1" {
		t.Fatalf("expected session id to be carried through, got %q", ack.SessionID)
	}
}

// TestNegotiate_RejectsNonOverlappingVersion covers system spec P8 and
// scenario S6: client only knows major 2, server only supports major 1.
func TestNegotiate_RejectsNonOverlappingVersion(t *testing.T) {
	hello := validHello()
	hello.Versions = VersionRange{MinMajor: 2, MinMinor: 0, MaxMajor: 2, MaxMinor: 3}

	ack, protoErr := Negotiate(hello, "sess-2", "1.2.3", "1.0.0", "hash", "1.0.0", invariant.NewChecker(zap.NewNop()), zap.NewNop())
	if protoErr == nil {
		t.Fatalf("expected an UnsupportedVersion error, got a successful HelloAck: %+v", ack)
	}
	if protoErr.Code != ErrUnsupportedVersion {
		t.Fatalf("expected code %v, got %v", ErrUnsupportedVersion, protoErr.Code)
	}
}

func TestNegotiate_RejectsMissingRequiredCapability(t *testing.T) {
	hello := validHello()
	hello.Capabilities = CapabilityCBOREncoding // drops CapabilityBinaryProtocol
	_, protoErr := Negotiate(hello, "sess-3", "1.2.3", "1.0.0", "hash", "1.0.0", invariant.NewChecker(zap.NewNop()), zap.NewNop())
	if protoErr == nil || protoErr.Code != ErrInvalidMessage {
		t.Fatalf("expected ErrInvalidMessage for missing required capability, got %+v", protoErr)
	}
}

func TestNegotiate_RejectsEmptyClientIdentity(t *testing.T) {
	hello := validHello()
	hello.ClientName = ""
	_, protoErr := Negotiate(hello, "sess-4", "1.2.3", "1.0.0", "hash", "1.0.0", invariant.NewChecker(zap.NewNop()), zap.NewNop())
	if protoErr == nil || protoErr.Code != ErrInvalidMessage {
		t.Fatalf("expected ErrInvalidMessage for empty client identity, got %+v", protoErr)
	}
}

func TestNegotiate_IntersectsCapabilitiesWithServer(t *testing.T) {
	hello := validHello()
	hello.Capabilities |= CapabilityLLM // server doesn't support this one
	ack, protoErr := Negotiate(hello, "sess-5", "1.2.3", "1.0.0", "hash", "1.0.0", invariant.NewChecker(zap.NewNop()), zap.NewNop())
	if protoErr != nil {
		t.Fatalf("unexpected error: %+v", protoErr)
	}
	if ack.Capabilities&CapabilityLLM != 0 {
		t.Fatalf("expected unsupported capability to be masked out of the ack, got %v", ack.Capabilities.Names())
	}
	if ack.Capabilities&CapabilityBinaryProtocol == 0 {
		t.Fatalf("expected required capability to survive negotiation")
	}
}
