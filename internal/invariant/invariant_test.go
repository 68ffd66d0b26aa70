package invariant

import (
	"testing"

	"go.uber.org/zap"
)

func newTestChecker(t *testing.T) *Checker {
	t.Helper()
	return NewChecker(zap.NewNop())
}

func TestChecker_ContentEqual(t *testing.T) {
	c := newTestChecker(t)
	if err := c.ContentEqual("abc", "abc"); err != nil {
		t.Fatalf("expected equal fingerprints to pass: %v", err)
	}
	if err := c.ContentEqual("abc", "def"); err == nil {
		t.Fatalf("expected mismatched fingerprints to fail")
	}
	if c.ViolationCount() != 1 {
		t.Fatalf("expected 1 recorded violation, got %d", c.ViolationCount())
	}
}

func TestChecker_PolicyGate(t *testing.T) {
	c := newTestChecker(t)
	declared := []string{"binary_protocol", "cbor_encoding", "streaming"}
	if err := c.PolicyGate(declared, []string{"cbor_encoding"}); err != nil {
		t.Fatalf("subset request should pass: %v", err)
	}
	if err := c.PolicyGate(declared, []string{"sandbox"}); err == nil {
		t.Fatalf("undeclared capability should be denied")
	}
}

func TestChecker_SemVerGates(t *testing.T) {
	c := newTestChecker(t)
	if !c.MinorForwardCompatible("1.2.0", "1.5.0") {
		t.Fatalf("1.5.0 should be minor-forward-compatible with 1.2.0")
	}
	if c.MinorForwardCompatible("1.2.0", "2.0.0") {
		t.Fatalf("major mismatch must fail minor-forward-compatible")
	}
	if !c.PatchReplayCompatible("1.2.5", "1.2.9") {
		t.Fatalf("same major.minor should be patch-replay-compatible")
	}
	if c.PatchReplayCompatible("1.2.5", "1.3.0") {
		t.Fatalf("minor mismatch must fail patch-replay-compatible")
	}
}

func TestChecker_SemVerGates_RejectMalformed(t *testing.T) {
	c := newTestChecker(t)
	if c.MinorForwardCompatible("1.2", "1.2.0") {
		t.Fatalf("malformed current version must fail closed")
	}
	if c.PatchReplayCompatible("1.2.0", "v1.2.0") {
		t.Fatalf("malformed candidate version must fail closed")
	}
	if _, err := ParseSemVer("1.2.x"); err == nil {
		t.Fatalf("non-numeric component must be rejected, not coerced to 0")
	}
}

func TestChecker_SnapshotEqual(t *testing.T) {
	c := newTestChecker(t)
	if err := c.SnapshotEqual("h1", "h1"); err != nil {
		t.Fatalf("identical snapshot hashes should match: %v", err)
	}
	if err := c.SnapshotEqual("h1", "h2"); err == nil {
		t.Fatalf("differing snapshot hashes should not match")
	}
}
