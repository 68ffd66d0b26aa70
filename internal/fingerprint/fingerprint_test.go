package fingerprint

import (
	"testing"

	"github.com/octoreflex/octoreflex/internal/canon"
)

// TestOfValue_DeterministicAcrossEquivalentConstruction covers system spec
// P1: equal canonical forms must produce byte-equal fingerprints, built
// two different ways here (map literal order, float noise).
func TestOfValue_DeterministicAcrossEquivalentConstruction(t *testing.T) {
	a := canon.Object(map[string]canon.Value{"x": canon.Float(0.3), "y": canon.Int(1)})
	b := canon.Object(map[string]canon.Value{"y": canon.Int(1), "x": canon.Float(0.1 + 0.2)})
	if OfValue(a) != OfValue(b) {
		t.Fatalf("expected equal fingerprints, got %s vs %s", OfValue(a), OfValue(b))
	}
}

func TestOfValue_DifferentValuesDifferentFingerprints(t *testing.T) {
	a := canon.String("action_a")
	b := canon.String("action_b")
	if OfValue(a) == OfValue(b) {
		t.Fatalf("expected distinct fingerprints for distinct values")
	}
}

func TestOf_IsLowercaseHex64(t *testing.T) {
	fp := Of([]byte("anything"))
	if len(fp) != 64 {
		t.Fatalf("expected 64 hex chars, got %d: %s", len(fp), fp)
	}
	for _, r := range string(fp) {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f') {
			t.Fatalf("fingerprint %s is not lowercase hex", fp)
		}
	}
}

func TestContentHashOf_IsLowercaseHex64(t *testing.T) {
	ch := ContentHashOf([]byte("anything"))
	if len(ch) != 64 {
		t.Fatalf("expected 64 hex chars, got %d: %s", len(ch), ch)
	}
}

func TestOfValuePair_SharesCanonicalBytesAcrossBothHashes(t *testing.T) {
	v := canon.Int(7)
	pair := OfValuePair(v)
	if pair.Fingerprint != OfValue(v) {
		t.Fatalf("pair fingerprint diverged from OfValue")
	}
	if pair.ContentHash != ContentHashOfValue(v) {
		t.Fatalf("pair content hash diverged from ContentHashOfValue")
	}
}
