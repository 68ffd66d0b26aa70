package canon

import (
	"math"
	"testing"
)

// TestEncode_ObjectKeysSortedRegardlessOfInsertionOrder covers system spec
// P2's key-permutation half: two maps built in different Go map literal
// orders must still encode to the same bytes because Encode always sorts.
func TestEncode_ObjectKeysSortedRegardlessOfInsertionOrder(t *testing.T) {
	a := Object(map[string]Value{"b": Int(2), "a": Int(1), "c": Int(3)})
	b := Object(map[string]Value{"c": Int(3), "b": Int(2), "a": Int(1)})
	if string(Encode(a)) != string(Encode(b)) {
		t.Fatalf("expected key-order-independent encoding, got %q vs %q", Encode(a), Encode(b))
	}
	if got, want := string(Encode(a)), `{"a":1,"b":2,"c":3}`; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestEncode_FloatNoiseWithinEpsilonCollapses covers system spec P2's
// float-noise half and scenario S4 (0.3 vs 0.1+0.2).
func TestEncode_FloatNoiseWithinEpsilonCollapses(t *testing.T) {
	a := Encode(Float(0.3))
	b := Encode(Float(0.1 + 0.2))
	if string(a) != string(b) {
		t.Fatalf("expected float noise at 1e-10 to collapse, got %q vs %q", a, b)
	}
}

func TestEncode_WholeFloatHasNoFractionalPart(t *testing.T) {
	if got, want := string(Encode(Float(4.0))), "4"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEncode_NegativeZeroCoalescesToPositive(t *testing.T) {
	if got, want := string(Encode(Float(math.Copysign(0, -1)))), "0"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEncode_StringEscapesOnlyFixedSet(t *testing.T) {
	s := "a\\b\"c\nd\re\tfé" // includes a non-ASCII rune that must pass through unescaped
	got := string(Encode(String(s)))
	want := `"a\\b\"c\nd\re\tf` + "é" + `"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEncode_ArrayPreservesInsertionOrder(t *testing.T) {
	v := Array(Int(3), Int(1), Int(2))
	if got, want := string(Encode(v)), "[3,1,2]"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestNormalize_Idempotent covers system spec P4.
func TestNormalize_Idempotent(t *testing.T) {
	cases := []float64{0.1 + 0.2, -0.0, 1e300, -1e300, 3.14159265358979}
	for _, c := range cases {
		once := Normalize(c)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %v: once=%v twice=%v", c, once, twice)
		}
	}
}

func TestNormalize_NaNAndInfinities(t *testing.T) {
	nan := Normalize(nanValue())
	if nan != 0 {
		t.Fatalf("expected NaN to normalize to 0, got %v", nan)
	}
	if got := Normalize(math.Inf(1)); got != math.MaxFloat64 {
		t.Fatalf("expected +Inf to normalize to MaxFloat64, got %v", got)
	}
	if got := Normalize(math.Inf(-1)); got != -math.MaxFloat64 {
		t.Fatalf("expected -Inf to normalize to -MaxFloat64, got %v", got)
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestEncode_NestedObjectAndArray(t *testing.T) {
	v := Object(map[string]Value{
		"outcomes": Array(
			Object(map[string]Value{"action": String("a"), "state": String("s"), "value": Float(1.5)}),
		),
	})
	got := string(Encode(v))
	want := `{"outcomes":[{"action":"a","state":"s","value":1.5}]}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
