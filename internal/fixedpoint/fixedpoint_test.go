// Package fixedpoint — fixedpoint_test.go
//
// Test coverage:
//   - Q32_32: float round-trip, range rejection, checked/saturating add and mul, div by zero
//   - Bps: percent round-trip, saturating add at int16 bounds
//   - Ppm: fraction round-trip, range rejection
//   - DurationUS: millisecond/second overflow detection
//   - Throughput: negative rejection
package fixedpoint

import (
	"math"
	"testing"
)

func TestQ32_32_FloatRoundTrip(t *testing.T) {
	q, err := Q32_32FromFloat(3.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := q.Float64(); math.Abs(got-3.5) > 1e-9 {
		t.Fatalf("round trip mismatch: got %v", got)
	}
}

func TestQ32_32_RejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := Q32_32FromFloat(v); err == nil {
			t.Fatalf("expected error for %v", v)
		}
	}
}

func TestQ32_32_RejectsOutOfRange(t *testing.T) {
	if _, err := Q32_32FromFloat(1 << 31); err == nil {
		t.Fatal("expected error for value at integer bound")
	}
}

func TestQ32_32_AddChecked_Overflow(t *testing.T) {
	max := Q32_32(math.MaxInt64)
	if _, ok := max.AddChecked(Q32_32(1)); ok {
		t.Fatal("expected overflow to be detected")
	}
}

func TestQ32_32_AddSaturating_ClampsToMax(t *testing.T) {
	max := Q32_32(math.MaxInt64)
	if got := max.AddSaturating(Q32_32(1)); got != Q32_32(math.MaxInt64) {
		t.Fatalf("expected clamp to MaxInt64, got %d", got)
	}
}

func TestQ32_32_MulChecked(t *testing.T) {
	one, _ := Q32_32FromFloat(1.0)
	two, _ := Q32_32FromFloat(2.0)
	prod, ok := one.MulChecked(two)
	if !ok {
		t.Fatal("expected valid product")
	}
	if got := prod.Float64(); math.Abs(got-2.0) > 1e-9 {
		t.Fatalf("expected 2.0, got %v", got)
	}
}

func TestQ32_32_DivChecked_ByZero(t *testing.T) {
	one, _ := Q32_32FromFloat(1.0)
	if _, ok := one.DivChecked(Q32_32(0)); ok {
		t.Fatal("expected division by zero to be rejected")
	}
}

func TestBps_PercentRoundTrip(t *testing.T) {
	b, err := BpsFromPercent(1.23)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := b.ToRaw(); got != 123 {
		t.Fatalf("expected raw 123, got %d", got)
	}
	if math.Abs(b.Percent()-1.23) > 1e-9 {
		t.Fatalf("expected 1.23%%, got %v", b.Percent())
	}
}

func TestBps_AddSaturating_ClampsAtInt16Max(t *testing.T) {
	max := Bps(math.MaxInt16)
	if got := max.AddSaturating(Bps(1)); got != math.MaxInt16 {
		t.Fatalf("expected clamp to MaxInt16, got %d", got)
	}
}

func TestPpm_FractionRoundTrip(t *testing.T) {
	p, err := PpmFromFraction(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.ToRaw(); got != 500_000 {
		t.Fatalf("expected raw 500000, got %d", got)
	}
}

func TestPpm_RejectsOutOfRange(t *testing.T) {
	if _, err := PpmFromFraction(1e10); err == nil {
		t.Fatal("expected range error")
	}
}

func TestDurationUS_MillisecondsOverflow(t *testing.T) {
	if _, ok := MillisecondsChecked(math.MaxInt64); ok {
		t.Fatal("expected overflow to be detected")
	}
}

func TestDurationUS_SecondsChecked(t *testing.T) {
	d, ok := SecondsChecked(5)
	if !ok {
		t.Fatal("expected valid conversion")
	}
	if d.ToRaw() != 5_000_000 {
		t.Fatalf("expected 5000000us, got %d", d.ToRaw())
	}
}

func TestThroughput_RejectsNegative(t *testing.T) {
	if _, err := MicroOpsPerSecond(-1); err == nil {
		t.Fatal("expected error for negative throughput")
	}
}
