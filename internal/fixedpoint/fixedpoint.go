// Package fixedpoint — fixedpoint.go
//
// Integer-backed scalar types for the streaming core's wire-level numerics.
//
// Rationale (from system spec §4.A):
//   Floats are reserved for UI/pretty-print paths and must never cross the
//   wire or enter a fingerprint input. Every quantity that is measured,
//   compared, or transmitted between nodes is represented as one of the
//   five fixed-point types below, each a transparent wrapper over a signed
//   or unsigned integer with checked and saturating arithmetic.
//
// Types:
//   Q32_32      — 64-bit signed fixed point, 32 integer bits / 32 fraction
//                 bits. Range ±2^31, precision 2^-32.
//   Bps         — basis points, 1 bp = 0.01%. Range ±327.67%.
//   Ppm         — parts per million, 1 ppm = 10^-6. Range ±214.7%.
//   DurationUS  — microsecond duration. Range ±~292,471 years.
//   Throughput  — micro-ops per second. Non-negative on construction.
//
// Contract: every arithmetic operation is either checked (returns
// (zero, false) on overflow) or saturating (clamps to min/max). Float
// constructors reject NaN/±Inf and out-of-range values. ToRaw/FromRaw are
// the only sanctioned (de)serialization path.
package fixedpoint

import (
	"fmt"
	"math"
	"math/big"
)

// Q32_32 is a signed 64-bit fixed-point number with 32 fractional bits.
type Q32_32 int64

const (
	q32Frac      = 32
	q32MaxRaw    = int64(math.MaxInt64)
	q32MinRaw    = int64(math.MinInt64)
	q32OneFloat  = float64(int64(1) << q32Frac)
	q32IntBound  = 1 << 31 // |integer part| must stay below this
)

// Q32_32FromRaw wraps a raw int64 as a Q32_32 with no validation. This is
// the canonical deserialization path — no other encoding is permitted on
// the wire.
func Q32_32FromRaw(raw int64) Q32_32 { return Q32_32(raw) }

// ToRaw returns the underlying int64. This is the canonical serialization
// path.
func (q Q32_32) ToRaw() int64 { return int64(q) }

// Q32_32FromFloat constructs a Q32_32 from a float64. Returns an error if
// the value is NaN, ±Inf, or outside the representable range.
func Q32_32FromFloat(v float64) (Q32_32, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("fixedpoint: Q32.32 from non-finite float %v", v)
	}
	if v >= q32IntBound || v < -q32IntBound {
		return 0, fmt.Errorf("fixedpoint: Q32.32 value %v out of range [-%d, %d)", v, q32IntBound, q32IntBound)
	}
	return Q32_32(int64(math.Round(v * q32OneFloat))), nil
}

// Float64 returns the nearest float64 approximation. Used only on
// UI/pretty-print paths — never feed this back into canonical form.
func (q Q32_32) Float64() float64 {
	return float64(q) / q32OneFloat
}

// AddChecked adds two Q32_32 values. Returns (0, false) on overflow.
func (q Q32_32) AddChecked(o Q32_32) (Q32_32, bool) {
	sum := int64(q) + int64(o)
	if (int64(o) > 0 && sum < int64(q)) || (int64(o) < 0 && sum > int64(q)) {
		return 0, false
	}
	return Q32_32(sum), true
}

// AddSaturating adds two Q32_32 values, clamping to int64 bounds on overflow.
func (q Q32_32) AddSaturating(o Q32_32) Q32_32 {
	if sum, ok := q.AddChecked(o); ok {
		return sum
	}
	if o > 0 {
		return Q32_32(q32MaxRaw)
	}
	return Q32_32(q32MinRaw)
}

// MulChecked multiplies two Q32_32 values via a 128-bit intermediate,
// right-shifted by 32. Returns (0, false) if the true product does not fit
// in int64.
func (q Q32_32) MulChecked(o Q32_32) (Q32_32, bool) {
	prod := new(big.Int).Mul(big.NewInt(int64(q)), big.NewInt(int64(o)))
	prod.Rsh(prod, q32Frac)
	if !prod.IsInt64() {
		return 0, false
	}
	return Q32_32(prod.Int64()), true
}

// MulSaturating multiplies two Q32_32 values, clamping to int64 bounds on
// overflow.
func (q Q32_32) MulSaturating(o Q32_32) Q32_32 {
	if prod, ok := q.MulChecked(o); ok {
		return prod
	}
	if (q > 0) == (o > 0) {
		return Q32_32(q32MaxRaw)
	}
	return Q32_32(q32MinRaw)
}

// DivChecked divides q by o via a left-shifted 128-bit numerator. Returns
// (0, false) on division by zero or overflow.
func (q Q32_32) DivChecked(o Q32_32) (Q32_32, bool) {
	if o == 0 {
		return 0, false
	}
	num := new(big.Int).Lsh(big.NewInt(int64(q)), q32Frac)
	den := big.NewInt(int64(o))
	quot := new(big.Int).Quo(num, den)
	if !quot.IsInt64() {
		return 0, false
	}
	return Q32_32(quot.Int64()), true
}

// Bps is basis points: 1 bp = 0.01%. Backed by int16, range ±327.67%.
type Bps int16

// BpsFromRaw wraps a raw int16 as Bps with no validation.
func BpsFromRaw(raw int16) Bps { return Bps(raw) }

// ToRaw returns the underlying int16.
func (b Bps) ToRaw() int16 { return int16(b) }

// BpsFromPercent constructs Bps from a percentage (e.g. 1.23 → 123bp).
// Returns an error if non-finite or out of int16 range.
func BpsFromPercent(pct float64) (Bps, error) {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, fmt.Errorf("fixedpoint: Bps from non-finite float %v", pct)
	}
	scaled := pct * 100
	if scaled > math.MaxInt16 || scaled < math.MinInt16 {
		return 0, fmt.Errorf("fixedpoint: Bps value %v%% out of range", pct)
	}
	return Bps(int16(math.Round(scaled))), nil
}

// Percent returns the basis points as a percentage float64.
func (b Bps) Percent() float64 { return float64(b) / 100.0 }

// AddSaturating adds two Bps values, clamping to int16 bounds on overflow.
func (b Bps) AddSaturating(o Bps) Bps {
	sum := int32(b) + int32(o)
	switch {
	case sum > math.MaxInt16:
		return math.MaxInt16
	case sum < math.MinInt16:
		return math.MinInt16
	default:
		return Bps(sum)
	}
}

// Ppm is parts-per-million: 1 ppm = 1e-6. Backed by int32, range ±214.7%.
type Ppm int32

// PpmFromRaw wraps a raw int32 as Ppm with no validation.
func PpmFromRaw(raw int32) Ppm { return Ppm(raw) }

// ToRaw returns the underlying int32.
func (p Ppm) ToRaw() int32 { return int32(p) }

// PpmFromFraction constructs Ppm from a fraction in [-1, 1] (approximately;
// actual bound is the int32 range). Returns an error if non-finite or out
// of range.
func PpmFromFraction(frac float64) (Ppm, error) {
	if math.IsNaN(frac) || math.IsInf(frac, 0) {
		return 0, fmt.Errorf("fixedpoint: Ppm from non-finite float %v", frac)
	}
	scaled := frac * 1_000_000
	if scaled > math.MaxInt32 || scaled < math.MinInt32 {
		return 0, fmt.Errorf("fixedpoint: Ppm value %v out of range", frac)
	}
	return Ppm(int32(math.Round(scaled))), nil
}

// Fraction returns the ppm value as a float64 fraction.
func (p Ppm) Fraction() float64 { return float64(p) / 1_000_000.0 }

// DurationUS is a duration in microseconds, backed by int64.
type DurationUS int64

// Microseconds constructs a DurationUS directly from a microsecond count.
func Microseconds(us int64) DurationUS { return DurationUS(us) }

// MillisecondsChecked constructs a DurationUS from a millisecond count.
// Returns (0, false) on overflow.
func MillisecondsChecked(ms int64) (DurationUS, bool) {
	us := ms * 1000
	if ms != 0 && us/1000 != ms {
		return 0, false
	}
	return DurationUS(us), true
}

// SecondsChecked constructs a DurationUS from a second count. Returns
// (0, false) on overflow.
func SecondsChecked(s int64) (DurationUS, bool) {
	us := s * 1_000_000
	if s != 0 && us/1_000_000 != s {
		return 0, false
	}
	return DurationUS(us), true
}

// ToRaw returns the underlying microsecond count.
func (d DurationUS) ToRaw() int64 { return int64(d) }

// Throughput is micro-operations per second, backed by uint64. Non-negative
// by construction.
type Throughput uint64

// ThroughputFromRaw wraps a raw uint64 as Throughput with no validation.
func ThroughputFromRaw(raw uint64) Throughput { return Throughput(raw) }

// ToRaw returns the underlying uint64.
func (t Throughput) ToRaw() uint64 { return uint64(t) }

// MicroOpsPerSecond constructs a Throughput from a non-negative micro-ops
// count. Returns an error if negative.
func MicroOpsPerSecond(v int64) (Throughput, error) {
	if v < 0 {
		return 0, fmt.Errorf("fixedpoint: Throughput must be non-negative, got %d", v)
	}
	return Throughput(v), nil
}

// Metrics bundles one instance of each fixed-point scalar type. Used by
// protocol.ExecResult to report execution metrics without ever exposing a
// language float on the wire.
type Metrics struct {
	// EvalLatency is the wall time spent evaluating the decision input.
	EvalLatency DurationUS

	// ThroughputOps is the measured evaluation throughput.
	ThroughputOps Throughput

	// CompositeConfidence is the winning action's composite score,
	// normalized to [0,1] and stored as parts-per-million.
	CompositeConfidence Ppm

	// MarginBps is the gap between the top and second-ranked actions'
	// composite scores, expressed in basis points (a gap of 1.0 is 10000
	// bps).
	MarginBps Bps

	// StabilityIndex is the smallest flip distance between the top and
	// second-ranked actions, in native utility units, as a Q32.32; larger
	// is more stable. Zero when there is no second-ranked action.
	StabilityIndex Q32_32
}
