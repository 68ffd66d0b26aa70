package canon

import "math"

// normalizeEpsilon is the rounding grid for canonical floats: every float
// entering canonical form is rounded to the nearest multiple of 1e-9
// (system spec §4.B rule 3). This is the single source of float
// determinism in the system — no other layer is permitted to round floats
// differently before they reach Encode.
const normalizeEpsilon = 1e-9
const normalizeScale = 1.0 / normalizeEpsilon

// Normalize applies the canonical float-normalization rule:
//   - NaN                 → 0
//   - +Inf                → math.MaxFloat64
//   - -Inf                → -math.MaxFloat64
//   - negative zero       → positive zero
//   - |x| >= 2^53 * 1e-9  → unchanged (float64 spacing there is already
//     coarser than the grid, and x*1e9 could overflow to ±Inf)
//   - otherwise           → rounded to the nearest multiple of 1e-9
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x) for all
// x (system spec P4), because rounding to a fixed grid a second time is a
// no-op.
func Normalize(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return 0
	case math.IsInf(f, 1):
		return math.MaxFloat64
	case math.IsInf(f, -1):
		return -math.MaxFloat64
	}
	if f == 0 {
		return 0 // coalesces -0 to +0 (float64 0 == -0 is true, but avoids -0.0 sign bit leaking into FormatFloat)
	}
	scaled := f * normalizeScale
	if math.Abs(scaled) >= 1<<53 {
		return f
	}
	rounded := math.Round(scaled) / normalizeScale
	if rounded == 0 {
		return 0
	}
	return rounded
}
