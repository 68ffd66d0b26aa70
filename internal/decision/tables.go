package decision

import (
	"math"
	"sort"

	"github.com/octoreflex/octoreflex/internal/canon"
)

// Tables holds the derived tables computed once per evaluation (system
// spec §4.D "Derived tables"). ActionIDs and StateIDs are kept in ascending
// byte-wise order so every downstream ordered-map use (trace serialization)
// matches the canonical sort order (system spec §4.D "trace tables use an
// ordered-map representation").
type Tables struct {
	ActionIDs []string
	StateIDs  []string

	// U[a][s]: normalized utility.
	U map[string]map[string]float64
	// W[a] = min_s U[a][s].
	W map[string]float64
	// M[s] = max_a U[a][s].
	M map[string]float64
	// R[a][s] = M[s] - U[a][s].
	R map[string]map[string]float64
	// RMax[a] = max_s R[a][s].
	RMax map[string]float64
	// A[a] = min over adversarial states of U[a][s]; falls back to W[a] if
	// no state is flagged adversarial.
	A map[string]float64

	adversarialStates map[string]bool
}

func buildTables(matrix *PayoffMatrix, actions []Action, states []State) *Tables {
	t := &Tables{
		U:                 make(map[string]map[string]float64, len(actions)),
		W:                 make(map[string]float64, len(actions)),
		M:                 make(map[string]float64, len(states)),
		R:                 make(map[string]map[string]float64, len(actions)),
		RMax:              make(map[string]float64, len(actions)),
		A:                 make(map[string]float64, len(actions)),
		adversarialStates: make(map[string]bool, len(states)),
	}
	for _, a := range actions {
		t.ActionIDs = append(t.ActionIDs, a.ID)
	}
	for _, s := range states {
		t.StateIDs = append(t.StateIDs, s.ID)
		if s.Adversarial {
			t.adversarialStates[s.ID] = true
		}
	}
	sort.Strings(t.ActionIDs)
	sort.Strings(t.StateIDs)

	for _, aid := range t.ActionIDs {
		row := make(map[string]float64, len(t.StateIDs))
		for _, sid := range t.StateIDs {
			v, _ := matrix.Get(aid, sid)
			row[sid] = canon.Normalize(v)
		}
		t.U[aid] = row
	}

	for _, sid := range t.StateIDs {
		max := math.Inf(-1)
		for _, aid := range t.ActionIDs {
			if v := t.U[aid][sid]; v > max {
				max = v
			}
		}
		t.M[sid] = max
	}

	anyAdversarial := len(t.adversarialStates) > 0

	for _, aid := range t.ActionIDs {
		min := math.Inf(1)
		minAdv := math.Inf(1)
		regretRow := make(map[string]float64, len(t.StateIDs))
		maxRegret := math.Inf(-1)
		for _, sid := range t.StateIDs {
			u := t.U[aid][sid]
			if u < min {
				min = u
			}
			if t.adversarialStates[sid] && u < minAdv {
				minAdv = u
			}
			r := canon.Normalize(t.M[sid] - u)
			regretRow[sid] = r
			if r > maxRegret {
				maxRegret = r
			}
		}
		t.W[aid] = min
		t.R[aid] = regretRow
		t.RMax[aid] = maxRegret
		if anyAdversarial {
			t.A[aid] = minAdv
		} else {
			t.A[aid] = min
		}
	}
	return t
}
