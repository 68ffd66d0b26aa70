package decision

import (
	"math"
	"sort"

	"github.com/octoreflex/octoreflex/internal/canon"
)

// Algorithm selects the criterion used to rank actions (system spec §4.D).
// String values are the wire-level selector names; aliases (maximin/wald,
// minimax_regret/savage) are resolved by canonicalAlgorithm before lookup.
type Algorithm string

const (
	AlgorithmMaximin              Algorithm = "maximin"
	AlgorithmWald                 Algorithm = "wald"
	AlgorithmMinimaxRegret        Algorithm = "minimax_regret"
	AlgorithmSavage               Algorithm = "savage"
	AlgorithmWeightedSum          Algorithm = "weighted_sum"
	AlgorithmSoftmax              Algorithm = "softmax"
	AlgorithmHurwicz              Algorithm = "hurwicz"
	AlgorithmLaplace              Algorithm = "laplace"
	AlgorithmStarr                Algorithm = "starr"
	AlgorithmHodgesLehmann        Algorithm = "hodges_lehmann"
	AlgorithmEpsilonContamination Algorithm = "epsilon_contamination"
	AlgorithmBrownRobinson        Algorithm = "brown_robinson"
	AlgorithmNash                 Algorithm = "nash"
	AlgorithmPareto               Algorithm = "pareto"
)

// canonicalAlgorithm resolves wire-level aliases to one representative
// constant so switch statements need only handle one spelling.
func canonicalAlgorithm(a Algorithm) Algorithm {
	switch a {
	case AlgorithmWald:
		return AlgorithmMaximin
	case AlgorithmSavage:
		return AlgorithmMinimaxRegret
	default:
		return a
	}
}

// Direction tells rank() which way "better" sorts.
type Direction uint8

const (
	Descending Direction = iota
	Ascending
)

// criterionResult is what every algorithm implementation produces: a score
// per action, the sort direction, and an algorithm-specific trace fragment
// (system spec §3 DecisionTrace "per algorithm used, any algorithm-specific
// intermediate").
type criterionResult struct {
	Scores              map[string]float64
	Direction           Direction
	Extra               canon.Value
	ExtraKey            string
	OverrideRecommended string // non-empty forces this action id to rank 1 (Nash)
}

// criterionFunc computes one algorithm's score. Registered in registry,
// mirroring the teacher's AnomalyScorer registry (contrib/scorer.go) —
// here the "plugin" unit is a pure scoring function instead of a
// stateful scorer object, since the decision kernel has no baseline to
// carry between calls.
type criterionFunc func(t *Tables, in *DecisionInput, weights map[string]float64) (criterionResult, error)

var registry = map[Algorithm]criterionFunc{
	AlgorithmMaximin:              computeMaximin,
	AlgorithmMinimaxRegret:        computeMinimaxRegret,
	AlgorithmWeightedSum:          computeWeightedSum,
	AlgorithmSoftmax:              computeSoftmax,
	AlgorithmHurwicz:              computeHurwicz,
	AlgorithmLaplace:              computeLaplace,
	AlgorithmStarr:                computeStarr,
	AlgorithmHodgesLehmann:        computeHodgesLehmann,
	AlgorithmEpsilonContamination: computeEpsilonContamination,
	AlgorithmBrownRobinson:        computeBrownRobinson,
	AlgorithmNash:                 computeNash,
	AlgorithmPareto:               computePareto,
}

// Lookup returns the criterion function for algo, resolving aliases.
// Reports ok=false for an unregistered algorithm name.
func Lookup(algo Algorithm) (criterionFunc, bool) {
	f, ok := registry[canonicalAlgorithm(algo)]
	return f, ok
}

func computeMaximin(t *Tables, _ *DecisionInput, _ map[string]float64) (criterionResult, error) {
	return criterionResult{Scores: copyFloatMap(t.W), Direction: Descending}, nil
}

func computeMinimaxRegret(t *Tables, _ *DecisionInput, _ map[string]float64) (criterionResult, error) {
	return criterionResult{Scores: copyFloatMap(t.RMax), Direction: Ascending}, nil
}

func computeWeightedSum(t *Tables, _ *DecisionInput, weights map[string]float64) (criterionResult, error) {
	scores := make(map[string]float64, len(t.ActionIDs))
	for _, aid := range t.ActionIDs {
		sum := 0.0
		for _, sid := range t.StateIDs {
			sum += t.U[aid][sid] * weights[sid]
		}
		scores[aid] = canon.Normalize(sum)
	}
	return criterionResult{Scores: scores, Direction: Descending}, nil
}

func computeSoftmax(t *Tables, in *DecisionInput, weights map[string]float64) (criterionResult, error) {
	temp := *in.Params.Temperature
	weighted := make(map[string]float64, len(t.ActionIDs))
	maxWeighted := math.Inf(-1)
	for _, aid := range t.ActionIDs {
		sum := 0.0
		for _, sid := range t.StateIDs {
			sum += t.U[aid][sid] * weights[sid]
		}
		weighted[aid] = sum
		if sum > maxWeighted {
			maxWeighted = sum
		}
	}
	exps := make(map[string]float64, len(t.ActionIDs))
	z := 0.0
	for _, aid := range t.ActionIDs {
		e := math.Exp((weighted[aid] - maxWeighted) / temp)
		exps[aid] = e
		z += e
	}
	scores := make(map[string]float64, len(t.ActionIDs))
	for _, aid := range t.ActionIDs {
		scores[aid] = canon.Normalize(exps[aid] / z)
	}
	return criterionResult{Scores: scores, Direction: Descending}, nil
}

func computeHurwicz(t *Tables, in *DecisionInput, _ map[string]float64) (criterionResult, error) {
	alpha := *in.Params.Optimism
	scores := make(map[string]float64, len(t.ActionIDs))
	for _, aid := range t.ActionIDs {
		max, min := math.Inf(-1), math.Inf(1)
		for _, sid := range t.StateIDs {
			v := t.U[aid][sid]
			if v > max {
				max = v
			}
			if v < min {
				min = v
			}
		}
		scores[aid] = canon.Normalize(alpha*max + (1-alpha)*min)
	}
	return criterionResult{Scores: scores, Direction: Descending}, nil
}

func computeLaplace(t *Tables, _ *DecisionInput, _ map[string]float64) (criterionResult, error) {
	n := float64(len(t.StateIDs))
	scores := make(map[string]float64, len(t.ActionIDs))
	for _, aid := range t.ActionIDs {
		sum := 0.0
		for _, sid := range t.StateIDs {
			sum += t.U[aid][sid]
		}
		scores[aid] = canon.Normalize(sum / n)
	}
	return criterionResult{Scores: scores, Direction: Descending}, nil
}

func computeStarr(t *Tables, _ *DecisionInput, weights map[string]float64) (criterionResult, error) {
	scores := make(map[string]float64, len(t.ActionIDs))
	for _, aid := range t.ActionIDs {
		sum := 0.0
		for _, sid := range t.StateIDs {
			sum += t.R[aid][sid] * weights[sid]
		}
		scores[aid] = canon.Normalize(sum)
	}
	return criterionResult{Scores: scores, Direction: Ascending}, nil
}

func computeHodgesLehmann(t *Tables, in *DecisionInput, _ map[string]float64) (criterionResult, error) {
	alpha := *in.Params.Confidence
	n := float64(len(t.StateIDs))
	scores := make(map[string]float64, len(t.ActionIDs))
	for _, aid := range t.ActionIDs {
		min := math.Inf(1)
		sum := 0.0
		for _, sid := range t.StateIDs {
			v := t.U[aid][sid]
			if v < min {
				min = v
			}
			sum += v
		}
		scores[aid] = canon.Normalize(alpha*min + (1-alpha)*(sum/n))
	}
	return criterionResult{Scores: scores, Direction: Descending}, nil
}

func computeEpsilonContamination(t *Tables, in *DecisionInput, weights map[string]float64) (criterionResult, error) {
	eps := *in.Params.Epsilon
	scores := make(map[string]float64, len(t.ActionIDs))
	for _, aid := range t.ActionIDs {
		weighted := 0.0
		min := math.Inf(1)
		for _, sid := range t.StateIDs {
			v := t.U[aid][sid]
			weighted += v * weights[sid]
			if v < min {
				min = v
			}
		}
		scores[aid] = canon.Normalize((1-eps)*weighted + eps*min)
	}
	return criterionResult{Scores: scores, Direction: Descending}, nil
}

// computeBrownRobinson runs N rounds of fictitious play on the zero-sum
// payoff matrix (system spec §4.D "Brown-Robinson detail"). Tie-breaks are
// fixed ascending-by-id per system spec §9 ("implementers should fix those
// as ascending-id tie-breaks to preserve P3").
func computeBrownRobinson(t *Tables, in *DecisionInput, _ map[string]float64) (criterionResult, error) {
	n := *in.Params.Iterations
	agentAccum := make(map[string]float64, len(t.ActionIDs))
	natureAccum := make(map[string]float64, len(t.StateIDs))
	count := make(map[string]int, len(t.ActionIDs))
	for _, aid := range t.ActionIDs {
		agentAccum[aid] = 0
		count[aid] = 0
	}
	for _, sid := range t.StateIDs {
		natureAccum[sid] = 0
	}

	for round := 0; round < n; round++ {
		aStar := argmaxAscendingTieBreak(t.ActionIDs, agentAccum)
		sStar := argminAscendingTieBreak(t.StateIDs, natureAccum)
		count[aStar]++
		for _, aid := range t.ActionIDs {
			agentAccum[aid] += t.U[aid][sStar]
		}
		for _, sid := range t.StateIDs {
			natureAccum[sid] += t.U[aStar][sid]
		}
	}

	scores := make(map[string]float64, len(t.ActionIDs))
	for _, aid := range t.ActionIDs {
		scores[aid] = float64(count[aid]) / float64(n)
	}
	extra := canon.Object(map[string]canon.Value{
		"iterations": canon.Int(int64(n)),
		"counts":     intMapToCanonical(count),
	})
	return criterionResult{Scores: scores, Direction: Descending, Extra: extra, ExtraKey: "brown_robinson"}, nil
}

func argmaxAscendingTieBreak(ids []string, values map[string]float64) string {
	best := ids[0]
	for _, id := range ids[1:] {
		if values[id] > values[best] {
			best = id
		}
	}
	return best
}

func argminAscendingTieBreak(ids []string, values map[string]float64) string {
	best := ids[0]
	for _, id := range ids[1:] {
		if values[id] < values[best] {
			best = id
		}
	}
	return best
}

// SaddlePoint is an (action, state) cell equal to both its row minimum and
// its column maximum (system spec §4.D "Nash detail").
type SaddlePoint struct {
	Action string
	State  string
}

func computeNash(t *Tables, _ *DecisionInput, _ map[string]float64) (criterionResult, error) {
	var saddles []SaddlePoint
	for _, aid := range t.ActionIDs {
		for _, sid := range t.StateIDs {
			if t.U[aid][sid] == t.W[aid] && t.U[aid][sid] == t.M[sid] {
				saddles = append(saddles, SaddlePoint{Action: aid, State: sid})
			}
		}
	}
	sort.Slice(saddles, func(i, j int) bool {
		if saddles[i].Action != saddles[j].Action {
			return saddles[i].Action < saddles[j].Action
		}
		return saddles[i].State < saddles[j].State
	})

	override := ""
	if len(saddles) > 0 {
		override = saddles[0].Action
	}

	saddleValues := make([]canon.Value, len(saddles))
	for i, sp := range saddles {
		saddleValues[i] = canon.Object(map[string]canon.Value{
			"action": canon.String(sp.Action),
			"state":  canon.String(sp.State),
		})
	}
	extra := canon.Object(map[string]canon.Value{
		"saddle_points": canon.Array(saddleValues...),
	})
	return criterionResult{
		Scores:              copyFloatMap(t.W),
		Direction:            Descending,
		Extra:               extra,
		ExtraKey:            "nash",
		OverrideRecommended: override,
	}, nil
}

// computePareto computes the non-dominance mask: a is dominated iff some
// b != a weakly beats it everywhere and strictly beats it somewhere
// (system spec §4.D "Pareto detail", P5). The frontier (non-dominated
// actions) is reported first, sorted ascending by id; dominated actions
// follow, also sorted ascending by id. Ranking uses frontier-membership as
// the primary key and id as the tie-break, which keeps computePareto
// compatible with the uniform rank() path: a frontier member scores 1,
// a dominated action scores 0, sorted descending.
func computePareto(t *Tables, _ *DecisionInput, _ map[string]float64) (criterionResult, error) {
	dominated := make(map[string]bool, len(t.ActionIDs))
	for _, a := range t.ActionIDs {
		for _, b := range t.ActionIDs {
			if a == b {
				continue
			}
			if dominatesAll(t, b, a) {
				dominated[a] = true
				break
			}
		}
	}

	var frontier, rest []string
	for _, aid := range t.ActionIDs {
		if dominated[aid] {
			rest = append(rest, aid)
		} else {
			frontier = append(frontier, aid)
		}
	}
	sort.Strings(frontier)
	sort.Strings(rest)

	scores := make(map[string]float64, len(t.ActionIDs))
	for _, aid := range frontier {
		scores[aid] = 1
	}
	for _, aid := range rest {
		scores[aid] = 0
	}

	frontierValues := make([]canon.Value, len(frontier))
	for i, aid := range frontier {
		frontierValues[i] = canon.String(aid)
	}
	dominatedValues := make([]canon.Value, len(rest))
	for i, aid := range rest {
		dominatedValues[i] = canon.String(aid)
	}
	extra := canon.Object(map[string]canon.Value{
		"frontier":  canon.Array(frontierValues...),
		"dominated": canon.Array(dominatedValues...),
	})
	return criterionResult{Scores: scores, Direction: Descending, Extra: extra, ExtraKey: "pareto"}, nil
}

// dominatesAll reports whether b weakly beats a in every state and
// strictly beats a in at least one.
func dominatesAll(t *Tables, b, a string) bool {
	strictlyBetter := false
	for _, sid := range t.StateIDs {
		if t.U[b][sid] < t.U[a][sid] {
			return false
		}
		if t.U[b][sid] > t.U[a][sid] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func intMapToCanonical(m map[string]int) canon.Value {
	obj := make(map[string]canon.Value, len(m))
	for k, v := range m {
		obj[k] = canon.Int(int64(v))
	}
	return canon.Object(obj)
}
