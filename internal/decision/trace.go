package decision

import "github.com/octoreflex/octoreflex/internal/canon"

// DecisionTrace carries the intermediate tables behind a DecisionOutput
// (system spec §3). Algorithm-specific fragments (Hurwicz scores, the
// Brown-Robinson round counts, Nash saddle points, the Pareto frontier,
// and so on) live in Extra, keyed by the algorithm name that produced
// them — only the algorithm actually selected ever populates a key.
type DecisionTrace struct {
	Utility       map[string]map[string]float64
	WorstCase     map[string]float64
	MaxPerState   map[string]float64
	Regret        map[string]map[string]float64
	Adversarial   map[string]float64
	Composite     map[string]float64
	TieBreakRule  string
	AlgorithmUsed Algorithm
	Extra         map[string]canon.Value
}

func buildTrace(t *Tables, composite map[string]float64, algo Algorithm, result criterionResult) DecisionTrace {
	extra := map[string]canon.Value{}
	if result.ExtraKey != "" {
		extra[result.ExtraKey] = result.Extra
	}
	return DecisionTrace{
		Utility:       t.U,
		WorstCase:     t.W,
		MaxPerState:   t.M,
		Regret:        t.R,
		Adversarial:   t.A,
		Composite:     composite,
		TieBreakRule:  tieBreakRuleName,
		AlgorithmUsed: algo,
		Extra:         extra,
	}
}

// MarshalCanonical projects a DecisionTrace into the canonical value
// lattice. Every table is keyed by action/state id, which canon.Object
// sorts ascending on encode — this is what system spec §5's "trace tables
// use an ordered-map representation ... so that iteration order in the
// serialized form equals the canonical sort order" requires, with no
// separate sorting step needed here.
func (dt DecisionTrace) MarshalCanonical() canon.Value {
	floatMapToCanonical := func(m map[string]float64) canon.Value {
		obj := make(map[string]canon.Value, len(m))
		for k, v := range m {
			obj[k] = canon.Float(v)
		}
		return canon.Object(obj)
	}
	nestedFloatMapToCanonical := func(m map[string]map[string]float64) canon.Value {
		obj := make(map[string]canon.Value, len(m))
		for k, v := range m {
			obj[k] = floatMapToCanonical(v)
		}
		return canon.Object(obj)
	}
	extraObj := make(map[string]canon.Value, len(dt.Extra))
	for k, v := range dt.Extra {
		extraObj[k] = v
	}
	return canon.Object(map[string]canon.Value{
		"utility":        nestedFloatMapToCanonical(dt.Utility),
		"worst_case":     floatMapToCanonical(dt.WorstCase),
		"max_per_state":  floatMapToCanonical(dt.MaxPerState),
		"regret":         nestedFloatMapToCanonical(dt.Regret),
		"adversarial":    floatMapToCanonical(dt.Adversarial),
		"composite":      floatMapToCanonical(dt.Composite),
		"tie_break_rule": canon.String(dt.TieBreakRule),
		"algorithm_used": canon.String(string(dt.AlgorithmUsed)),
		"extra":          canon.Object(extraObj),
	})
}
