// Package decision implements the deterministic decision-evaluation
// kernel: classical criteria over a discrete action/state payoff matrix,
// producing a ranked list of actions plus a full trace of the intermediate
// tables each criterion used (system spec §4.D).
//
// The kernel is pure and single-threaded per call: it touches no shared
// state, performs no I/O, and never suspends. Equal inputs (by canonical
// form, see internal/canon) always produce byte-equal outputs. This is the
// analogue of the teacher's anomaly.Engine.Score — a stateless scoring
// function — generalized from a single Mahalanobis+entropy score to a
// family of twelve named criteria, each emitting a full trace rather than
// a bare float.
package decision

import "github.com/octoreflex/octoreflex/internal/canon"

// Action is a discrete alternative the decision-maker may choose.
// Identity is ID; Label is purely descriptive.
type Action struct {
	ID    string
	Label string
}

// MarshalCanonical projects an Action into the canonical value lattice.
func (a Action) MarshalCanonical() canon.Value {
	return canon.Object(map[string]canon.Value{
		"id":    canon.String(a.ID),
		"label": canon.String(a.Label),
	})
}

// State is a world state (scenario) the payoff matrix is defined over.
// Identity is ID. Probability is optional (zero value means "unset", not
// "zero probability" — callers that care about the distinction should
// consult DecisionInput.Weights instead).
type State struct {
	ID          string
	Probability *float64
	Adversarial bool
}

// MarshalCanonical projects a State into the canonical value lattice.
func (s State) MarshalCanonical() canon.Value {
	obj := map[string]canon.Value{
		"id":          canon.String(s.ID),
		"adversarial": canon.Bool(s.Adversarial),
	}
	if s.Probability != nil {
		obj["probability"] = canon.Float(*s.Probability)
	} else {
		obj["probability"] = canon.Null()
	}
	return canon.Object(obj)
}

// Outcome is one (action, state, utility) triple — the sparse
// representation a caller may submit instead of a dense matrix (system
// spec §3 "Payoff matrix ... may be delivered as a dense mapping or a list
// of triples").
type Outcome struct {
	Action  string
	State   string
	Utility float64
}

// PayoffMatrix is the dense total mapping Action × State → utility used
// internally by every algorithm. Build one with NewPayoffMatrix.
type PayoffMatrix struct {
	values map[string]map[string]float64
}

// NewPayoffMatrix lifts a list of outcome triples into a dense matrix.
// Duplicate (action, state) pairs overwrite in insertion order — the last
// one wins — matching system spec §3. Callers that must reject duplicates
// do so in Validate (the strict path), not here.
func NewPayoffMatrix(outcomes []Outcome) *PayoffMatrix {
	m := &PayoffMatrix{values: make(map[string]map[string]float64)}
	for _, o := range outcomes {
		row, ok := m.values[o.Action]
		if !ok {
			row = make(map[string]float64)
			m.values[o.Action] = row
		}
		row[o.State] = o.Utility
	}
	return m
}

// Get returns the utility for (action, state) and whether it was present.
func (m *PayoffMatrix) Get(action, state string) (float64, bool) {
	row, ok := m.values[action]
	if !ok {
		return 0, false
	}
	v, ok := row[state]
	return v, ok
}

// Params bundles the optional algorithm-specific parameters (system spec
// §4.D preconditions). A zero value means "not supplied"; Validate checks
// presence per algorithm.
type Params struct {
	Temperature *float64 // softmax, > 0
	Optimism    *float64 // hurwicz α, ∈ [0,1]
	Confidence  *float64 // hodges_lehmann α, ∈ [0,1]
	Epsilon     *float64 // epsilon_contamination ε, ∈ [0,1]
	Iterations  *int     // brown_robinson N, ≥ 1
}

// DecisionInput is the validated, immutable request to Evaluate.
type DecisionInput struct {
	ID        string
	Actions   []Action
	States    []State
	Outcomes  []Outcome
	Algorithm Algorithm
	Weights   map[string]float64 // keyed by state id; optional
	Params    Params
	Strict    bool
	Evidence  map[string]string // optional evidence metadata, excluded from scoring
	Metadata  map[string]string // optional, excluded from scoring, included in fingerprint
}

// MarshalCanonical projects a DecisionInput into the canonical value
// lattice. Metadata and Evidence are included (system spec §3: "Metadata
// is explicitly excluded from scoring but included in the input
// fingerprint").
func (in DecisionInput) MarshalCanonical() canon.Value {
	actions := make([]canon.Value, len(in.Actions))
	for i, a := range in.Actions {
		actions[i] = a.MarshalCanonical()
	}
	states := make([]canon.Value, len(in.States))
	for i, s := range in.States {
		states[i] = s.MarshalCanonical()
	}
	outcomes := make([]canon.Value, len(in.Outcomes))
	for i, o := range in.Outcomes {
		outcomes[i] = canon.Object(map[string]canon.Value{
			"action":  canon.String(o.Action),
			"state":   canon.String(o.State),
			"utility": canon.Float(o.Utility),
		})
	}
	weights := make(map[string]canon.Value, len(in.Weights))
	for k, v := range in.Weights {
		weights[k] = canon.Float(v)
	}
	obj := map[string]canon.Value{
		"id":        canon.String(in.ID),
		"actions":   canon.Array(actions...),
		"states":    canon.Array(states...),
		"outcomes":  canon.Array(outcomes...),
		"algorithm": canon.String(string(in.Algorithm)),
		"weights":   canon.Object(weights),
		"strict":    canon.Bool(in.Strict),
	}
	obj["params"] = in.Params.marshalCanonical()
	obj["evidence"] = stringMapToCanonical(in.Evidence)
	obj["metadata"] = stringMapToCanonical(in.Metadata)
	return canon.Object(obj)
}

func (p Params) marshalCanonical() canon.Value {
	obj := map[string]canon.Value{}
	putOptFloat := func(key string, v *float64) {
		if v != nil {
			obj[key] = canon.Float(*v)
		} else {
			obj[key] = canon.Null()
		}
	}
	putOptFloat("temperature", p.Temperature)
	putOptFloat("optimism", p.Optimism)
	putOptFloat("confidence", p.Confidence)
	putOptFloat("epsilon", p.Epsilon)
	if p.Iterations != nil {
		obj["iterations"] = canon.Int(int64(*p.Iterations))
	} else {
		obj["iterations"] = canon.Null()
	}
	return canon.Object(obj)
}

func stringMapToCanonical(m map[string]string) canon.Value {
	obj := make(map[string]canon.Value, len(m))
	for k, v := range m {
		obj[k] = canon.String(v)
	}
	return canon.Object(obj)
}

// RankedAction is one entry of DecisionOutput.RankedActions (system spec
// §3).
type RankedAction struct {
	ActionID    string
	WorstCase   float64
	MaxRegret   float64
	Adversarial float64
	Composite   float64
	Rank        int
	Recommended bool
}

// MarshalCanonical projects a RankedAction into the canonical value
// lattice.
func (r RankedAction) MarshalCanonical() canon.Value {
	return canon.Object(map[string]canon.Value{
		"action_id":   canon.String(r.ActionID),
		"worst_case":  canon.Float(r.WorstCase),
		"max_regret":  canon.Float(r.MaxRegret),
		"adversarial": canon.Float(r.Adversarial),
		"composite":   canon.Float(r.Composite),
		"rank":        canon.Int(int64(r.Rank)),
		"recommended": canon.Bool(r.Recommended),
	})
}

// DecisionOutput is the immutable result of Evaluate.
type DecisionOutput struct {
	RankedActions []RankedAction
	Trace         DecisionTrace
	Fingerprint   string
}

// MarshalCanonical projects a DecisionOutput into the canonical value
// lattice.
func (out DecisionOutput) MarshalCanonical() canon.Value {
	ranked := make([]canon.Value, len(out.RankedActions))
	for i, r := range out.RankedActions {
		ranked[i] = r.MarshalCanonical()
	}
	return canon.Object(map[string]canon.Value{
		"ranked_actions": canon.Array(ranked...),
		"trace":          out.Trace.MarshalCanonical(),
		"fingerprint":    canon.String(out.Fingerprint),
	})
}
