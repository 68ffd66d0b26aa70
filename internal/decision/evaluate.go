// Package decision: evaluate.go wires validation, the derived tables, the
// selected algorithm, ranking, composite scoring, and fingerprinting into
// the single Evaluate entry point (system spec §2 "Dataflow").
package decision

import "github.com/octoreflex/octoreflex/internal/fingerprint"

// Evaluate runs the full pipeline for one DecisionInput (system spec §4.D,
// §3 invariant I5: "evaluation is pure"). On any validation failure it
// returns a *DomainError and a zero DecisionOutput.
func Evaluate(in DecisionInput) (DecisionOutput, error) {
	if err := validate(&in); err != nil {
		return DecisionOutput{}, err
	}

	matrix := NewPayoffMatrix(in.Outcomes)
	t := buildTables(matrix, in.Actions, in.States)
	weights := resolveWeights(&in, t)

	criterion, ok := Lookup(in.Algorithm)
	if !ok {
		return DecisionOutput{}, errInvalidInput(ErrInvalidParams, "unknown algorithm "+string(in.Algorithm))
	}
	result, err := criterion(t, &in, weights)
	if err != nil {
		return DecisionOutput{}, err
	}

	order := rank(t.ActionIDs, result.Scores, result.Direction)
	order = applyOverride(order, result.OverrideRecommended)

	composite := computeComposite(t, DefaultCompositeWeights())

	ranked := make([]RankedAction, len(order))
	for i, aid := range order {
		ranked[i] = RankedAction{
			ActionID:    aid,
			WorstCase:   t.W[aid],
			MaxRegret:   t.RMax[aid],
			Adversarial: t.A[aid],
			Composite:   composite[aid],
			Rank:        i + 1,
			Recommended: i == 0,
		}
	}

	trace := buildTrace(t, composite, in.Algorithm, result)

	out := DecisionOutput{RankedActions: ranked, Trace: trace}
	out.Fingerprint = string(fingerprint.OfCanonicalizer(in))
	return out, nil
}
