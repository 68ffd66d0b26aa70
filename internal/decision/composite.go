package decision

// CompositeWeights are the default normalization weights for the
// composite score (system spec §4.D "Composite scoring", §9 "the source
// assigns multiple meanings to the 'composite' scores across files; §4.D
// fixes the default weights and normalization policy"). An explicit
// override must come from the caller through DecisionInput in a future
// revision; today only the defaults are wired.
type CompositeWeights struct {
	WorstCase   float64
	MaxRegret   float64
	Adversarial float64
}

// DefaultCompositeWeights is (0.4, 0.4, 0.2) per system spec §4.D.
func DefaultCompositeWeights() CompositeWeights {
	return CompositeWeights{WorstCase: 0.4, MaxRegret: 0.4, Adversarial: 0.2}
}

func (w CompositeWeights) normalized() CompositeWeights {
	sum := w.WorstCase + w.MaxRegret + w.Adversarial
	if sum == 0 {
		return DefaultCompositeWeights()
	}
	return CompositeWeights{
		WorstCase:   w.WorstCase / sum,
		MaxRegret:   w.MaxRegret / sum,
		Adversarial: w.Adversarial / sum,
	}
}

// normalizeCriterion maps raw per-action scores to [0,1] via
// (value-min)/(max-min); if max==min every action gets 1. When
// lowerIsBetter is true (regret) the normalized value is replaced by
// 1-normalized, so higher composite always means better across all three
// inputs.
func normalizeCriterion(raw map[string]float64, ids []string, lowerIsBetter bool) map[string]float64 {
	min, max := raw[ids[0]], raw[ids[0]]
	for _, id := range ids[1:] {
		if raw[id] < min {
			min = raw[id]
		}
		if raw[id] > max {
			max = raw[id]
		}
	}
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		var n float64
		if max == min {
			n = 1
		} else {
			n = (raw[id] - min) / (max - min)
		}
		if lowerIsBetter {
			n = 1 - n
		}
		out[id] = n
	}
	return out
}

// computeComposite computes the composite score for every action from the
// three always-available per-action tables (W, RMax, A), regardless of
// which algorithm was selected for the primary ranking (system spec §3:
// RankedAction always reports a composite score).
func computeComposite(t *Tables, weights CompositeWeights) map[string]float64 {
	w := weights.normalized()
	nW := normalizeCriterion(t.W, t.ActionIDs, false)
	nR := normalizeCriterion(t.RMax, t.ActionIDs, true)
	nA := normalizeCriterion(t.A, t.ActionIDs, false)
	out := make(map[string]float64, len(t.ActionIDs))
	for _, id := range t.ActionIDs {
		out[id] = w.WorstCase*nW[id] + w.MaxRegret*nR[id] + w.Adversarial*nA[id]
	}
	return out
}
