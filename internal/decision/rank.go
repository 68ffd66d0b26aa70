package decision

import "sort"

const tieBreakRuleName = "lexicographic_by_action_id"

// rank sorts actionIDs by score in the given direction, tie-breaking
// strictly ascending on action id (system spec §4.D "Ranking + tie-break",
// P3). Returns the sorted ids; rank 1 is index 0.
func rank(actionIDs []string, scores map[string]float64, dir Direction) []string {
	sorted := make([]string, len(actionIDs))
	copy(sorted, actionIDs)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := scores[sorted[i]], scores[sorted[j]]
		if si == sj {
			return sorted[i] < sorted[j]
		}
		if dir == Ascending {
			return si < sj
		}
		return si > sj
	})
	return sorted
}

// applyOverride moves overrideID to the front of order if non-empty,
// preserving the relative order of everything else. Used by Nash: ranking
// is based on maximin, but if a saddle point exists its action is forced
// to rank 1 (system spec §4.D "Nash detail").
func applyOverride(order []string, overrideID string) []string {
	if overrideID == "" {
		return order
	}
	out := make([]string, 0, len(order))
	out = append(out, overrideID)
	for _, id := range order {
		if id != overrideID {
			out = append(out, id)
		}
	}
	return out
}
