// Package sensitivity implements the adjudication layer that sits above a
// decision.DecisionOutput: flip distances, value-of-information ranking,
// a regret-bounded evidence-gathering plan, decision-boundary reporting,
// and referee adjudication against an external proposal (system spec
// §4.E).
//
// Design note (system spec §9 open question): flip distance is reported in
// native utility units, not normalized to a [0,1] band. The decision
// kernel already normalizes every utility via canon.Normalize before it
// reaches this layer, so native-unit distances are already on a stable,
// cross-platform-deterministic scale; a second normalization pass would
// only obscure the margin's real-world size without adding determinism.
package sensitivity

import (
	"sort"

	"github.com/octoreflex/octoreflex/internal/canon"
	"github.com/octoreflex/octoreflex/internal/fingerprint"
)

// FlipDistance is the smallest magnitude of utility change in a single
// state that would move a non-top action into first place (GLOSSARY).
type FlipDistance struct {
	StateID  string
	Distance float64
}

// FlipDistances computes, for every state, |U[top][s] - U[second][s]|
// between the current top action and the next-best action, sorted
// ascending by distance with ties broken on state id (system spec §4.E).
func FlipDistances(utility map[string]map[string]float64, stateIDs []string, top, second string) []FlipDistance {
	out := make([]FlipDistance, 0, len(stateIDs))
	for _, sid := range stateIDs {
		d := utility[top][sid] - utility[second][sid]
		if d < 0 {
			d = -d
		}
		out = append(out, FlipDistance{StateID: sid, Distance: canon.Normalize(d)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].StateID < out[j].StateID
	})
	return out
}

// VOIBucket is the recommendation bucket assigned to a value-of-information
// item (system spec §4.E).
type VOIBucket string

const (
	BucketDoNow     VOIBucket = "do_now"
	BucketPlanLater VOIBucket = "plan_later"
	BucketDefer     VOIBucket = "defer"
)

// VOIItem is one entry of the value-of-information ranking.
type VOIItem struct {
	StateID string
	VOI     float64
	Bucket  VOIBucket
}

// voiTransform is the monotone transform of flip distance used to compute
// value of information: lower distance (closer to flipping the top
// action) yields higher VOI. 1/(1+d) is monotone decreasing in d and maps
// a zero distance to the maximum VOI of 1.
func voiTransform(d float64) float64 {
	return 1.0 / (1.0 + d)
}

// RankVOI orders flip distances by value of information and assigns each
// a recommendation bucket: do_now when VOI > 2*minEVOI, plan_later when
// VOI > minEVOI, else defer (system spec §4.E).
func RankVOI(distances []FlipDistance, minEVOI float64) []VOIItem {
	items := make([]VOIItem, len(distances))
	for i, d := range distances {
		voi := voiTransform(d.Distance)
		items[i] = VOIItem{StateID: d.StateID, VOI: canon.Normalize(voi)}
	}
	for i := range items {
		switch {
		case items[i].VOI > 2*minEVOI:
			items[i].Bucket = BucketDoNow
		case items[i].VOI > minEVOI:
			items[i].Bucket = BucketPlanLater
		default:
			items[i].Bucket = BucketDefer
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].VOI != items[j].VOI {
			return items[i].VOI > items[j].VOI
		}
		return items[i].StateID < items[j].StateID
	})
	return items
}

// RegretBoundedPlan is the top-k of the VOI list filtered to do_now items
// (system spec §4.E).
type RegretBoundedPlan struct {
	PlanID string
	Items  []VOIItem
}

// BuildRegretBoundedPlan takes the top-`horizon` do_now items from items
// and fingerprints (inputID, horizon, minEVOI) as the plan id.
func BuildRegretBoundedPlan(items []VOIItem, inputID string, horizon int, minEVOI float64) RegretBoundedPlan {
	var doNow []VOIItem
	for _, it := range items {
		if it.Bucket == BucketDoNow {
			doNow = append(doNow, it)
		}
	}
	if horizon < len(doNow) {
		doNow = doNow[:horizon]
	}
	planID := fingerprint.OfValue(canon.Object(map[string]canon.Value{
		"input_id": canon.String(inputID),
		"horizon":  canon.Int(int64(horizon)),
		"min_evoi": canon.Float(minEVOI),
	}))
	return RegretBoundedPlan{PlanID: string(planID), Items: doNow}
}

// DecisionBoundary reports the current top action plus the two smallest
// flip distances (system spec §4.E).
type DecisionBoundary struct {
	TopAction    string
	NearestFlips []FlipDistance
}

// BuildDecisionBoundary returns the boundary report for top given its
// already-sorted-ascending flip distances.
func BuildDecisionBoundary(top string, sortedDistances []FlipDistance) DecisionBoundary {
	n := 2
	if n > len(sortedDistances) {
		n = len(sortedDistances)
	}
	return DecisionBoundary{TopAction: top, NearestFlips: append([]FlipDistance(nil), sortedDistances[:n]...)}
}

// Adjudication is the referee's verdict on an external proposal (system
// spec §4.E).
type Adjudication struct {
	Accepted        bool
	Proposal        string
	ComputedTop     string
	WhatWouldChange *FlipDistance
}

// Adjudicate accepts proposal iff it equals computedTop; otherwise it
// emits the nearest flip (the smallest entry of sortedDistances) as the
// evidence of what would need to change.
func Adjudicate(proposal, computedTop string, sortedDistances []FlipDistance) Adjudication {
	if proposal == computedTop {
		return Adjudication{Accepted: true, Proposal: proposal, ComputedTop: computedTop}
	}
	var nearest *FlipDistance
	if len(sortedDistances) > 0 {
		nearest = &sortedDistances[0]
	}
	return Adjudication{Accepted: false, Proposal: proposal, ComputedTop: computedTop, WhatWouldChange: nearest}
}
