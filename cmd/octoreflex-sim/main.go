// Package main — cmd/octoreflex-sim/main.go
//
// octoreflex-sim is a standalone evaluator: it loads one DecisionInput from
// a JSON file, runs it through the same decision.Evaluate pipeline the
// protocol server's ExecRequest handler calls, and prints the ranked
// output. No network, no config file, no metrics — a single pure function
// call wrapped in flag parsing, the adapted descendant of the teacher's
// standalone simulator entrypoint (same "one binary, one calculation,
// print to stdout" shape, different calculation).
//
// Usage:
//
//	octoreflex-sim -input request.json
//	octoreflex-sim -input request.json -trace
//	octoreflex-sim -input request.json -ledger /var/lib/octoreflex/octoreflex.db
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/octoreflex/octoreflex/internal/config"
	"github.com/octoreflex/octoreflex/internal/decision"
	"github.com/octoreflex/octoreflex/internal/invariant"
	"github.com/octoreflex/octoreflex/internal/sensitivity"
	"github.com/octoreflex/octoreflex/internal/storage"
)

// inputDoc is the JSON-decodable shape of a DecisionInput file. Kept
// separate from decision.DecisionInput rather than tagging that type
// directly: the decision package takes no dependency on encoding/json or
// any file format; its types carry only MarshalCanonical projections.
// This file is the one place that boundary is crossed.
type inputDoc struct {
	ID        string             `json:"id"`
	Actions   []actionDoc        `json:"actions"`
	States    []stateDoc         `json:"states"`
	Outcomes  []outcomeDoc       `json:"outcomes"`
	Algorithm string             `json:"algorithm"`
	Weights   map[string]float64 `json:"weights"`
	Params    paramsDoc          `json:"params"`
	Strict    bool               `json:"strict"`
	Evidence  map[string]string  `json:"evidence"`
	Metadata  map[string]string  `json:"metadata"`
}

type actionDoc struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type stateDoc struct {
	ID          string   `json:"id"`
	Probability *float64 `json:"probability"`
	Adversarial bool     `json:"adversarial"`
}

type outcomeDoc struct {
	Action  string  `json:"action"`
	State   string  `json:"state"`
	Utility float64 `json:"utility"`
}

type paramsDoc struct {
	Temperature *float64 `json:"temperature"`
	Optimism    *float64 `json:"optimism"`
	Confidence  *float64 `json:"confidence"`
	Epsilon     *float64 `json:"epsilon"`
	Iterations  *int     `json:"iterations"`
}

func (d inputDoc) toDecisionInput() decision.DecisionInput {
	actions := make([]decision.Action, len(d.Actions))
	for i, a := range d.Actions {
		actions[i] = decision.Action{ID: a.ID, Label: a.Label}
	}
	states := make([]decision.State, len(d.States))
	for i, s := range d.States {
		states[i] = decision.State{ID: s.ID, Probability: s.Probability, Adversarial: s.Adversarial}
	}
	outcomes := make([]decision.Outcome, len(d.Outcomes))
	for i, o := range d.Outcomes {
		outcomes[i] = decision.Outcome{Action: o.Action, State: o.State, Utility: o.Utility}
	}
	return decision.DecisionInput{
		ID:        d.ID,
		Actions:   actions,
		States:    states,
		Outcomes:  outcomes,
		Algorithm: decision.Algorithm(d.Algorithm),
		Weights:   d.Weights,
		Params: decision.Params{
			Temperature: d.Params.Temperature,
			Optimism:    d.Params.Optimism,
			Confidence:  d.Params.Confidence,
			Epsilon:     d.Params.Epsilon,
			Iterations:  d.Params.Iterations,
		},
		Strict:   d.Strict,
		Evidence: d.Evidence,
		Metadata: d.Metadata,
	}
}

// outputDoc is the printed shape of a DecisionOutput for a human or a
// downstream script reading stdout. It is ordinary encoding/json output,
// not a canonical wire form — the canonical form is what the protocol
// server's ExecResult carries.
type outputDoc struct {
	Fingerprint   string            `json:"fingerprint"`
	RankedActions []rankedActionDoc `json:"ranked_actions"`
	Trace         *traceDoc         `json:"trace,omitempty"`
	Sensitivity   *sensitivityDoc   `json:"sensitivity,omitempty"`
}

// sensitivityDoc is the printed shape of the adjudication layer above a
// DecisionOutput (system spec §4.E): flip distances, a value-of-information
// ranking, the regret-bounded evidence plan built from it, the current
// decision boundary, and (if -proposal was given) a referee verdict.
type sensitivityDoc struct {
	FlipDistances []flipDistanceDoc `json:"flip_distances"`
	VOIRanking    []voiItemDoc      `json:"voi_ranking"`
	Plan          regretPlanDoc     `json:"regret_bounded_plan"`
	Boundary      boundaryDoc       `json:"decision_boundary"`
	Adjudication  *adjudicationDoc  `json:"adjudication,omitempty"`
}

type flipDistanceDoc struct {
	StateID  string  `json:"state_id"`
	Distance float64 `json:"distance"`
}

type voiItemDoc struct {
	StateID string  `json:"state_id"`
	VOI     float64 `json:"voi"`
	Bucket  string  `json:"bucket"`
}

type regretPlanDoc struct {
	PlanID string       `json:"plan_id"`
	Items  []voiItemDoc `json:"items"`
}

type boundaryDoc struct {
	TopAction    string            `json:"top_action"`
	NearestFlips []flipDistanceDoc `json:"nearest_flips"`
}

type adjudicationDoc struct {
	Accepted        bool             `json:"accepted"`
	Proposal        string           `json:"proposal"`
	ComputedTop     string           `json:"computed_top"`
	WhatWouldChange *flipDistanceDoc `json:"what_would_change,omitempty"`
}

type rankedActionDoc struct {
	ActionID    string  `json:"action_id"`
	WorstCase   float64 `json:"worst_case"`
	MaxRegret   float64 `json:"max_regret"`
	Adversarial float64 `json:"adversarial"`
	Composite   float64 `json:"composite"`
	Rank        int     `json:"rank"`
	Recommended bool    `json:"recommended"`
}

type traceDoc struct {
	Algorithm    string             `json:"algorithm_used"`
	TieBreakRule string             `json:"tie_break_rule"`
	WorstCase    map[string]float64 `json:"worst_case"`
	MaxRegret    map[string]float64 `json:"max_per_state"`
	Adversarial  map[string]float64 `json:"adversarial"`
	Composite    map[string]float64 `json:"composite"`
}

func main() {
	inputPath := flag.String("input", "", "Path to a DecisionInput JSON file (required)")
	ledgerPath := flag.String("ledger", "", "Optional BoltDB path to append the run to")
	withTrace := flag.Bool("trace", false, "Include the decision trace tables in the printed output")
	withSensitivity := flag.Bool("sensitivity", false, "Include flip distances, VOI ranking, and the regret-bounded evidence plan")
	horizon := flag.Int("horizon", 3, "Max number of do_now items to keep in the regret-bounded plan")
	minEVOI := flag.Float64("min-evoi", 0.1, "Minimum expected value of information for the plan/VOI buckets")
	proposal := flag.String("proposal", "", "Optional proposed action id to adjudicate against the computed top action")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "FATAL: -input is required")
		flag.Usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", *inputPath, err)
		os.Exit(1)
	}

	var doc inputDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse %s: %v\n", *inputPath, err)
		os.Exit(1)
	}

	out, err := decision.Evaluate(doc.toDecisionInput())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: evaluation rejected: %v\n", err)
		os.Exit(1)
	}

	printed := toOutputDoc(out, *withTrace)
	if *withSensitivity {
		printed.Sensitivity = buildSensitivityDoc(out, doc.ID, *horizon, *minEVOI, *proposal)
	}

	if *ledgerPath != "" {
		if err := appendToLedger(*ledgerPath, doc, out, printed); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: ledger append failed: %v\n", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(printed); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: encode output: %v\n", err)
		os.Exit(1)
	}
}

func toOutputDoc(out decision.DecisionOutput, withTrace bool) outputDoc {
	ranked := make([]rankedActionDoc, len(out.RankedActions))
	for i, r := range out.RankedActions {
		ranked[i] = rankedActionDoc{
			ActionID:    r.ActionID,
			WorstCase:   r.WorstCase,
			MaxRegret:   r.MaxRegret,
			Adversarial: r.Adversarial,
			Composite:   r.Composite,
			Rank:        r.Rank,
			Recommended: r.Recommended,
		}
	}
	doc := outputDoc{Fingerprint: out.Fingerprint, RankedActions: ranked}
	if withTrace {
		doc.Trace = &traceDoc{
			Algorithm:    string(out.Trace.AlgorithmUsed),
			TieBreakRule: out.Trace.TieBreakRule,
			WorstCase:    out.Trace.WorstCase,
			MaxRegret:    out.Trace.MaxPerState,
			Adversarial:  out.Trace.Adversarial,
			Composite:    out.Trace.Composite,
		}
	}
	return doc
}

// buildSensitivityDoc runs the flip-distance / VOI / regret-bounded-plan /
// decision-boundary pipeline (system spec §4.E) over an already-evaluated
// DecisionOutput. Returns nil when there is no second-ranked action to flip
// against.
func buildSensitivityDoc(out decision.DecisionOutput, inputID string, horizon int, minEVOI float64, proposal string) *sensitivityDoc {
	if len(out.RankedActions) < 2 {
		return nil
	}
	top := out.RankedActions[0].ActionID
	second := out.RankedActions[1].ActionID

	row := out.Trace.Utility[top]
	stateIDs := make([]string, 0, len(row))
	for sid := range row {
		stateIDs = append(stateIDs, sid)
	}
	sort.Strings(stateIDs)

	flips := sensitivity.FlipDistances(out.Trace.Utility, stateIDs, top, second)
	voi := sensitivity.RankVOI(flips, minEVOI)
	plan := sensitivity.BuildRegretBoundedPlan(voi, inputID, horizon, minEVOI)
	boundary := sensitivity.BuildDecisionBoundary(top, flips)

	sd := &sensitivityDoc{
		FlipDistances: toFlipDistanceDocs(flips),
		VOIRanking:    toVOIItemDocs(voi),
		Plan:          regretPlanDoc{PlanID: plan.PlanID, Items: toVOIItemDocs(plan.Items)},
		Boundary:      boundaryDoc{TopAction: boundary.TopAction, NearestFlips: toFlipDistanceDocs(boundary.NearestFlips)},
	}
	if proposal != "" {
		adj := sensitivity.Adjudicate(proposal, top, flips)
		sd.Adjudication = &adjudicationDoc{Accepted: adj.Accepted, Proposal: adj.Proposal, ComputedTop: adj.ComputedTop}
		if adj.WhatWouldChange != nil {
			sd.Adjudication.WhatWouldChange = &flipDistanceDoc{StateID: adj.WhatWouldChange.StateID, Distance: adj.WhatWouldChange.Distance}
		}
	}
	return sd
}

func toFlipDistanceDocs(flips []sensitivity.FlipDistance) []flipDistanceDoc {
	out := make([]flipDistanceDoc, len(flips))
	for i, f := range flips {
		out[i] = flipDistanceDoc{StateID: f.StateID, Distance: f.Distance}
	}
	return out
}

func toVOIItemDocs(items []sensitivity.VOIItem) []voiItemDoc {
	out := make([]voiItemDoc, len(items))
	for i, it := range items {
		out[i] = voiItemDoc{StateID: it.StateID, VOI: it.VOI, Bucket: string(it.Bucket)}
	}
	return out
}

func appendToLedger(path string, doc inputDoc, out decision.DecisionOutput, printed outputDoc) error {
	db, err := storage.Open(path, storage.DefaultRetentionDays)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	outJSON, err := json.Marshal(printed)
	if err != nil {
		return err
	}

	recommended := ""
	if len(out.RankedActions) > 0 {
		recommended = out.RankedActions[0].ActionID
	}

	noteVersionCompatibility(db, out.Fingerprint)

	return db.AppendRun(storage.RunRecord{
		InputID:           doc.ID,
		Fingerprint:       out.Fingerprint,
		Algorithm:         doc.Algorithm,
		RecommendedAction: recommended,
		OutputJSON:        outJSON,
		EngineVersion:     config.Version,
	})
}

// noteVersionCompatibility logs whether a previously recorded run for the
// same fingerprint was produced by a replay-compatible, forward-compatible,
// or incompatible build (invariant.Checker's semver gates, system spec
// §4.F), so a re-run against a different engine build doesn't silently read
// as a fresh observation.
func noteVersionCompatibility(db *storage.DB, fp string) {
	existing, err := db.FindByFingerprint(fp)
	if err != nil || existing == nil || existing.EngineVersion == "" {
		return
	}
	checker := invariant.NewChecker(zap.NewNop())
	switch {
	case checker.PatchReplayCompatible(existing.EngineVersion, config.Version):
		fmt.Fprintf(os.Stderr, "NOTE: fingerprint %s already recorded by a replay-compatible build (%s)\n", fp, existing.EngineVersion)
	case checker.MinorForwardCompatible(existing.EngineVersion, config.Version):
		fmt.Fprintf(os.Stderr, "NOTE: fingerprint %s previously recorded by an older, forward-compatible build (%s)\n", fp, existing.EngineVersion)
	default:
		fmt.Fprintf(os.Stderr, "WARNING: fingerprint %s previously recorded by build %q, not compatible with this build %q\n", fp, existing.EngineVersion, config.Version)
	}
}
