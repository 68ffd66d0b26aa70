package decision

import "testing"

func twoByTwoInput(algo Algorithm) DecisionInput {
	return DecisionInput{
		ID: "s1",
		Actions: []Action{
			{ID: "action_a"},
			{ID: "action_b"},
		},
		States: []State{
			{ID: "good"},
			{ID: "bad"},
		},
		Outcomes: []Outcome{
			{Action: "action_a", State: "good", Utility: 100},
			{Action: "action_a", State: "bad", Utility: 20},
			{Action: "action_b", State: "good", Utility: 60},
			{Action: "action_b", State: "bad", Utility: 60},
		},
		Algorithm: algo,
	}
}

// TestEvaluate_Maximin_PicksSaferAction covers system spec scenario S1.
func TestEvaluate_Maximin_PicksSaferAction(t *testing.T) {
	out, err := Evaluate(twoByTwoInput(AlgorithmMaximin))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.RankedActions[0].ActionID; got != "action_b" {
		t.Fatalf("expected action_b to rank first, got %s", got)
	}
	if out.RankedActions[0].WorstCase != 60 || out.RankedActions[1].WorstCase != 20 {
		t.Fatalf("unexpected worst-case values: %+v", out.RankedActions)
	}
	if !out.RankedActions[0].Recommended || out.RankedActions[1].Recommended {
		t.Fatalf("recommended flag should be set on rank 1 only")
	}
}

// TestEvaluate_MinimaxRegret_TieBreaksOnID covers system spec scenario S2.
func TestEvaluate_MinimaxRegret_TieBreaksOnID(t *testing.T) {
	out, err := Evaluate(twoByTwoInput(AlgorithmSavage))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.RankedActions[0].MaxRegret != 40 || out.RankedActions[1].MaxRegret != 40 {
		t.Fatalf("expected a 40/40 max-regret tie, got %+v", out.RankedActions)
	}
	if got := out.RankedActions[0].ActionID; got != "action_a" {
		t.Fatalf("tie-break should favor action_a (smaller id), got %s", got)
	}
}

// TestEvaluate_AdversarialFlag_ChangesAnswer covers system spec scenario S3.
func TestEvaluate_AdversarialFlag_ChangesAnswer(t *testing.T) {
	in := twoByTwoInput(AlgorithmMaximin)
	in.States = []State{
		{ID: "good", Adversarial: true},
		{ID: "bad", Adversarial: false},
	}
	_, err := Evaluate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matrix := NewPayoffMatrix(in.Outcomes)
	tables := buildTables(matrix, in.Actions, in.States)
	if tables.A["action_a"] != 100 {
		t.Fatalf("expected adversarial worst-case for action_a to be 100, got %v", tables.A["action_a"])
	}
	if tables.A["action_b"] != 60 {
		t.Fatalf("expected adversarial worst-case for action_b to be 60, got %v", tables.A["action_b"])
	}
}

// TestEvaluate_FloatNoise_DoesNotChangeFingerprint covers system spec
// scenario S4 and property P2.
func TestEvaluate_FloatNoise_DoesNotChangeFingerprint(t *testing.T) {
	base := DecisionInput{
		ID:        "s4",
		Actions:   []Action{{ID: "action_a"}},
		States:    []State{{ID: "only"}},
		Algorithm: AlgorithmMaximin,
	}
	a := base
	a.Outcomes = []Outcome{{Action: "action_a", State: "only", Utility: 0.3}}
	b := base
	b.Outcomes = []Outcome{{Action: "action_a", State: "only", Utility: 0.1 + 0.2}}

	outA, err := Evaluate(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outB, err := Evaluate(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outA.Fingerprint != outB.Fingerprint {
		t.Fatalf("fingerprints should match under float noise: %s != %s", outA.Fingerprint, outB.Fingerprint)
	}
}

func TestEvaluate_MissingOutcome_ReturnsDomainError(t *testing.T) {
	in := DecisionInput{
		Actions:   []Action{{ID: "a"}},
		States:    []State{{ID: "s1"}, {ID: "s2"}},
		Outcomes:  []Outcome{{Action: "a", State: "s1", Utility: 1}},
		Algorithm: AlgorithmMaximin,
	}
	_, err := Evaluate(in)
	de, ok := err.(*DomainError)
	if !ok {
		t.Fatalf("expected *DomainError, got %T (%v)", err, err)
	}
	if de.Code != ErrMissingOutcome {
		t.Fatalf("expected ErrMissingOutcome, got %s", de.Code)
	}
}

func TestEvaluate_Pareto_FrontierExcludesDominated(t *testing.T) {
	in := DecisionInput{
		Actions: []Action{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		States:  []State{{ID: "s1"}, {ID: "s2"}},
		Outcomes: []Outcome{
			{Action: "a", State: "s1", Utility: 5},
			{Action: "a", State: "s2", Utility: 5},
			{Action: "b", State: "s1", Utility: 10},
			{Action: "b", State: "s2", Utility: 10},
			{Action: "c", State: "s1", Utility: 1},
			{Action: "c", State: "s2", Utility: 20},
		},
		Algorithm: AlgorithmPareto,
	}
	out, err := Evaluate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ranks := map[string]int{}
	for _, r := range out.RankedActions {
		ranks[r.ActionID] = r.Rank
	}
	if ranks["a"] <= ranks["b"] {
		t.Fatalf("a is dominated by b on every state, so a must not outrank b: %+v", ranks)
	}
}

func TestEvaluate_BrownRobinson_RequiresIterations(t *testing.T) {
	in := twoByTwoInput(AlgorithmBrownRobinson)
	_, err := Evaluate(in)
	de, ok := err.(*DomainError)
	if !ok || de.Code != ErrInvalidParams {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}
