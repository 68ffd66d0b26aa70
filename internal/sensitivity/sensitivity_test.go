package sensitivity

import "testing"

func testUtility() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"action_a": {"good": 100, "bad": 20},
		"action_b": {"good": 60, "bad": 60},
	}
}

func TestFlipDistances_SortedAscending(t *testing.T) {
	fd := FlipDistances(testUtility(), []string{"good", "bad"}, "action_b", "action_a")
	if len(fd) != 2 {
		t.Fatalf("expected 2 flip distances, got %d", len(fd))
	}
	if fd[0].Distance > fd[1].Distance {
		t.Fatalf("expected ascending order, got %+v", fd)
	}
	if fd[0].Distance != 40 || fd[0].StateID != "bad" {
		t.Fatalf("expected a 40/40 tie broken toward the smaller state id (bad), got %+v", fd)
	}
}

func TestRankVOI_Buckets(t *testing.T) {
	distances := []FlipDistance{{StateID: "near", Distance: 0}, {StateID: "far", Distance: 1000}}
	items := RankVOI(distances, 0.1)
	if items[0].Bucket != BucketDoNow {
		t.Fatalf("zero-distance item should be do_now, got %s", items[0].Bucket)
	}
	if items[len(items)-1].Bucket != BucketDefer {
		t.Fatalf("very large distance item should be defer, got %s", items[len(items)-1].Bucket)
	}
}

func TestBuildRegretBoundedPlan_RespectsHorizon(t *testing.T) {
	items := []VOIItem{
		{StateID: "s1", VOI: 0.9, Bucket: BucketDoNow},
		{StateID: "s2", VOI: 0.8, Bucket: BucketDoNow},
		{StateID: "s3", VOI: 0.2, Bucket: BucketDefer},
	}
	plan := BuildRegretBoundedPlan(items, "input-1", 1, 0.1)
	if len(plan.Items) != 1 {
		t.Fatalf("expected horizon to cap plan at 1 item, got %d", len(plan.Items))
	}
	if plan.PlanID == "" {
		t.Fatalf("expected a non-empty plan id")
	}
}

func TestAdjudicate_AcceptsMatchingProposal(t *testing.T) {
	verdict := Adjudicate("action_b", "action_b", nil)
	if !verdict.Accepted {
		t.Fatalf("matching proposal should be accepted")
	}
	if verdict.WhatWouldChange != nil {
		t.Fatalf("accepted proposal should not report what-would-change")
	}
}

func TestAdjudicate_RejectsMismatchedProposal(t *testing.T) {
	distances := []FlipDistance{{StateID: "bad", Distance: 40}}
	verdict := Adjudicate("action_a", "action_b", distances)
	if verdict.Accepted {
		t.Fatalf("mismatched proposal should be rejected")
	}
	if verdict.WhatWouldChange == nil || verdict.WhatWouldChange.StateID != "bad" {
		t.Fatalf("expected nearest flip to be reported, got %+v", verdict.WhatWouldChange)
	}
}

func TestBoundaryTracker_EmitsOnlyOnChange(t *testing.T) {
	sink := &ChannelBoundarySink{C: make(chan BoundaryChangeEvent, 4)}
	tracker := NewBoundaryTracker(sink)

	tracker.Update(DecisionBoundary{TopAction: "action_b"})
	tracker.Update(DecisionBoundary{TopAction: "action_b"})
	tracker.Update(DecisionBoundary{TopAction: "action_a"})

	close(sink.C)
	var events []BoundaryChangeEvent
	for evt := range sink.C {
		events = append(events, evt)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 change events (initial + actual change), got %d", len(events))
	}
}
