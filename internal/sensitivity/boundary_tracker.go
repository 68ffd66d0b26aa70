package sensitivity

import "sync"

// BoundaryChangeEvent is emitted when the tracked decision boundary's top
// action changes. Grounded on gossip.Quorum's UpdatePeerReachability:
// recompute an effective value from live inputs and emit an event only on
// an observed change, not on every update.
type BoundaryChangeEvent struct {
	PreviousTop string
	NewTop      string
	Boundary    DecisionBoundary
}

// BoundarySink receives BoundaryChangeEvents. Implementations must be
// non-blocking.
type BoundarySink interface {
	Emit(BoundaryChangeEvent)
}

// ChannelBoundarySink is a non-blocking BoundarySink backed by a channel;
// events are dropped (and Dropped incremented) if the channel is full.
type ChannelBoundarySink struct {
	mu      sync.Mutex
	C       chan BoundaryChangeEvent
	Dropped uint64
}

// Emit implements BoundarySink.
func (s *ChannelBoundarySink) Emit(evt BoundaryChangeEvent) {
	select {
	case s.C <- evt:
	default:
		s.mu.Lock()
		s.Dropped++
		s.mu.Unlock()
	}
}

// BoundaryTracker holds the most recently observed decision boundary for a
// session and reports whether a newly computed boundary represents a
// change in the recommended action, emitting an event only when it does.
type BoundaryTracker struct {
	mu       sync.Mutex
	current  DecisionBoundary
	hasValue bool
	sink     BoundarySink
}

// NewBoundaryTracker constructs a tracker. sink may be nil, in which case
// change events are discarded.
func NewBoundaryTracker(sink BoundarySink) *BoundaryTracker {
	return &BoundaryTracker{sink: sink}
}

// Update records a newly computed boundary and emits a BoundaryChangeEvent
// through the sink iff the top action differs from the previously
// recorded one.
func (t *BoundaryTracker) Update(b DecisionBoundary) {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous := t.current
	changed := !t.hasValue || previous.TopAction != b.TopAction
	t.current = b
	t.hasValue = true

	if changed && t.sink != nil {
		t.sink.Emit(BoundaryChangeEvent{
			PreviousTop: previous.TopAction,
			NewTop:      b.TopAction,
			Boundary:    b,
		})
	}
}

// Current returns the most recently recorded boundary and whether one has
// been recorded yet.
func (t *BoundaryTracker) Current() (DecisionBoundary, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.hasValue
}
