package protocol

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octoreflex/octoreflex/internal/canon"
	"github.com/octoreflex/octoreflex/internal/decision"
	"github.com/octoreflex/octoreflex/internal/fingerprint"
	"github.com/octoreflex/octoreflex/internal/fixedpoint"
	"github.com/octoreflex/octoreflex/internal/sensitivity"
	"github.com/octoreflex/octoreflex/internal/wire"
)

const (
	readTimeout      = 30 * time.Second
	writeTimeout     = 10 * time.Second
	maxPendingEvents = 64
	recvBufferStart  = 4096
)

// Conn is one accepted connection carried through the handshake and into
// steady-state exec dispatch. Mirrors operator.Server's one-goroutine-per-
// connection shape, generalized from a single-shot request/response to a
// persistent framed session.
type Conn struct {
	raw      net.Conn
	state    *connState
	events   *EventQueue
	boundary *sensitivity.BoundaryTracker
	log      *zap.Logger
	server   *Server
	inbound  []byte
}

func newConn(raw net.Conn, server *Server, log *zap.Logger) *Conn {
	events := NewEventQueue(maxPendingEvents)
	return &Conn{
		raw:      raw,
		state:    newConnState(),
		events:   events,
		boundary: sensitivity.NewBoundaryTracker(eventBoundarySink{events: events}),
		log:      log,
		server:   server,
		inbound:  make([]byte, 0, recvBufferStart),
	}
}

// eventBoundarySink adapts sensitivity.BoundarySink onto a connection's
// outgoing EventQueue, so a decision-boundary change (system spec §4.E)
// surfaces to the client the same way any other in-flight event does.
type eventBoundarySink struct {
	events *EventQueue
}

// Emit implements sensitivity.BoundarySink.
func (s eventBoundarySink) Emit(evt sensitivity.BoundaryChangeEvent) {
	s.events.Push(fmt.Sprintf("boundary_change: top %s -> %s", evt.PreviousTop, evt.NewTop))
}

// Serve runs the connection's read/dispatch loop until the peer closes,
// a fatal protocol error occurs, or ctx is cancelled. Always closes raw on
// return.
func (c *Conn) Serve(ctx context.Context) {
	defer c.raw.Close()
	defer c.server.forget(c)

	go func() {
		<-ctx.Done()
		c.raw.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		_ = c.raw.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := c.raw.Read(buf)
		if n > 0 {
			c.inbound = append(c.inbound, buf[:n]...)
			if !c.drain() {
				return
			}
		}
		if err != nil {
			if c.state.Current() != StateError {
				c.log.Debug("connection read loop ended", zap.Error(err))
			}
			return
		}
	}
}

// drain decodes and dispatches every complete frame currently buffered.
// Returns false if the connection should be torn down.
func (c *Conn) drain() bool {
	for {
		f, consumed, err := wire.DecodeResync(c.inbound)
		switch err {
		case nil:
			c.inbound = c.inbound[consumed:]
			if !c.handleFrame(f) {
				return false
			}
		case wire.ErrNeedMoreData:
			c.inbound = c.inbound[consumed:]
			return true
		case wire.ErrBufferCleared:
			c.inbound = c.inbound[:0]
			c.log.Warn("connection buffer cleared after failed resync")
			return true
		default:
			c.log.Warn("fatal frame decode error", zap.Error(err))
			c.state.Fail()
			c.writeError(0, ErrInvalidMessage, err.Error())
			return false
		}
	}
}

func (c *Conn) handleFrame(f wire.Frame) bool {
	switch MessageType(f.Type) {
	case MsgHello:
		return c.handleHello(f)
	case MsgHeartbeat:
		return c.writeFrame(MsgHeartbeat, f.CorrelationID, Heartbeat{SessionID: c.state.SessionID()})
	case MsgExecRequest:
		return c.handleExecRequest(f)
	case MsgHealthRequest:
		return c.handleHealthRequest(f)
	default:
		c.writeError(f.CorrelationID, ErrInvalidMessage, "unexpected message type in current state")
		return c.state.Current() != StateError
	}
}

func (c *Conn) handleHello(f wire.Frame) bool {
	if !c.state.BeginNegotiation() {
		c.writeError(f.CorrelationID, ErrInvalidMessage, "hello received outside Disconnected state")
		return true
	}
	var hello Hello
	if err := DecodeInto(f, &hello); err != nil {
		c.state.Fail()
		c.writeError(f.CorrelationID, ErrEncodingError, err.Error())
		return false
	}

	sessionID := uuid.NewString()
	ack, protoErr := Negotiate(hello, sessionID, c.server.engineVersion, c.server.contractVersion, c.server.schemaHash, c.server.storageVersion, c.server.checker, c.log)
	if protoErr != nil {
		c.state.Fail()
		c.writeError(f.CorrelationID, protoErr.Code, protoErr.Message)
		return false
	}
	c.state.CompleteNegotiation(sessionID, ack.SelectedMajor, ack.SelectedMinor)
	c.server.remember(sessionID, c)
	return c.writeFrame(MsgHelloAck, f.CorrelationID, ack)
}

func (c *Conn) handleExecRequest(f wire.Frame) bool {
	if c.state.Current() != StateReady {
		c.writeError(f.CorrelationID, ErrInvalidMessage, "exec requested before handshake completed")
		return true
	}
	var req ExecRequest
	if err := DecodeInto(f, &req); err != nil {
		c.writeError(f.CorrelationID, ErrEncodingError, err.Error())
		return true
	}

	var input decision.DecisionInput
	if err := cborUnmarshal(req.InputPayload, &input); err != nil {
		c.writeError(f.CorrelationID, ErrInvalidMessage, err.Error())
		return true
	}

	if req.InputHash != "" {
		computed := string(fingerprint.OfCanonicalizer(input))
		if verr := c.server.checker.ContentEqual(req.InputHash, computed); verr != nil {
			c.writeError(f.CorrelationID, ErrInvalidMessage, "input_hash does not match payload content: "+verr.Error())
			return true
		}
	}

	start := time.Now()
	out, err := decision.Evaluate(input)
	elapsed := time.Since(start)

	if err != nil {
		events := append(c.events.Drain(maxPendingEvents), "evaluation failed: "+err.Error())
		result := ExecResult{
			SessionID:     c.state.SessionID(),
			CorrelationID: f.CorrelationID,
			Status:        ExecStatusFailed,
			Events:        events,
			Metrics:       fixedpoint.Metrics{EvalLatency: fixedpoint.Microseconds(elapsed.Microseconds())},
		}
		return c.writeFrame(MsgExecResult, f.CorrelationID, result)
	}

	top, second, topComposite, secondComposite := rankedTopTwo(out)
	metrics := c.computeMetrics(elapsed, out, top, second, topComposite, secondComposite)

	result := ExecResult{
		SessionID:     c.state.SessionID(),
		CorrelationID: f.CorrelationID,
		Status:        ExecStatusOK,
		ResultDigest:  string(resultDigest(input, c.state.SessionID(), f.CorrelationID)),
		FinalAction:   top,
		Events:        c.events.Drain(maxPendingEvents),
		Metrics:       metrics,
	}
	return c.writeFrame(MsgExecResult, f.CorrelationID, result)
}

// rankedTopTwo extracts the top and (if present) second-ranked action ids
// and their composite scores from an already-ranked DecisionOutput.
func rankedTopTwo(out decision.DecisionOutput) (top, second string, topComposite, secondComposite float64) {
	if len(out.RankedActions) > 0 {
		top = out.RankedActions[0].ActionID
		topComposite = out.RankedActions[0].Composite
	}
	if len(out.RankedActions) > 1 {
		second = out.RankedActions[1].ActionID
		secondComposite = out.RankedActions[1].Composite
	}
	return top, second, topComposite, secondComposite
}

// computeMetrics builds the fixedpoint.Metrics for a successful evaluation:
// wall-clock latency and derived throughput, the winning action's composite
// confidence, the top-vs-second composite margin, and a stability index
// from the nearest sensitivity.FlipDistance — updating this connection's
// decision-boundary tracker along the way (system spec §4.E, §4.H).
func (c *Conn) computeMetrics(elapsed time.Duration, out decision.DecisionOutput, top, second string, topComposite, secondComposite float64) fixedpoint.Metrics {
	latencyUS := elapsed.Microseconds()
	if latencyUS <= 0 {
		latencyUS = 1
	}
	throughput, _ := fixedpoint.MicroOpsPerSecond(1_000_000_000_000 / latencyUS)
	confidence, _ := fixedpoint.PpmFromFraction(topComposite)
	margin, _ := fixedpoint.BpsFromPercent((topComposite - secondComposite) * 100)

	var stability fixedpoint.Q32_32
	if second != "" {
		row := out.Trace.Utility[top]
		stateIDs := make([]string, 0, len(row))
		for sid := range row {
			stateIDs = append(stateIDs, sid)
		}
		sort.Strings(stateIDs)

		flips := sensitivity.FlipDistances(out.Trace.Utility, stateIDs, top, second)
		if len(flips) > 0 {
			stability, _ = fixedpoint.Q32_32FromFloat(flips[0].Distance)
			c.boundary.Update(sensitivity.BuildDecisionBoundary(top, flips))
		}
	}

	return fixedpoint.Metrics{
		EvalLatency:         fixedpoint.Microseconds(latencyUS),
		ThroughputOps:       throughput,
		CompositeConfidence: confidence,
		MarginBps:           margin,
		StabilityIndex:      stability,
	}
}

// resultDigest is the wire-layer content address of an exec result: a
// BLAKE3 ContentHash over the canonical bytes of the run id and sorted-key
// metadata (system spec §4.H), distinct from DecisionOutput.Fingerprint's
// SHA-256 identity over the full input.
func resultDigest(input decision.DecisionInput, sessionID string, correlationID uint32) fingerprint.ContentHash {
	runID := input.ID
	if runID == "" {
		runID = sessionID + ":" + strconv.FormatUint(uint64(correlationID), 10)
	}
	metadata := make(map[string]canon.Value, len(input.Metadata))
	for k, v := range input.Metadata {
		metadata[k] = canon.String(v)
	}
	return fingerprint.ContentHashOfValue(canon.Object(map[string]canon.Value{
		"run_id":   canon.String(runID),
		"metadata": canon.Object(metadata),
	}))
}

func (c *Conn) handleHealthRequest(f wire.Frame) bool {
	health := HealthResult{
		SessionID:      c.state.SessionID(),
		Ready:          c.state.Current() == StateReady,
		ActiveSessions: int64(c.server.sessionCount()),
		QueueDepth:     int64(c.events.Len()),
	}
	return c.writeFrame(MsgHealthResult, f.CorrelationID, health)
}

func (c *Conn) writeFrame(msgType MessageType, correlationID uint32, body interface{}) bool {
	frame, err := EncodeMessage(msgType, correlationID, body)
	if err != nil {
		c.log.Error("failed to encode outgoing frame", zap.Error(err))
		return false
	}
	encoded, err := wire.Encode(frame)
	if err != nil {
		c.log.Error("failed to serialize outgoing frame", zap.Error(err))
		return false
	}
	_ = c.raw.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err = c.raw.Write(encoded)
	if err != nil {
		c.log.Debug("write failed", zap.Error(err))
		return false
	}
	return true
}

func (c *Conn) writeError(correlationID uint32, code ErrorCode, message string) {
	c.writeFrame(MsgError, correlationID, ErrorMessage{Code: code, Message: message, CorrelationID: correlationID})
}
