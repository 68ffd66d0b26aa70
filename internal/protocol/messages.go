package protocol

import (
	"github.com/octoreflex/octoreflex/internal/canon"
	"github.com/octoreflex/octoreflex/internal/fixedpoint"
)

// MessageType mirrors wire.MessageType but is redeclared here so callers
// of this package never need to import wire directly for dispatch
// switches. Values must stay numerically identical to wire's.
type MessageType = uint32

const (
	MsgHeartbeat     MessageType = 0x00
	MsgHello         MessageType = 0x01
	MsgHelloAck      MessageType = 0x02
	MsgExecRequest   MessageType = 0x10
	MsgExecResult    MessageType = 0x11
	MsgHealthRequest MessageType = 0x20
	MsgHealthResult  MessageType = 0x21
	MsgError         MessageType = 0xFF
)

// VersionRange is an inclusive [Min, Max] version pair a peer declares it
// can speak.
type VersionRange struct {
	MinMajor uint16
	MinMinor uint16
	MaxMajor uint16
	MaxMinor uint16
}

func (vr VersionRange) marshalCanonical() canon.Value {
	return canon.Object(map[string]canon.Value{
		"min_major": canon.Int(int64(vr.MinMajor)),
		"min_minor": canon.Int(int64(vr.MinMinor)),
		"max_major": canon.Int(int64(vr.MaxMajor)),
		"max_minor": canon.Int(int64(vr.MaxMinor)),
	})
}

// Hello is the client's opening handshake message.
type Hello struct {
	ClientName    string
	ClientVersion string
	Versions      VersionRange
	Capabilities  Capability
	PreferredEnc  string // "cbor" or "json"; server may override in HelloAck
}

// MarshalCanonical implements canon.Canonicalizer.
func (h Hello) MarshalCanonical() canon.Value {
	return canon.Object(map[string]canon.Value{
		"client_name":    canon.String(h.ClientName),
		"client_version": canon.String(h.ClientVersion),
		"versions":       h.Versions.marshalCanonical(),
		"capabilities":   canon.Int(int64(h.Capabilities)),
		"preferred_enc":  canon.String(h.PreferredEnc),
	})
}

// HelloAck is the server's handshake reply.
type HelloAck struct {
	SessionID       string
	SelectedMajor   uint16
	SelectedMinor   uint16
	Capabilities    Capability
	EngineVersion   string
	ContractVersion string
	SchemaHash      string
	StorageVersion  string
}

// MarshalCanonical implements canon.Canonicalizer.
func (h HelloAck) MarshalCanonical() canon.Value {
	return canon.Object(map[string]canon.Value{
		"session_id":       canon.String(h.SessionID),
		"selected_major":   canon.Int(int64(h.SelectedMajor)),
		"selected_minor":   canon.Int(int64(h.SelectedMinor)),
		"capabilities":     canon.Int(int64(h.Capabilities)),
		"engine_version":   canon.String(h.EngineVersion),
		"contract_version": canon.String(h.ContractVersion),
		"schema_hash":      canon.String(h.SchemaHash),
		"storage_version":  canon.String(h.StorageVersion),
	})
}

// ExecRequest asks the server to evaluate a decision input. InputPayload
// is the CBOR-encoded decision input, carried here as opaque bytes;
// conn.go decodes and evaluates it and is the file of this package that
// imports decision (decision imports nothing from protocol).
type ExecRequest struct {
	SessionID     string
	CorrelationID uint32
	InputPayload  []byte
	InputHash     string
}

// MarshalCanonical implements canon.Canonicalizer.
func (r ExecRequest) MarshalCanonical() canon.Value {
	return canon.Object(map[string]canon.Value{
		"session_id":     canon.String(r.SessionID),
		"correlation_id": canon.Int(int64(r.CorrelationID)),
		"input_hash":     canon.String(r.InputHash),
	})
}

// ExecStatus is the outcome of an ExecRequest.
type ExecStatus string

const (
	ExecStatusOK     ExecStatus = "ok"
	ExecStatusFailed ExecStatus = "failed"
)

// ExecResult carries the evaluated decision back to the client. Events is
// a short trail of canonical event descriptions (e.g. boundary-change
// notifications raised while this request was in flight); FinalAction is
// the recommended action id after tie-break and any override.
type ExecResult struct {
	SessionID     string
	CorrelationID uint32
	Status        ExecStatus
	ResultDigest  string
	FinalAction   string
	Events        []string
	Metrics       fixedpoint.Metrics
}

// MarshalCanonical implements canon.Canonicalizer.
func (r ExecResult) MarshalCanonical() canon.Value {
	events := make([]canon.Value, 0, len(r.Events))
	for _, e := range r.Events {
		events = append(events, canon.String(e))
	}
	return canon.Object(map[string]canon.Value{
		"session_id":     canon.String(r.SessionID),
		"correlation_id": canon.Int(int64(r.CorrelationID)),
		"status":         canon.String(string(r.Status)),
		"result_digest":  canon.String(r.ResultDigest),
		"final_action":   canon.String(r.FinalAction),
		"events":         canon.Array(events...),
		"metrics": canon.Object(map[string]canon.Value{
			"eval_latency_us":      canon.Int(r.Metrics.EvalLatency.ToRaw()),
			"throughput_ops":       canon.Int(int64(r.Metrics.ThroughputOps.ToRaw())),
			"composite_confidence": canon.Int(int64(r.Metrics.CompositeConfidence.ToRaw())),
			"margin_bps":           canon.Int(int64(r.Metrics.MarginBps.ToRaw())),
			"stability_index":      canon.Int(r.Metrics.StabilityIndex.ToRaw()),
		}),
	})
}

// HealthRequest asks the server to report its liveness and load.
type HealthRequest struct {
	SessionID string
}

// MarshalCanonical implements canon.Canonicalizer.
func (h HealthRequest) MarshalCanonical() canon.Value {
	return canon.Object(map[string]canon.Value{"session_id": canon.String(h.SessionID)})
}

// HealthResult reports server liveness.
type HealthResult struct {
	SessionID      string
	Ready          bool
	ActiveSessions int64
	QueueDepth     int64
}

// MarshalCanonical implements canon.Canonicalizer.
func (h HealthResult) MarshalCanonical() canon.Value {
	return canon.Object(map[string]canon.Value{
		"session_id":      canon.String(h.SessionID),
		"ready":           canon.Bool(h.Ready),
		"active_sessions": canon.Int(h.ActiveSessions),
		"queue_depth":     canon.Int(h.QueueDepth),
	})
}

// ErrorMessage is the wire form of a ProtocolError.
type ErrorMessage struct {
	Code          ErrorCode
	Message       string
	Details       map[string]string
	CorrelationID uint32
}

// MarshalCanonical implements canon.Canonicalizer.
func (e ErrorMessage) MarshalCanonical() canon.Value {
	details := make(map[string]canon.Value, len(e.Details))
	for k, v := range e.Details {
		details[k] = canon.String(v)
	}
	return canon.Object(map[string]canon.Value{
		"code":           canon.Int(int64(e.Code)),
		"message":        canon.String(e.Message),
		"details":        canon.Object(details),
		"correlation_id": canon.Int(int64(e.CorrelationID)),
	})
}

// AsProtocolError converts an ErrorMessage back into a *ProtocolError for
// Go-side error handling.
func (e ErrorMessage) AsProtocolError() *ProtocolError {
	return &ProtocolError{
		Code:          e.Code,
		Message:       e.Message,
		Details:       e.Details,
		CorrelationID: e.CorrelationID,
	}
}

// Heartbeat's payload is the sender's session id; conn.go answers each
// received heartbeat with one carrying its own session id.
type Heartbeat struct {
	SessionID string
}

// MarshalCanonical implements canon.Canonicalizer.
func (h Heartbeat) MarshalCanonical() canon.Value {
	return canon.Object(map[string]canon.Value{"session_id": canon.String(h.SessionID)})
}
