package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/octoreflex/octoreflex/internal/wire"
)

// EncodeMessage CBOR-encodes a message body and wraps it in a wire.Frame.
func EncodeMessage(msgType MessageType, correlationID uint32, body interface{}) (wire.Frame, error) {
	payload, err := cbor.Marshal(body)
	if err != nil {
		return wire.Frame{}, fmt.Errorf("protocol: cbor encode message type %d: %w", msgType, err)
	}
	return wire.Frame{
		VersionMajor:  1,
		VersionMinor:  1,
		Type:          wire.MessageType(msgType),
		CorrelationID: correlationID,
		Payload:       payload,
	}, nil
}

// DecodeInto CBOR-decodes a frame's payload into dst, which must be a
// pointer to one of this package's message types.
func DecodeInto(f wire.Frame, dst interface{}) error {
	if err := cbor.Unmarshal(f.Payload, dst); err != nil {
		return fmt.Errorf("protocol: cbor decode message type %d: %w", f.Type, err)
	}
	return nil
}

// cborUnmarshal decodes a raw CBOR-encoded ExecRequest.InputPayload into
// dst (typically a *decision.DecisionInput at the call site), kept
// separate from DecodeInto because the payload here is an opaque inner
// blob, not a frame.
func cborUnmarshal(payload []byte, dst interface{}) error {
	if err := cbor.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("protocol: cbor decode exec request payload: %w", err)
	}
	return nil
}
