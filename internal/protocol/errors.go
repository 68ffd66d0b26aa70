package protocol

import "fmt"

// ErrorCode is the protocol layer's error taxonomy (system spec §4.H,
// §7): frame-level codes are handled in package wire, these are the
// layer above it.
type ErrorCode uint32

const (
	ErrInvalidMessage     ErrorCode = 100
	ErrUnsupportedVersion ErrorCode = 101
	ErrEncodingError      ErrorCode = 102

	ErrExecFailed  ErrorCode = 200
	ErrExecBudget  ErrorCode = 201
	ErrExecTimeout ErrorCode = 202
	ErrExecPolicy  ErrorCode = 203

	ErrInternal          ErrorCode = 300
	ErrInternalOverload  ErrorCode = 301
	ErrInternalUnknown   ErrorCode = 302
)

// ProtocolError is the tagged error type surfaced by the connection state
// machine and message handlers. Details is a string->string map the
// caller must canonical-sort before it reaches any hash (system spec §9
// "Sorted output everywhere"); ErrorMessage.MarshalCanonical does that via
// canon.Object.
type ProtocolError struct {
	Code          ErrorCode
	Message       string
	Details       map[string]string
	CorrelationID uint32
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %d %s: %s", e.Code, e.Code.String(), e.Message)
}

// String names the error code (system spec §4.H "Error taxonomy").
func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidMessage:
		return "InvalidMessage"
	case ErrUnsupportedVersion:
		return "UnsupportedVersion"
	case ErrEncodingError:
		return "EncodingError"
	case ErrExecFailed:
		return "ExecFailed"
	case ErrExecBudget:
		return "ExecBudget"
	case ErrExecTimeout:
		return "ExecTimeout"
	case ErrExecPolicy:
		return "ExecPolicy"
	case ErrInternal:
		return "Internal"
	case ErrInternalOverload:
		return "InternalOverload"
	case ErrInternalUnknown:
		return "InternalUnknown"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(c))
	}
}
