// Package wire implements the streaming core's binary frame codec (system
// spec §4.G): a 24-byte little-endian header, a variable-length payload,
// and a 4-byte CRC32C trailer.
//
// Grounded on bpf.KernelEvent's fixed-layout little-endian decode style
// (explicit field-by-field encoding/binary reads, a size check before any
// field access) generalized from a fixed 24-byte kernel event to a
// 24-byte header plus variable payload plus trailer.
package wire

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Magic is the fixed 4-byte frame prefix, the uint32 0x52454348 (ASCII
// "RECH" read big-endian). It is written little-endian like every header
// field, so the first four bytes on the wire are "HCER".
const Magic uint32 = 0x52454348

const (
	HeaderSize  = 24
	TrailerSize = 4

	// MaxPayloadSize is the hard limit on a single frame's payload.
	MaxPayloadSize = 64 * 1024 * 1024
	// MaxPreallocSize is a 1 MiB bound for preallocating a receive buffer
	// from an untrusted declared payload length (system spec §4.G
	// "Limits", §9 "Large untrusted inputs"). Nothing in this repository
	// reads it: internal/protocol's receive buffer starts at 4 KiB and
	// grows only as bytes actually arrive. Decode
	// itself never allocates on the strength of the declared length alone
	// — it only allocates the payload once the full frame is already
	// present in buf.
	MaxPreallocSize = 1 * 1024 * 1024
)

// MessageType enumerates the wire protocol's message kinds (system spec
// §4.G).
type MessageType uint32

const (
	MessageHeartbeat     MessageType = 0x00
	MessageHello         MessageType = 0x01
	MessageHelloAck      MessageType = 0x02
	MessageExecRequest   MessageType = 0x10
	MessageExecResult    MessageType = 0x11
	MessageHealthRequest MessageType = 0x20
	MessageHealthResult  MessageType = 0x21
	MessageError         MessageType = 0xFF
)

// Valid reports whether t is one of the enumerated message types. Every
// other value is rejected at decode time.
func (t MessageType) Valid() bool {
	switch t {
	case MessageHeartbeat, MessageHello, MessageHelloAck,
		MessageExecRequest, MessageExecResult,
		MessageHealthRequest, MessageHealthResult, MessageError:
		return true
	default:
		return false
	}
}

// Flags is the frame header's bitfield (system spec §4.G).
type Flags uint32

const (
	FlagCompressed  Flags = 1 << 0
	FlagEndOfStream Flags = 1 << 1
	FlagCorrelated  Flags = 1 << 2
)

// Frame is one decoded wire message, header fields plus payload.
type Frame struct {
	VersionMajor  uint16
	VersionMinor  uint16
	Type          MessageType
	Flags         Flags
	CorrelationID uint32
	Payload       []byte
}

// FrameError is the tagged decode-failure type (system spec §4.G error
// names, §7 "frame errors").
type FrameError string

const (
	ErrNeedMoreData     FrameError = "NeedMoreData"
	ErrInvalidMagic     FrameError = "InvalidMagic"
	ErrUnknownMessage   FrameError = "UnknownMessageType"
	ErrPayloadTooLarge  FrameError = "PayloadTooLarge"
	ErrCrcMismatch      FrameError = "CrcMismatch"
	ErrBufferCleared    FrameError = "BufferCleared"
)

func (e FrameError) Error() string { return string(e) }

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Encode serializes f into header + payload + CRC32C trailer. Returns an
// error if the payload exceeds MaxPayloadSize.
func Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("wire: %w: payload length %d exceeds %d", ErrPayloadTooLarge, len(f.Payload), MaxPayloadSize)
	}
	if !f.Type.Valid() {
		return nil, fmt.Errorf("wire: %w: message type 0x%x", ErrUnknownMessage, uint32(f.Type))
	}

	buf := make([]byte, HeaderSize+len(f.Payload)+TrailerSize)
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], f.VersionMajor)
	binary.LittleEndian.PutUint16(buf[6:8], f.VersionMinor)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(f.Type))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(f.Flags))
	binary.LittleEndian.PutUint32(buf[16:20], f.CorrelationID)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(f.Payload)))
	copy(buf[HeaderSize:], f.Payload)

	crc := crc32.Checksum(buf[:HeaderSize+len(f.Payload)], crcTable)
	binary.LittleEndian.PutUint32(buf[HeaderSize+len(f.Payload):], crc)
	return buf, nil
}

// Decode attempts to decode exactly one frame from the front of buf. It
// returns the frame, the number of bytes consumed from buf, and an error.
// ErrNeedMoreData means buf does not yet hold a complete frame and no
// bytes were consumed; the caller should append more data and retry.
// Any other error means buf's prefix does not parse as a valid frame at
// all — see DecodeResync for the resilient scanning behavior built on
// top of this.
func Decode(buf []byte) (Frame, int, error) {
	if len(buf) < HeaderSize {
		return Frame{}, 0, ErrNeedMoreData
	}

	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != Magic {
		return Frame{}, 0, ErrInvalidMagic
	}

	msgType := MessageType(binary.LittleEndian.Uint32(buf[8:12]))
	if !msgType.Valid() {
		return Frame{}, 0, ErrUnknownMessage
	}

	payloadLen := binary.LittleEndian.Uint32(buf[20:24])
	if payloadLen > MaxPayloadSize {
		return Frame{}, 0, ErrPayloadTooLarge
	}

	total := HeaderSize + int(payloadLen) + TrailerSize
	if len(buf) < total {
		return Frame{}, 0, ErrNeedMoreData
	}

	if crc32.Checksum(buf[:HeaderSize+int(payloadLen)], crcTable) != binary.LittleEndian.Uint32(buf[HeaderSize+int(payloadLen):total]) {
		return Frame{}, 0, ErrCrcMismatch
	}

	payload := make([]byte, payloadLen)
	copy(payload, buf[HeaderSize:HeaderSize+int(payloadLen)])

	f := Frame{
		VersionMajor:  binary.LittleEndian.Uint16(buf[4:6]),
		VersionMinor:  binary.LittleEndian.Uint16(buf[6:8]),
		Type:          msgType,
		Flags:         Flags(binary.LittleEndian.Uint32(buf[12:16])),
		CorrelationID: binary.LittleEndian.Uint32(buf[16:20]),
		Payload:       payload,
	}
	return f, total, nil
}
