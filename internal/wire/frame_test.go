package wire

import "testing"

func sampleFrame() Frame {
	return Frame{
		VersionMajor:  1,
		VersionMinor:  0,
		Type:          MessageHello,
		Flags:         0,
		CorrelationID: 42,
		Payload:       []byte("hello payload"),
	}
}

// TestEncodeDecode_RoundTrip covers system spec property P6 and scenario S5.
func TestEncodeDecode_RoundTrip(t *testing.T) {
	f := sampleFrame()
	encoded, err := Encode(f)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	decoded, consumed, err := Decode(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if consumed != len(encoded) {
		t.Fatalf("expected to consume all %d bytes, consumed %d", len(encoded), consumed)
	}
	if decoded.Type != f.Type || decoded.CorrelationID != f.CorrelationID || string(decoded.Payload) != string(f.Payload) {
		t.Fatalf("round trip mismatch: got %+v", decoded)
	}
}

// TestDecode_BitMutationCausesCrcMismatch covers property P6's second half.
func TestDecode_BitMutationCausesCrcMismatch(t *testing.T) {
	encoded, err := Encode(sampleFrame())
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	encoded[HeaderSize] ^= 0x01 // flip one bit inside the payload
	_, _, err = Decode(encoded)
	if err != ErrCrcMismatch {
		t.Fatalf("expected ErrCrcMismatch, got %v", err)
	}
}

func TestDecode_NeedsMoreData(t *testing.T) {
	encoded, _ := Encode(sampleFrame())
	_, consumed, err := Decode(encoded[:HeaderSize-1])
	if err != ErrNeedMoreData || consumed != 0 {
		t.Fatalf("expected ErrNeedMoreData with 0 consumed, got consumed=%d err=%v", consumed, err)
	}
	_, consumed, err = Decode(encoded[:len(encoded)-1])
	if err != ErrNeedMoreData || consumed != 0 {
		t.Fatalf("expected ErrNeedMoreData for a truncated trailer, got consumed=%d err=%v", consumed, err)
	}
}

func TestDecode_UnknownMessageType(t *testing.T) {
	encoded, _ := Encode(sampleFrame())
	encoded[8] = 0x77 // message type low byte, not a valid enum value
	_, _, err := Decode(encoded)
	if err != ErrUnknownMessage {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
}

func TestDecode_InvalidMagic(t *testing.T) {
	encoded, _ := Encode(sampleFrame())
	encoded[0] = 0x00
	_, _, err := Decode(encoded)
	if err != ErrInvalidMagic {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

// TestDecodeResync_SkipsGarbageToFindTwoFrames covers property P7.
func TestDecodeResync_SkipsGarbageToFindTwoFrames(t *testing.T) {
	f1 := sampleFrame()
	f2 := sampleFrame()
	f2.CorrelationID = 43

	e1, _ := Encode(f1)
	e2, _ := Encode(f2)

	garbage := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}
	buf := append(append(append([]byte{}, garbage...), e1...), e2...)

	got1, consumed1, err := DecodeResync(buf)
	if err != nil {
		t.Fatalf("unexpected error decoding first frame: %v", err)
	}
	if got1.CorrelationID != f1.CorrelationID {
		t.Fatalf("expected first frame correlation id %d, got %d", f1.CorrelationID, got1.CorrelationID)
	}

	got2, _, err := DecodeResync(buf[consumed1:])
	if err != nil {
		t.Fatalf("unexpected error decoding second frame: %v", err)
	}
	if got2.CorrelationID != f2.CorrelationID {
		t.Fatalf("expected second frame correlation id %d, got %d", f2.CorrelationID, got2.CorrelationID)
	}
}

func TestEncode_RejectsOversizePayload(t *testing.T) {
	f := sampleFrame()
	f.Payload = make([]byte, MaxPayloadSize+1)
	if _, err := Encode(f); err == nil {
		t.Fatalf("expected an error for an oversize payload")
	}
}
