package protocol

// Capability is one bit of the handshake's capability flag set (system
// spec §6 "Capability flags").
type Capability uint32

const (
	CapabilityBinaryProtocol Capability = 1 << 0
	CapabilityCBOREncoding   Capability = 1 << 1
	CapabilityCompression    Capability = 1 << 2
	CapabilitySandbox        Capability = 1 << 3
	CapabilityLLM            Capability = 1 << 4
	CapabilityFixedPoint     Capability = 1 << 5
	CapabilityStreaming      Capability = 1 << 6
)

var capabilityNames = map[Capability]string{
	CapabilityBinaryProtocol: "binary_protocol",
	CapabilityCBOREncoding:   "cbor_encoding",
	CapabilityCompression:    "compression",
	CapabilitySandbox:        "sandbox",
	CapabilityLLM:            "llm",
	CapabilityFixedPoint:     "fixed_point",
	CapabilityStreaming:      "streaming",
}

// Names returns the declared names of every bit set in flags, in bit-index
// order — used by invariant.Checker.PolicyGate callers to compare against
// a declared capability set.
func (flags Capability) Names() []string {
	var out []string
	for bit := Capability(1); bit != 0; bit <<= 1 {
		if flags&bit != 0 {
			if name, ok := capabilityNames[bit]; ok {
				out = append(out, name)
			}
		}
	}
	return out
}
