package protocol

import (
	"go.uber.org/zap"

	"github.com/octoreflex/octoreflex/internal/invariant"
)

// SupportedVersions is the set of (major, minor) pairs this build of the
// server can speak, newest first. Negotiate picks the highest mutually
// supported entry.
var SupportedVersions = []struct{ Major, Minor uint16 }{
	{1, 1},
	{1, 0},
}

// RequiredCapabilities are the bits the server insists on regardless of
// what the client advertises. Negotiate rejects a Hello that doesn't set
// all of them.
var RequiredCapabilities = CapabilityBinaryProtocol

// Negotiate runs the ordered handshake checks against an incoming Hello
// and returns either a populated HelloAck or a ProtocolError describing
// the first failed step (grounded on gossip.Server.ShareObservation's
// ordered reject-with-reason verification chain).
func Negotiate(hello Hello, sessionID string, engineVersion, contractVersion, schemaHash, storageVersion string, checker *invariant.Checker, log *zap.Logger) (HelloAck, *ProtocolError) {
	// Step 1: version range must overlap a supported version.
	major, minor, ok := selectVersion(hello.Versions)
	if !ok {
		log.Warn("handshake rejected: no overlapping version",
			zap.String("client_name", hello.ClientName),
			zap.Uint16("client_min_major", hello.Versions.MinMajor),
			zap.Uint16("client_max_major", hello.Versions.MaxMajor))
		return HelloAck{}, &ProtocolError{
			Code:    ErrUnsupportedVersion,
			Message: "no overlapping protocol version",
		}
	}

	// Step 2: required capabilities must be present — declared set must be
	// a superset of the required set, the same containment rule
	// invariant.Checker.PolicyGate enforces for policy/capability checks
	// elsewhere in this domain.
	if err := checker.PolicyGate(hello.Capabilities.Names(), RequiredCapabilities.Names()); err != nil {
		log.Warn("handshake rejected: missing required capability",
			zap.String("client_name", hello.ClientName),
			zap.Uint32("declared", uint32(hello.Capabilities)),
			zap.Error(err))
		return HelloAck{}, &ProtocolError{
			Code:    ErrInvalidMessage,
			Message: "client did not declare a required capability",
		}
	}

	// Step 3: client identity fields must be non-empty.
	if hello.ClientName == "" || hello.ClientVersion == "" {
		log.Warn("handshake rejected: missing client identity")
		return HelloAck{}, &ProtocolError{
			Code:    ErrInvalidMessage,
			Message: "client_name and client_version are required",
		}
	}

	return HelloAck{
		SessionID:       sessionID,
		SelectedMajor:   major,
		SelectedMinor:   minor,
		Capabilities:    hello.Capabilities & serverCapabilities(),
		EngineVersion:   engineVersion,
		ContractVersion: contractVersion,
		SchemaHash:      schemaHash,
		StorageVersion:  storageVersion,
	}, nil
}

// selectVersion returns the highest entry in SupportedVersions whose major
// matches the client's range and whose minor falls within it.
func selectVersion(r VersionRange) (major, minor uint16, ok bool) {
	for _, v := range SupportedVersions {
		if v.Major < r.MinMajor || v.Major > r.MaxMajor {
			continue
		}
		if v.Major == r.MinMajor && v.Minor < r.MinMinor {
			continue
		}
		if v.Major == r.MaxMajor && v.Minor > r.MaxMinor {
			continue
		}
		return v.Major, v.Minor, true
	}
	return 0, 0, false
}

// serverCapabilities are the bits this build actually supports; the
// negotiated capability set is the intersection with what the client
// declared.
func serverCapabilities() Capability {
	return CapabilityBinaryProtocol | CapabilityCBOREncoding | CapabilityFixedPoint | CapabilitySandbox
}
