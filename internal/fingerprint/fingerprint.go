// Package fingerprint — fingerprint.go
//
// Content fingerprints over canonical byte form (system spec §4.C).
//
// Two independent hash functions are used, mirroring the teacher's
// dual-hash pattern in governance.EscalationDecision (DecisionHash for the
// content itself, ParentHash chaining it to the previous decision):
//
//   - Fingerprint: SHA-256 over canonical bytes, hex-lowercased. This is
//     the identity of a DecisionInput/DecisionOutput.
//   - ContentHash: BLAKE3 over canonical bytes, hex-lowercased. Used only
//     inside the wire-protocol layer for payload-level content addressing
//     (result digests, §4.H execution path).
//
// Equality of two fingerprints implies equality of canonical bytes implies
// semantic equality under canon's rules. Both hashes are computed over the
// same canonical byte form, never over a language-specific serialization,
// which is what makes them stable across platforms.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/octoreflex/octoreflex/internal/canon"
)

// Fingerprint is a hex-lowercased SHA-256 digest of canonical bytes.
type Fingerprint string

// Of computes the Fingerprint of an already-canonicalized byte slice.
func Of(canonicalBytes []byte) Fingerprint {
	sum := sha256.Sum256(canonicalBytes)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// OfValue computes the Fingerprint of a canon.Value directly.
func OfValue(v canon.Value) Fingerprint {
	return Of(canon.Encode(v))
}

// OfCanonicalizer computes the Fingerprint of any type with a canonical
// projection.
func OfCanonicalizer(c canon.Canonicalizer) Fingerprint {
	return Of(canon.EncodeOf(c))
}

// String satisfies fmt.Stringer.
func (f Fingerprint) String() string { return string(f) }

// ContentHash is a hex-lowercased BLAKE3 digest of canonical bytes, used
// for wire-layer payload content addressing.
type ContentHash string

// ContentHashOf computes the ContentHash of an already-canonicalized byte
// slice.
func ContentHashOf(canonicalBytes []byte) ContentHash {
	sum := blake3.Sum256(canonicalBytes)
	return ContentHash(hex.EncodeToString(sum[:]))
}

// ContentHashOfValue computes the ContentHash of a canon.Value directly.
func ContentHashOfValue(v canon.Value) ContentHash {
	return ContentHashOf(canon.Encode(v))
}

// String satisfies fmt.Stringer.
func (c ContentHash) String() string { return string(c) }

// Pair bundles both hashes over the same canonical bytes, mirroring the
// teacher's DecisionHash+ParentHash pairing — here the pairing is
// "identity hash" + "wire content-address hash" rather than a Merkle
// chain link, because the decision kernel is pure and has no "previous
// decision" to chain against.
type Pair struct {
	Fingerprint Fingerprint
	ContentHash ContentHash
}

// OfValuePair computes both hashes over the same canonical bytes in one
// pass.
func OfValuePair(v canon.Value) Pair {
	b := canon.Encode(v)
	return Pair{Fingerprint: Of(b), ContentHash: ContentHashOf(b)}
}
