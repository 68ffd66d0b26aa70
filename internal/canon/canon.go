// Package canon — canon.go
//
// Canonical byte-form encoder (system spec §4.B). This is the heart of
// OCTOREFLEX's determinism guarantee: any value drawn from the JSON value
// lattice {null, bool, integer, float, string, array, object} is converted
// into a single, byte-stable representation so that two semantically equal
// inputs always produce byte-identical canonical forms, and conversely.
//
// Modeled on the teacher's two-pass canonicalization split
// (governance.ConstitutionalKernel.computeDecisionHash builds a sorted-key
// map before hashing; the canonical-plan pattern in the wider ecosystem
// goes one step further and defines an explicit intermediate type before
// hashing it) — here the intermediate type is Value, and Encode is the
// single function permitted to turn a Value into bytes for hashing.
//
// Encoding rules (must not drift from these without breaking every stored
// fingerprint):
//  1. Object keys are written in ascending Unicode codepoint order.
//  2. Arrays preserve insertion order.
//  3. Floats are normalized (see float.go) before encoding.
//  4. Strings escape only backslash, double-quote, LF, CR, HT.
//  5. No whitespace, no trailing newline.
//  6. Integers are written in shortest decimal form.
//  7. Nested values are encoded recursively by the same rules.
package canon

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

// Value is a node in the canonical value lattice. Exactly one field is
// meaningful, selected by Kind. Object field order is irrelevant — Encode
// sorts keys on the way out, which is what makes two maps built in
// different insertion orders hash identically.
type Value struct {
	Kind Kind

	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Array  []Value
	Object map[string]Value
}

// Null returns the canonical null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int wraps a signed integer.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float wraps a float64. The value is normalized at encode time, not at
// construction time, so repeated wrapping stays idempotent per P4.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// String wraps a string.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Array wraps an ordered slice of values. Order is preserved as given.
func Array(vs ...Value) Value { return Value{Kind: KindArray, Array: vs} }

// Object wraps a string-keyed map of values. Encode sorts keys ascending
// by Unicode codepoint regardless of map iteration order.
func Object(m map[string]Value) Value { return Value{Kind: KindObject, Object: m} }

// Canonicalizer is implemented by any domain type that has a stable
// canonical projection. Every wire/result type in this module implements
// it (system spec §4.I — "type schema").
type Canonicalizer interface {
	MarshalCanonical() Value
}

// Encode serializes v into its canonical byte form per the rules above.
// Encode never returns an error: every Value is well-formed by
// construction (float normalization happens here, not earlier).
func Encode(v Value) []byte {
	var b strings.Builder
	encodeInto(&b, v)
	return []byte(b.String())
}

// EncodeOf is a convenience wrapper for types implementing Canonicalizer.
func EncodeOf(c Canonicalizer) []byte {
	return Encode(c.MarshalCanonical())
}

func encodeInto(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		encodeFloat(b, Normalize(v.Float))
	case KindString:
		encodeString(b, v.Str)
	case KindArray:
		b.WriteByte('[')
		for i, elem := range v.Array {
			if i > 0 {
				b.WriteByte(',')
			}
			encodeInto(b, elem)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		keys := make([]string, 0, len(v.Object))
		for k := range v.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			encodeString(b, k)
			b.WriteByte(':')
			encodeInto(b, v.Object[k])
		}
		b.WriteByte('}')
	default:
		panic(fmt.Sprintf("canon: unknown Kind %d", v.Kind))
	}
}

// encodeFloat writes a normalized float in shortest form, omitting the
// fractional part for whole values.
func encodeFloat(b *strings.Builder, f float64) {
	if f == float64(int64(f)) {
		b.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
}

// escapeSet is the fixed escape table from system spec §4.B rule 4: only
// these five characters are ever escaped. No \uXXXX escapes are emitted
// for any other character, including non-ASCII.
var escapeSet = map[byte]string{
	'\\': `\\`,
	'"':  `\"`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

func encodeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if esc, ok := escapeSet[c]; ok {
			b.WriteString(esc)
			continue
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
}
