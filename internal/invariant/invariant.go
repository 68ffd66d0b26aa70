// Package invariant provides the cross-cutting equality and policy checks
// used by both the decision kernel's callers and the wire protocol layer
// (system spec §4.F): content-hash equality, a capability policy gate,
// snapshot-hash equality, and semver compatibility gates.
//
// Modeled directly on governance.ConstitutionalKernel: a mutex-guarded
// checker that accumulates a violation count and logs every violation
// through an injected *zap.Logger, returning a tagged *Violation error
// rather than a bare error so callers can switch on Code without string
// matching.
package invariant

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Code identifies which invariant check failed.
type Code string

const (
	CodeContentMismatch  Code = "content_mismatch"
	CodePolicyDenied     Code = "policy_denied"
	CodeSnapshotMismatch Code = "snapshot_mismatch"
	CodeSemverInvalid    Code = "semver_invalid"
)

// Violation is the tagged error returned by every failing check.
type Violation struct {
	Code    Code
	Message string
	Context map[string]string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("invariant violation [%s]: %s", v.Code, v.Message)
}

// Checker runs the invariant checks, logging and counting every violation.
type Checker struct {
	mu             sync.Mutex
	logger         *zap.Logger
	violationCount int64
}

// NewChecker constructs a Checker that logs through logger.
func NewChecker(logger *zap.Logger) *Checker {
	return &Checker{logger: logger}
}

func (c *Checker) record(v *Violation) *Violation {
	c.mu.Lock()
	c.violationCount++
	count := c.violationCount
	c.mu.Unlock()

	c.logger.Warn("invariant violation",
		zap.String("code", string(v.Code)),
		zap.String("message", v.Message),
		zap.Int64("total_violations", count),
	)
	return v
}

// ViolationCount returns the number of violations observed so far.
func (c *Checker) ViolationCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.violationCount
}

// ContentEqual reports whether two fingerprints denote the same canonical
// bytes (system spec §4.F "content equality over payloads via the
// fingerprint"). Byte-equality is the entire check — there is no fuzzy
// matching.
func (c *Checker) ContentEqual(a, b string) error {
	if a == b {
		return nil
	}
	return c.record(&Violation{
		Code:    CodeContentMismatch,
		Message: "fingerprints differ",
		Context: map[string]string{"a": a, "b": b},
	})
}

// PolicyGate reports whether every entry of requested is a member of
// declared (set containment, system spec §4.F "a request is permitted iff
// every requested capability is a member of the declared capability
// set").
func (c *Checker) PolicyGate(declared, requested []string) error {
	allowed := make(map[string]bool, len(declared))
	for _, d := range declared {
		allowed[d] = true
	}
	var missing []string
	for _, r := range requested {
		if !allowed[r] {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return c.record(&Violation{
		Code:    CodePolicyDenied,
		Message: "requested capabilities exceed the declared set",
		Context: map[string]string{"missing": strings.Join(missing, ",")},
	})
}

// SnapshotEqual reports whether two snapshot hashes match (system spec
// §4.F "two snapshot hashes match iff their byte strings are equal").
func (c *Checker) SnapshotEqual(a, b string) error {
	if a == b {
		return nil
	}
	return c.record(&Violation{
		Code:    CodeSnapshotMismatch,
		Message: "snapshot hashes differ",
		Context: map[string]string{"a": a, "b": b},
	})
}

// SemVer is a strictly parsed MAJOR.MINOR.PATCH version (system spec §4.F,
// §9 "do not silently map parse failures to (0,0,0)").
type SemVer struct {
	Major, Minor, Patch int
}

// ParseSemVer parses s as exactly three dot-separated unsigned integers.
// Any other shape is rejected rather than coerced, so version gates fail
// closed.
func ParseSemVer(s string) (SemVer, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return SemVer{}, fmt.Errorf("invariant: %q is not MAJOR.MINOR.PATCH", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || p == "" {
			return SemVer{}, fmt.Errorf("invariant: %q has a non-unsigned-integer component %q", s, p)
		}
		nums[i] = n
	}
	return SemVer{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MinorForwardCompatible reports whether candidate is forward-compatible
// with current: same major, candidate minor >= current minor. Any parse
// failure of either string makes the predicate false.
func (c *Checker) MinorForwardCompatible(current, candidate string) bool {
	cur, err1 := ParseSemVer(current)
	cand, err2 := ParseSemVer(candidate)
	if err1 != nil || err2 != nil {
		c.record(&Violation{Code: CodeSemverInvalid, Message: "semver parse failure in compatibility gate",
			Context: map[string]string{"current": current, "candidate": candidate}})
		return false
	}
	return cur.Major == cand.Major && cand.Minor >= cur.Minor
}

// PatchReplayCompatible reports whether candidate is replay-compatible
// with current: same major and same minor. Any parse failure of either
// string makes the predicate false.
func (c *Checker) PatchReplayCompatible(current, candidate string) bool {
	cur, err1 := ParseSemVer(current)
	cand, err2 := ParseSemVer(candidate)
	if err1 != nil || err2 != nil {
		c.record(&Violation{Code: CodeSemverInvalid, Message: "semver parse failure in compatibility gate",
			Context: map[string]string{"current": current, "candidate": candidate}})
		return false
	}
	return cur.Major == cand.Major && cur.Minor == cand.Minor
}
