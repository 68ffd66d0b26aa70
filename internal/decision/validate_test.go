package decision

import "testing"

// TestValidate_RejectsIdentifierFormat covers system spec §3's identifier
// format constraint: non-empty, ASCII alphanumeric plus '-'/'_', <=256
// bytes.
func TestValidate_RejectsIdentifierFormat(t *testing.T) {
	cases := []struct {
		name string
		in   DecisionInput
	}{
		{
			name: "empty action id",
			in: DecisionInput{
				Actions: []Action{{ID: ""}},
				States:  []State{{ID: "s1"}},
			},
		},
		{
			name: "action id with disallowed character",
			in: DecisionInput{
				Actions: []Action{{ID: "action a"}},
				States:  []State{{ID: "s1"}},
			},
		},
		{
			name: "state id with disallowed character",
			in: DecisionInput{
				Actions: []Action{{ID: "action_a"}},
				States:  []State{{ID: "s/1"}},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Evaluate(tc.in)
			de, ok := err.(*DomainError)
			if !ok || de.Code != ErrInvalidIdentifier {
				t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
			}
		})
	}
}

func TestValidIdentifier_RejectsOverlongID(t *testing.T) {
	long := make([]byte, maxIdentifierBytes+1)
	for i := range long {
		long[i] = 'a'
	}
	if validIdentifier(string(long)) {
		t.Fatalf("expected identifier longer than %d bytes to be rejected", maxIdentifierBytes)
	}
}

func TestValidIdentifier_AcceptsAllowedCharset(t *testing.T) {
	if !validIdentifier("Action-1_ok") {
		t.Fatalf("expected mixed alphanumeric/-/_ identifier to be accepted")
	}
}
