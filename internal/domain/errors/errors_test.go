package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"already exists", ErrAlreadyExists},
		{"not found", ErrNotFound},
		{"invalid credentials", ErrInvalidCredentials},
		{"invalid transition", ErrInvalidTransition},
		{"budget exceeded", ErrBudgetExceeded},
		{"no worker", ErrNoWorker},
		{"unknown gig type", ErrUnknownGigType},
		{"invalid status", ErrInvalidStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("context: %w", tc.err)
			if !stdErrors.Is(wrapped, tc.err) {
				t.Fatalf("expected wrapped error to match %v", tc.err)
			}
			if tc.err.Error() != tc.name {
				t.Fatalf("expected message %q, got %q", tc.name, tc.err.Error())
			}
		})
	}
}
