package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
		msg  string
	}{
		{"not found", NotFound("round not found"), ErrNotFound, "round not found"},
		{"not foundf", NotFoundf("round %s not found", "r1"), ErrNotFound, "round r1 not found"},
		{"validation", Validation("text is required"), ErrValidation, "text is required"},
		{"validationf", Validationf("min votes %d too low", 0), ErrValidation, "min votes 0 too low"},
		{"conflict", Conflict("round changed"), ErrConflict, "round changed"},
		{"invalid input", InvalidInput("bad time"), ErrInvalidInput, "bad time"},
		{"forbidden", Forbidden("host only"), ErrForbidden, "host only"},
		{"rate limited", RateLimited("slow down"), ErrRateLimited, "slow down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, tt.err.Kind)
			}
			if tt.err.Message != tt.msg {
				t.Errorf("expected message %q, got %q", tt.msg, tt.err.Message)
			}
			if tt.err.Err != nil {
				t.Errorf("expected no underlying error, got %v", tt.err.Err)
			}
		})
	}
}

func TestInternal_WrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal(cause)

	if err.Kind != ErrInternal {
		t.Errorf("expected ErrInternal, got %v", err.Kind)
	}
	if !errors.Is(err, cause) {
		t.Error("expected Internal to unwrap to its cause")
	}
	if err.Error() != "internal error: disk full" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("no rows")
	err := Wrap(cause, ErrNotFound, "parlay not found")

	if err.Error() != "parlay not found: no rows" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if errors.Unwrap(err) != cause {
		t.Error("expected Unwrap to return cause")
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("handling call: %w", Forbidden("host only"))

	if got := KindOf(wrapped); got != ErrForbidden {
		t.Errorf("expected ErrForbidden through wrapping, got %v", got)
	}
	if got := KindOf(errors.New("plain")); got != ErrInternal {
		t.Errorf("expected ErrInternal for plain errors, got %v", got)
	}
}

func TestKind_String(t *testing.T) {
	if ErrRateLimited.String() != "rate_limited" {
		t.Errorf("unexpected %q", ErrRateLimited.String())
	}
	if Kind(99).String() != "internal" {
		t.Errorf("expected unknown kinds to read as internal")
	}
}
