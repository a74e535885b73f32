package index

import (
	"errors"
	"testing"
)

func TestCodeOfMapsConstructors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"not-found", NotFound("missing %s", "x"), NoSuchObject},
		{"constraint", ConstraintViolationf("dup"), ConstraintViolation},
		{"already-exists", AlreadyExists("exists"), EntryAlreadyExists},
		{"unwilling", UnwillingToPerformf("no"), UnwillingToPerform},
		{"operations", OperationsErrorf("boom"), OperationsError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Fatalf("CodeOf() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCodeOfNilIsSuccess(t *testing.T) {
	if got := CodeOf(nil); got != Success {
		t.Fatalf("CodeOf(nil) = %v, want Success", got)
	}
}

func TestCodeOfUnknownErrorIsOperationsError(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != OperationsError {
		t.Fatalf("CodeOf(plain error) = %v, want OperationsError", got)
	}
}

func TestOperationsErrorWrapUnwrapsToCause(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := OperationsErrorWrap(cause, "context")
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
}

func TestErrorStringIncludesCodeAndMessage(t *testing.T) {
	err := ConstraintViolationf("attribute %q duplicated", "cn")
	msg := err.Error()
	if msg == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestCodeStringNames(t *testing.T) {
	cases := map[Code]string{
		Success:             "SUCCESS",
		NoSuchObject:        "NO_SUCH_OBJECT",
		ConstraintViolation: "CONSTRAINT_VIOLATION",
		EntryAlreadyExists:  "ENTRY_ALREADY_EXISTS",
		UnwillingToPerform:  "UNWILLING_TO_PERFORM",
		OperationsError:     "OPERATIONS_ERROR",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Fatalf("Code(%d).String() = %q, want %q", code, got, want)
		}
	}
}
