package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrPlatform, "timeline fetch failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithCollector("scraper1")

	if GetErrorCode(err) != ErrPlatform {
		t.Fatalf("expected code %s, got %s", ErrPlatform, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got, want := err.Error(), "[PLATFORM_ERROR][scraper1] timeline fetch failed: root"; got != want {
		t.Fatalf("unexpected error string %q, want %q", got, want)
	}
}

func TestError_WrappedLookups(t *testing.T) {
	t.Parallel()

	inner := Errorf(ErrUnknownAction, "action %q is not registered", "fetch_everything")
	wrapped := fmt.Errorf("dispatch: %w", inner)

	if GetErrorCode(wrapped) != ErrUnknownAction {
		t.Fatalf("expected code to be found through wrapping")
	}
	if IsRetryable(wrapped) {
		t.Fatalf("unknown action must not be retryable")
	}
	if GetErrorCode(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code  ErrorCode
		fatal bool
	}{
		{ErrUnknownStep, true},
		{ErrUnknownAction, true},
		{ErrInvalidWorkflow, true},
		{ErrActionRequired, true},
		{ErrPlatform, false},
		{ErrPersistence, false},
		{ErrStepFailed, false},
	}
	for _, tc := range cases {
		if got := IsFatal(NewError(tc.code, "x")); got != tc.fatal {
			t.Errorf("IsFatal(%s) = %v, want %v", tc.code, got, tc.fatal)
		}
	}
	if IsFatal(errors.New("boom")) {
		t.Errorf("plain errors are never fatal")
	}
}
