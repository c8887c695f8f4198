package derrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct coded error", func(t *testing.T) {
		err := New(CodeConflict, "profile already exists")
		if !HasCode(err, CodeConflict) {
			t.Fatalf("expected CodeConflict, got %v", CodeOf(err))
		}
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "profile missing")
		err := fmt.Errorf("ensure profile: %w", inner)
		if !HasCode(err, CodeNotFound) {
			t.Fatalf("expected CodeNotFound through wrap chain")
		}
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		if HasCode(errors.New("boom"), CodeInternal) {
			t.Fatalf("plain error should not match any code")
		}
		if got := CodeOf(errors.New("boom")); got != CodeInternal {
			t.Fatalf("expected CodeInternal default, got %v", got)
		}
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:         http.StatusBadRequest,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeInvariantViolation: http.StatusConflict,
		CodeUnavailable:        http.StatusServiceUnavailable,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := ToHTTPStatus(code); got != want {
			t.Errorf("ToHTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "profile store unreachable")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
}
