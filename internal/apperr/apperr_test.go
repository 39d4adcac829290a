package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/garnizeh/careerpal/internal/apperr"
)

func TestKindOf(t *testing.T) {
	base := errors.New("db locked")

	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{name: "nil", err: nil, want: apperr.Unknown},
		{name: "plain", err: base, want: apperr.Unknown},
		{name: "new", err: apperr.New(apperr.NotFound, "application %s not found", "abc"), want: apperr.NotFound},
		{name: "wrapped", err: apperr.Wrap(base, apperr.UpstreamFailure, "store"), want: apperr.UpstreamFailure},
		{name: "fmt wrapped", err: fmt.Errorf("update: %w", apperr.New(apperr.Conflict, "dup")), want: apperr.Conflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	base := errors.New("boom")
	err := apperr.Wrap(base, apperr.UpstreamFailure, "generate")
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to match cause")
	}
	if err.Error() != "generate: boom" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if apperr.Wrap(nil, apperr.NotFound, "x") != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}

func TestMessageOf(t *testing.T) {
	err := fmt.Errorf("handler: %w", apperr.New(apperr.NotFound, "User not found"))
	if got := apperr.MessageOf(err); got != "User not found" {
		t.Fatalf("MessageOf = %q", got)
	}
	if got := apperr.MessageOf(errors.New("x")); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
	if !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("expected Is NotFound")
	}
}
