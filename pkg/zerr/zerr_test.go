package zerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	e := New(Invalid, "module name is empty")
	if e.Error() != "module name is empty" {
		t.Errorf("Error() = %q, want %q", e.Error(), "module name is empty")
	}

	wrapped := Wrap(IOFailure, "failed to clone module", errors.New("connection refused"))
	want := "failed to clone module: connection refused"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(IOFailure, "cache write failed", cause)

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"zerr error", New(SecurityDenied, "blocked"), SecurityDenied},
		{"wrapped zerr error", fmt.Errorf("context: %w", New(Conflict, "already installed")), Conflict},
		{"plain error", errors.New("boom"), Internal},
		{"nil", nil, Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{New(Invalid, "x"), ExitInvalid},
		{New(NotFound, "x"), ExitGeneral},
		{New(Conflict, "x"), ExitGeneral},
		{New(SecurityDenied, "x"), ExitSecurityDenied},
		{New(PermissionDenied, "x"), ExitPermissionDenied},
		{New(IOFailure, "x"), ExitIOFailure},
		{errors.New("generic"), ExitGeneral},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{Internal, "internal"},
		{Invalid, "invalid"},
		{NotFound, "not_found"},
		{Conflict, "conflict"},
		{SecurityDenied, "security_denied"},
		{PermissionDenied, "permission_denied"},
		{IOFailure, "io_failure"},
	}

	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("Code(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}
