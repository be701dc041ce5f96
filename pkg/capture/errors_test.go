package capture

import (
	"errors"
	"testing"
)

func TestClassifyAcquireError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		code string
	}{
		{"Permission denied by host", ErrCodePermissionDenied},
		{"Access denied opening stream", ErrCodePermissionDenied},
		{"no default input device", ErrCodeDeviceNotFound},
		{"Invalid device index", ErrCodeDeviceNotFound},
		{"stream underflow", ErrCodeDeviceNotFound},
	}
	for _, tc := range cases {
		raw := errors.New(tc.raw)
		cerr := classifyAcquireError(raw)
		if cerr == nil || cerr.Code != tc.code {
			t.Errorf("classifyAcquireError(%q) = %v, want code %s", tc.raw, cerr, tc.code)
			continue
		}
		if !errors.Is(cerr, raw) {
			t.Errorf("classified error must wrap the original for %q", tc.raw)
		}
	}

	if classifyAcquireError(nil) != nil {
		t.Fatalf("nil must classify to nil")
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	if WrapError(nil, ErrCodeConnectError, "never") != nil {
		t.Fatalf("wrapping nil must yield nil")
	}

	raw := errors.New("socket hangup")
	cerr := WrapError(raw, ErrCodeConnectError, "Could not connect")
	if cerr.Code != ErrCodeConnectError {
		t.Fatalf("unexpected code %s", cerr.Code)
	}
	if !errors.Is(cerr, raw) {
		t.Fatalf("wrapped error lost its cause")
	}
	if cerr.Error() != "Could not connect: socket hangup" {
		t.Fatalf("unexpected message %q", cerr.Error())
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	if IsTerminal(nil) {
		t.Fatalf("nil is not terminal")
	}
	if IsTerminal(NewMixerError(errors.New("rate mismatch"))) {
		t.Fatalf("mixer failures are recovered locally")
	}
	if IsTerminal(NewServerError("backend hiccup")) {
		t.Fatalf("server error messages do not end the session")
	}
	for _, cerr := range []*CaptureError{
		NewPermissionDeniedError(),
		NewDeviceNotFoundError(),
		NewConnectTimeoutError(0),
		NewUnexpectedDisconnectError(errors.New("reset")),
	} {
		if !IsTerminal(cerr) {
			t.Errorf("%s must be terminal", cerr.Code)
		}
	}
}

func TestAddDetailAndIsCode(t *testing.T) {
	t.Parallel()

	cerr := NewCaptureError("boom", ErrCodeConnectError).AddDetail("attempt", 3)
	if cerr.Details["attempt"] != 3 {
		t.Fatalf("detail not recorded: %v", cerr.Details)
	}
	if !IsCode(cerr, ErrCodeConnectError) || IsCode(cerr, ErrCodeServer) || IsCode(nil, ErrCodeServer) {
		t.Fatalf("IsCode misbehaving")
	}
	if cerr.Timestamp.IsZero() {
		t.Fatalf("errors must carry a timestamp")
	}
}
