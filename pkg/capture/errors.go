package capture

import (
	"errors"
	"strings"
	"time"
)

// Transport-internal sentinel errors; callers see them wrapped in the
// taxonomy above.
var (
	errAlreadyConnecting   = errors.New("already connected or connecting")
	errClosedDuringConnect = errors.New("closed while connecting")
	errNotConnected        = errors.New("not connected")
)

// Error codes as constants. This is the closed taxonomy every failure is
// mapped into before it reaches the controller; call sites match on Code, not
// on error strings.
const (
	ErrCodePermissionDenied     = "PERMISSION_DENIED"
	ErrCodeDeviceNotFound       = "DEVICE_NOT_FOUND"
	ErrCodeNotSupported         = "NOT_SUPPORTED"
	ErrCodeInsecureContext      = "INSECURE_CONTEXT"
	ErrCodeNoSupportedFormat    = "NO_SUPPORTED_FORMAT"
	ErrCodeConnectTimeout       = "CONNECT_TIMEOUT"
	ErrCodeConnectError         = "CONNECT_ERROR"
	ErrCodeUnexpectedDisconnect = "UNEXPECTED_DISCONNECT"
	ErrCodeMixerFailed          = "MIXER_FAILED"
	ErrCodeServer               = "SERVER_ERROR"
)

// CaptureError is the tagged error type used throughout the SDK.
type CaptureError struct {
	Message   string
	Code      string
	Timestamp time.Time
	Details   map[string]interface{}
	err       error
}

func (e *CaptureError) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *CaptureError) Unwrap() error {
	return e.err
}

func NewCaptureError(message, code string) *CaptureError {
	return &CaptureError{
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func (e *CaptureError) AddDetail(key string, value interface{}) *CaptureError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WrapError converts an arbitrary error to a CaptureError with the given code.
func WrapError(err error, code, message string) *CaptureError {
	if err == nil {
		return nil
	}
	cerr := NewCaptureError(message, code)
	cerr.err = err
	return cerr
}

func IsCode(err *CaptureError, code string) bool {
	return err != nil && err.Code == code
}

// Specific error creators with human-readable messages a user can act on.
func NewPermissionDeniedError() *CaptureError {
	return NewCaptureError("Microphone permission denied. Grant microphone access and try again.", ErrCodePermissionDenied)
}

func NewDeviceNotFoundError() *CaptureError {
	return NewCaptureError("No microphone found. Connect an audio input device and try again.", ErrCodeDeviceNotFound)
}

func NewNotSupportedError(detail string) *CaptureError {
	return NewCaptureError("Audio capture is not supported in this environment: "+detail, ErrCodeNotSupported)
}

func NewInsecureContextError(endpoint string) *CaptureError {
	return NewCaptureError("Refusing to stream audio over an insecure endpoint. Use wss:// or a loopback address.", ErrCodeInsecureContext).
		AddDetail("endpoint", endpoint)
}

func NewNoSupportedFormatError(preferred []string) *CaptureError {
	return NewCaptureError("None of the preferred audio encodings are supported by this runtime.", ErrCodeNoSupportedFormat).
		AddDetail("preferred", preferred)
}

func NewConnectTimeoutError(timeout time.Duration) *CaptureError {
	return NewCaptureError("Timed out connecting to the processing service. Check that the backend is running.", ErrCodeConnectTimeout).
		AddDetail("timeout", timeout.String())
}

func NewConnectError(err error) *CaptureError {
	return WrapError(err, ErrCodeConnectError, "Could not connect to the processing service")
}

func NewUnexpectedDisconnectError(err error) *CaptureError {
	cerr := NewCaptureError("Connection to the processing service was lost.", ErrCodeUnexpectedDisconnect)
	cerr.err = err
	return cerr
}

func NewMixerError(err error) *CaptureError {
	return WrapError(err, ErrCodeMixerFailed, "Failed to construct the audio mix graph")
}

func NewServerError(message string) *CaptureError {
	return NewCaptureError(message, ErrCodeServer)
}

// IsTerminal reports whether an error ends the current session.
// MixerFailed is recovered locally (primary-only fallback) and server error
// messages are relayed to the host without touching session state.
func IsTerminal(err *CaptureError) bool {
	if err == nil {
		return false
	}
	switch err.Code {
	case ErrCodeMixerFailed, ErrCodeServer:
		return false
	}
	return true
}

// classifyAcquireError maps a raw device-layer error onto the taxonomy.
// PortAudio reports permission problems as host errors whose text mentions
// access or permission; anything else about a missing input is DeviceNotFound.
func classifyAcquireError(err error) *CaptureError {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access denied"):
		perr := NewPermissionDeniedError()
		perr.err = err
		return perr
	case strings.Contains(msg, "no default input") || strings.Contains(msg, "no device") || strings.Contains(msg, "invalid device"):
		derr := NewDeviceNotFoundError()
		derr.err = err
		return derr
	}
	return WrapError(err, ErrCodeDeviceNotFound, "Failed to open audio input device")
}
