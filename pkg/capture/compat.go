package capture

import "fmt"

// CapabilityReport enumerates which required capabilities the current
// environment exposes. Hosts use it to disable the start control up front
// rather than letting a session fail after the fact.
type CapabilityReport struct {
	AudioRuntime       bool     `json:"audioRuntime"`
	InputDevice        bool     `json:"inputDevice"`
	SecondaryDevice    bool     `json:"secondaryDevice"`
	SecureEndpoint     bool     `json:"secureEndpoint"`
	SupportedEncodings []string `json:"supportedEncodings"`
}

// Supported reports whether a session can be started at all. Secondary audio
// is optional and does not gate support.
func (r CapabilityReport) Supported() bool {
	return r.AudioRuntime && r.InputDevice && r.SecureEndpoint && len(r.SupportedEncodings) > 0
}

// Issues returns human-readable descriptions of everything missing.
func (r CapabilityReport) Issues() []string {
	issues := []string{}
	if !r.AudioRuntime {
		issues = append(issues, "Audio runtime is unavailable")
	}
	if !r.InputDevice {
		issues = append(issues, "No audio input device found")
	}
	if !r.SecureEndpoint {
		issues = append(issues, "Endpoint is not secure (use wss:// or a loopback address)")
	}
	if len(r.SupportedEncodings) == 0 {
		issues = append(issues, "No supported audio encoding")
	}
	if !r.SecondaryDevice {
		issues = append(issues, "No system audio (loopback) device; recordings will be microphone only")
	}
	return issues
}

func (r CapabilityReport) String() string {
	return fmt.Sprintf("runtime=%t input=%t secondary=%t secure=%t encodings=%v",
		r.AudioRuntime, r.InputDevice, r.SecondaryDevice, r.SecureEndpoint, r.SupportedEncodings)
}
