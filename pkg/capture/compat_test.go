package capture

import "testing"

func TestCapabilityReportSupported(t *testing.T) {
	t.Parallel()

	full := CapabilityReport{
		AudioRuntime:       true,
		InputDevice:        true,
		SecondaryDevice:    true,
		SecureEndpoint:     true,
		SupportedEncodings: supportedEncodings(),
	}
	if !full.Supported() {
		t.Fatalf("fully capable environment reported unsupported")
	}
	if issues := full.Issues(); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	noSecondary := full
	noSecondary.SecondaryDevice = false
	if !noSecondary.Supported() {
		t.Fatalf("missing secondary audio must not gate support")
	}
	if issues := noSecondary.Issues(); len(issues) != 1 {
		t.Fatalf("expected one advisory issue, got %v", issues)
	}

	noInput := full
	noInput.InputDevice = false
	if noInput.Supported() {
		t.Fatalf("missing input device must gate support")
	}

	noRuntime := full
	noRuntime.AudioRuntime = false
	if noRuntime.Supported() {
		t.Fatalf("missing audio runtime must gate support")
	}

	insecure := full
	insecure.SecureEndpoint = false
	if insecure.Supported() {
		t.Fatalf("insecure endpoint must gate support")
	}
}
