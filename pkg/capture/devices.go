package capture

import (
	"context"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// AudioHandle is an owned handle to a live audio source. The underlying
// device stays open until Release, which is idempotent.
type AudioHandle interface {
	Read(p []float32) (int, error)
	SampleRate() int
	Release() error
}

// DeviceProvider acquires audio sources from the host environment.
// Primary (microphone) failure is fatal for the session; secondary
// (system/loopback) audio is best-effort and its absence is reported as
// (nil, nil) or a plain error that callers log and ignore.
type DeviceProvider interface {
	AcquirePrimary(ctx context.Context) (AudioHandle, *CaptureError)
	AcquireSecondary(ctx context.Context) (AudioHandle, error)
	Capabilities() CapabilityReport
}

// PortAudioProvider implements DeviceProvider on top of PortAudio. The
// ContextCoordinator must have created the audio runtime before acquisition.
type PortAudioProvider struct {
	cfg *Config
	log *Logger
}

func NewPortAudioProvider(cfg *Config) *PortAudioProvider {
	return &PortAudioProvider{
		cfg: cfg,
		log: GetGlobalLogger().WithComponent("devices"),
	}
}

// AcquirePrimary opens the default input device. Capability checks run first
// so an unusable environment fails with a typed error instead of an opaque
// device-layer one.
func (p *PortAudioProvider) AcquirePrimary(ctx context.Context) (AudioHandle, *CaptureError) {
	if err := ctx.Err(); err != nil {
		return nil, WrapError(err, ErrCodeDeviceNotFound, "Acquisition canceled")
	}

	if !p.cfg.EndpointIsSecure() && !p.cfg.AllowInsecureWS {
		return nil, NewInsecureContextError(p.cfg.Endpoint)
	}
	if _, err := portaudio.DefaultHostApi(); err != nil {
		return nil, NewNotSupportedError("audio runtime unavailable")
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, classifyAcquireError(err)
	}

	handle, err := openInputStream(dev, p.cfg.Channels, p.cfg.SampleRate, p.cfg.BufferSize)
	if err != nil {
		return nil, classifyAcquireError(err)
	}

	p.log.WithField("device", dev.Name).Info("Primary audio acquired")
	return handle, nil
}

// AcquireSecondary scans input devices for a loopback/monitor source. Not
// finding one is normal and returns (nil, nil).
func (p *PortAudioProvider) AcquireSecondary(ctx context.Context) (AudioHandle, error) {
	if !p.cfg.SecondaryAudio {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dev := p.findLoopbackDevice()
	if dev == nil {
		p.log.Debug("No loopback device found, proceeding with microphone only")
		return nil, nil
	}

	handle, err := openInputStream(dev, 1, p.cfg.SampleRate, p.cfg.BufferSize)
	if err != nil {
		return nil, err
	}

	p.log.WithField("device", dev.Name).Info("Secondary audio acquired")
	return handle, nil
}

func (p *PortAudioProvider) findLoopbackDevice() *portaudio.DeviceInfo {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil
	}
	for _, dev := range devices {
		if dev.MaxInputChannels == 0 {
			continue
		}
		name := strings.ToLower(dev.Name)
		for _, match := range p.cfg.SecondaryMatch {
			if strings.Contains(name, match) {
				return dev
			}
		}
	}
	return nil
}

// Capabilities enumerates which required capabilities are present so hosts
// can disable the start control instead of failing after the fact.
func (p *PortAudioProvider) Capabilities() CapabilityReport {
	report := CapabilityReport{
		SecureEndpoint:     p.cfg.EndpointIsSecure() || p.cfg.AllowInsecureWS,
		SupportedEncodings: supportedEncodings(),
	}
	if _, err := portaudio.DefaultHostApi(); err == nil {
		report.AudioRuntime = true
	}
	if _, err := portaudio.DefaultInputDevice(); err == nil {
		report.InputDevice = true
	}
	report.SecondaryDevice = p.findLoopbackDevice() != nil
	return report
}

func openInputStream(dev *portaudio.DeviceInfo, channels, sampleRate, frames int) (*paHandle, error) {
	if channels <= 0 {
		channels = 1
	}
	if frames <= 0 {
		frames = 1024
	}

	buf := make([]float32, frames*channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: frames,
	}

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, err
	}

	return &paHandle{
		stream: stream,
		buf:    buf,
		rate:   sampleRate,
	}, nil
}

type paHandle struct {
	stream  *portaudio.Stream
	buf     []float32
	pending []float32
	rate    int

	releaseOnce sync.Once
	releaseErr  error
}

func (h *paHandle) Read(p []float32) (int, error) {
	if len(h.pending) == 0 {
		if err := h.stream.Read(); err != nil {
			return 0, err
		}
		h.pending = h.buf
	}
	n := copy(p, h.pending)
	h.pending = h.pending[n:]
	return n, nil
}

func (h *paHandle) SampleRate() int {
	return h.rate
}

func (h *paHandle) Release() error {
	h.releaseOnce.Do(func() {
		if err := h.stream.Stop(); err != nil {
			h.releaseErr = err
		}
		if err := h.stream.Close(); err != nil && h.releaseErr == nil {
			h.releaseErr = err
		}
	})
	return h.releaseErr
}

// ListDevices enumerates audio devices for diagnostics and the CLI.
type DeviceDesc struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	HostAPI           string
}

func ListDevices() ([]DeviceDesc, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	out := make([]DeviceDesc, 0, len(devices))
	for i, dev := range devices {
		hostAPI := "Unknown"
		if dev.HostApi != nil {
			hostAPI = dev.HostApi.Name
		}
		out = append(out, DeviceDesc{
			ID:                i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			MaxOutputChannels: dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			HostAPI:           hostAPI,
		})
	}
	return out, nil
}
