package capture

import (
	"github.com/gordonklaus/portaudio"
)

// ContextCoordinator brokers the lifetime of the shared capture context (the
// audio runtime). Exactly one context exists at a time; creation is guarded by
// an existence check so repeated calls are idempotent. The controller holds a
// reference and notifies the coordinator when teardown completes.
type ContextCoordinator interface {
	EnsureContext() *CaptureError
	DestroyContext()
	Active() bool
}

// RuntimeCoordinator implements ContextCoordinator over PortAudio
// Initialize/Terminate.
type RuntimeCoordinator struct {
	log    *Logger
	active bool
}

func NewRuntimeCoordinator() *RuntimeCoordinator {
	return &RuntimeCoordinator{
		log: GetGlobalLogger().WithComponent("coordinator"),
	}
}

// EnsureContext creates the capture context lazily on first use. Called only
// from the controller's event loop, so no lock is needed; the existence check
// is the guard.
func (c *RuntimeCoordinator) EnsureContext() *CaptureError {
	if c.active {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return WrapError(err, ErrCodeNotSupported, "Failed to initialize audio runtime")
	}
	c.active = true
	c.log.Info("Capture context created")
	return nil
}

// DestroyContext tears the context down after session cleanup. Idempotent.
func (c *RuntimeCoordinator) DestroyContext() {
	if !c.active {
		return
	}
	if err := portaudio.Terminate(); err != nil {
		c.log.WithError(err).Warn("Failed to terminate audio runtime")
	}
	c.active = false
	c.log.Info("Capture context destroyed")
}

func (c *RuntimeCoordinator) Active() bool {
	return c.active
}
