package capture

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CaptureSession is the unit of work for one recording: the owned device
// handles, the mixed stream, the recorder, and the transport connection. At
// most one session is active at a time; the controller enforces that.
type CaptureSession struct {
	ID        string
	StartedAt time.Time
	MeetingID string

	primary   AudioHandle
	secondary AudioHandle
	mixed     *MixedStream
	recorder  *ChunkRecorder
	transport Transport

	releaseOnce sync.Once
}

func newCaptureSession() *CaptureSession {
	return &CaptureSession{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
}

// release frees every owned audio resource. Idempotent and tolerant of
// handles that were never acquired or are already released.
func (s *CaptureSession) release(log *Logger) {
	s.releaseOnce.Do(func() {
		if s.mixed != nil {
			s.mixed.Close()
		}
		if s.primary != nil {
			if err := s.primary.Release(); err != nil {
				log.WithError(err).Warn("Failed to release primary audio handle")
			}
		}
		if s.secondary != nil {
			if err := s.secondary.Release(); err != nil {
				log.WithError(err).Warn("Failed to release secondary audio handle")
			}
		}
	})
}

// Status is a point-in-time snapshot of the controller for host display.
type Status struct {
	State         SessionState  `json:"state"`
	SessionID     string        `json:"sessionId,omitempty"`
	MeetingID     string        `json:"meetingId,omitempty"`
	Elapsed       time.Duration `json:"elapsed"`
	ChunksSent    uint64        `json:"chunksSent"`
	ChunksDropped uint64        `json:"chunksDropped"`
}
