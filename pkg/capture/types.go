package capture

import "time"

// SessionState enum
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateAcquiring  SessionState = "acquiring"
	StateConnecting SessionState = "connecting"
	StateStreaming  SessionState = "streaming"
	StateStopping   SessionState = "stopping"
)

// TransportState enum
type TransportState string

const (
	TransportDisconnected TransportState = "disconnected"
	TransportConnecting   TransportState = "connecting"
	TransportOpen         TransportState = "open"
	TransportClosed       TransportState = "closed"
	TransportErrored      TransportState = "errored"
)

// StopReason distinguishes why a session ended. Unsolicited disconnects are
// reported to the host distinctly from user stops.
type StopReason string

const (
	StopReasonUser         StopReason = "stopped_by_user"
	StopReasonDisconnected StopReason = "disconnected"
	StopReasonFailed       StopReason = "failed"
)

// AudioChunk is one fixed-interval slice of recorded audio. Chunks are
// ephemeral: produced by the recorder, sent immediately or dropped, never
// queued.
type AudioChunk struct {
	Data       []byte
	CapturedAt time.Time
	Seq        uint64
}

// Inbound message type discriminators recognized on the wire. Unknown types
// are logged and ignored.
const (
	MessageTranscript     = "transcript"
	MessageSummary        = "summary"
	MessageMeetingCreated = "meeting_created"
	MessageTasks          = "tasks"
	MessageError          = "error"
)

// InboundMessage is a tagged payload from the remote endpoint.
type InboundMessage struct {
	Type      string   `json:"type"`
	Text      string   `json:"text,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	MeetingID string   `json:"meetingId,omitempty"`
	Tasks     []string `json:"tasks,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// Outbound control frames bracketing the binary chunk stream.
type controlMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ProcessAudioRequest asks the backend to process a whole recording in one
// shot instead of a live chunk stream.
type ProcessAudioRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	AudioData string `json:"audioData"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
}

// WSToken is a short-lived websocket auth token minted from an API key.
type WSToken struct {
	Token     string
	ExpiresAt int64 // Unix milliseconds
}

// EventSink receives asynchronous status callbacks destined for the host UI.
// Calls arrive from the controller's event loop; implementations must not
// block for long.
type EventSink interface {
	StatusUpdate(text string)
	RecordingStarted()
	RecordingStopped(reason StopReason)
	TranscriptReceived(text string, timestamp int64)
	SummaryUpdated(text string)
	TasksUpdated(tasks []string)
	RecordingError(err *CaptureError)
}

// Handler types
type MessageHandler func(*InboundMessage)
type CloseHandler func(error)
