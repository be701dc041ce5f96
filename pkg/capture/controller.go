package capture

import (
	"context"
	"sync"
	"time"
)

type eventKind int

const (
	cmdStart eventKind = iota
	cmdStop
	cmdShutdown
	evAcquired
	evAcquireFailed
	evConnected
	evConnectFailed
	evTransportClosed
	evInbound
)

// event is one entry in the controller's queue: a host command or an
// asynchronous result from acquisition, connect, or the transport. Events
// from a session that is no longer current are dropped on arrival.
type event struct {
	kind      eventKind
	sessionID string
	primary   AudioHandle
	secondary AudioHandle
	cerr      *CaptureError
	cause     error
	msg       *InboundMessage
}

// SessionController orchestrates the capture session lifecycle:
// Idle -> Acquiring -> Connecting -> Streaming -> Stopping -> Idle, with every
// failure path converging on the same teardown sequence. All state lives on a
// single event-loop goroutine; commands and transport events are queued, then
// validated against the current state.
type SessionController struct {
	devices      DeviceProvider
	newTransport func() Transport
	coord        ContextCoordinator
	sink         EventSink
	cfg          *Config
	log          *Logger

	events    chan event
	done      chan struct{}
	closeOnce sync.Once
	inflight  sync.WaitGroup

	mu      sync.Mutex
	state   SessionState
	sess    *CaptureSession
	stopReq bool
}

func NewSessionController(
	devices DeviceProvider,
	newTransport func() Transport,
	coord ContextCoordinator,
	sink EventSink,
	cfg *Config,
) *SessionController {
	if cfg == nil {
		cfg = NewConfig()
	}
	c := &SessionController{
		devices:      devices,
		newTransport: newTransport,
		coord:        coord,
		sink:         sink,
		cfg:          cfg,
		log:          GetGlobalLogger().WithComponent("controller"),
		events:       make(chan event, 32),
		done:         make(chan struct{}),
		state:        StateIdle,
	}
	go c.run()
	return c
}

// Start begins a new capture session. Fire-and-forget: progress is reported
// through the EventSink. Starting while a session is active is a no-op.
func (c *SessionController) Start() {
	c.post(event{kind: cmdStart})
}

// Stop ends the active session. Honored even while still acquiring or
// connecting: the stop intent is recorded and in-flight results are
// discarded on arrival.
func (c *SessionController) Stop() {
	c.post(event{kind: cmdStop})
}

// Close shuts the controller down, tearing down any active session first.
func (c *SessionController) Close() {
	c.closeOnce.Do(func() {
		c.post(event{kind: cmdShutdown})
	})
	<-c.done
}

// Status returns a snapshot for host display (state, elapsed, counters).
func (c *SessionController) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{State: c.state}
	if c.sess != nil {
		status.SessionID = c.sess.ID
		status.MeetingID = c.sess.MeetingID
		status.Elapsed = time.Since(c.sess.StartedAt)
		if c.sess.recorder != nil {
			status.ChunksSent, status.ChunksDropped = c.sess.recorder.Stats()
		}
	}
	return status
}

// Capabilities reports which required capabilities are present so hosts can
// disable the start control pre-emptively.
func (c *SessionController) Capabilities() CapabilityReport {
	return c.devices.Capabilities()
}

func (c *SessionController) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
		// The controller shut down while this sender was in flight; free
		// anything the event carries.
		c.discardStale(ev)
	}
}

// run exits on shutdown only after every in-flight acquisition has posted its
// result and the queue has been drained, so device handles opened by a
// session that outlived Close are still released.
func (c *SessionController) run() {
	for ev := range c.events {
		if ev.kind == cmdShutdown {
			c.teardown(StopReasonUser)
			close(c.done)
			c.inflight.Wait()
			c.drainEvents()
			return
		}
		c.handle(ev)
	}
}

// drainEvents releases resources carried by events still sitting in the
// queue. Senders cannot block anymore once done is closed.
func (c *SessionController) drainEvents() {
	for {
		select {
		case ev := <-c.events:
			c.discardStale(ev)
		default:
			return
		}
	}
}

func (c *SessionController) handle(ev event) {
	// In-flight calls are not forcibly aborted, so results from a
	// superseded session arrive late; discard them, releasing anything
	// they carry.
	if ev.sessionID != "" && (c.sess == nil || c.sess.ID != ev.sessionID) {
		c.discardStale(ev)
		return
	}

	switch ev.kind {
	case cmdStart:
		c.handleStart()
	case cmdStop:
		c.handleStop()
	case evAcquired:
		c.handleAcquired(ev)
	case evAcquireFailed:
		c.handleAcquireFailed(ev)
	case evConnected:
		c.handleConnected()
	case evConnectFailed:
		c.handleConnectFailed(ev)
	case evTransportClosed:
		c.handleTransportClosed(ev)
	case evInbound:
		c.handleInbound(ev.msg)
	}
}

func (c *SessionController) discardStale(ev event) {
	if ev.primary != nil {
		_ = ev.primary.Release()
	}
	if ev.secondary != nil {
		_ = ev.secondary.Release()
	}
	c.log.WithField("session_id", ev.sessionID).Debug("Discarding event for stale session")
}

func (c *SessionController) handleStart() {
	if c.state != StateIdle {
		c.log.WithField("state", c.state).Warn("Start ignored: session already active")
		return
	}

	sess := newCaptureSession()
	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	c.setState(StateAcquiring)
	c.log.LogSessionEvent(sess.ID, StateAcquiring, "session_started")
	c.sink.StatusUpdate("Requesting audio devices...")

	if cerr := c.coord.EnsureContext(); cerr != nil {
		c.failSession(cerr)
		return
	}

	c.inflight.Add(1)
	go func(id string) {
		defer c.inflight.Done()

		primary, cerr := c.devices.AcquirePrimary(context.Background())
		if cerr != nil {
			c.post(event{kind: evAcquireFailed, sessionID: id, cerr: cerr})
			return
		}
		secondary, err := c.devices.AcquireSecondary(context.Background())
		if err != nil {
			c.log.WithError(err).Warn("Secondary audio unavailable, continuing with microphone only")
			secondary = nil
		}
		c.post(event{kind: evAcquired, sessionID: id, primary: primary, secondary: secondary})
	}(sess.ID)
}

func (c *SessionController) handleStop() {
	switch c.state {
	case StateIdle, StateStopping:
		c.log.WithField("state", c.state).Warn("Stop ignored: no active session")
	case StateAcquiring, StateConnecting:
		c.mu.Lock()
		c.stopReq = true
		c.mu.Unlock()
		c.sink.StatusUpdate("Stopping...")
	case StateStreaming:
		c.teardown(StopReasonUser)
	}
}

func (c *SessionController) handleAcquired(ev event) {
	if c.state != StateAcquiring {
		c.discardStale(ev)
		return
	}
	if c.stopRequested() {
		if ev.primary != nil {
			_ = ev.primary.Release()
		}
		if ev.secondary != nil {
			_ = ev.secondary.Release()
		}
		c.teardown(StopReasonUser)
		return
	}

	sess := c.sess
	sess.primary = ev.primary
	sess.secondary = ev.secondary
	sess.mixed = Mix(ev.primary, ev.secondary)
	if sess.mixed.Mixed() {
		c.sink.StatusUpdate("Capturing microphone and system audio")
	} else if ev.secondary == nil {
		c.sink.StatusUpdate("Capturing microphone only")
	}

	c.setState(StateConnecting)
	c.sink.StatusUpdate("Connecting to processing service...")

	transport := c.newTransport()
	sess.transport = transport
	id := sess.ID
	transport.OnMessage(func(msg *InboundMessage) {
		c.post(event{kind: evInbound, sessionID: id, msg: msg})
	})
	transport.OnClose(func(err error) {
		c.post(event{kind: evTransportClosed, sessionID: id, cause: err})
	})

	go func() {
		if cerr := transport.Connect(context.Background(), c.cfg.ConnectTimeout); cerr != nil {
			c.post(event{kind: evConnectFailed, sessionID: id, cerr: cerr})
			return
		}
		c.post(event{kind: evConnected, sessionID: id})
	}()
}

func (c *SessionController) handleAcquireFailed(ev event) {
	if c.state != StateAcquiring {
		return
	}
	if c.stopRequested() {
		c.teardown(StopReasonUser)
		return
	}
	c.failSession(ev.cerr)
}

func (c *SessionController) handleConnected() {
	if c.state != StateConnecting {
		return
	}
	if c.stopRequested() {
		c.teardown(StopReasonUser)
		return
	}

	sess := c.sess
	recorder, cerr := NewChunkRecorder(c.cfg.Encodings, c.cfg.ChunkInterval)
	if cerr != nil {
		c.failSession(cerr)
		return
	}
	// Status reads the recorder pointer for counters.
	c.mu.Lock()
	sess.recorder = recorder
	c.mu.Unlock()

	if err := sess.transport.SendControl(controlMessage{
		Type:      "recording_started",
		SessionID: sess.ID,
		UserID:    c.cfg.UserID,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		c.log.WithError(err).Warn("Failed to announce recording start")
	}

	recorder.Begin(sess.mixed, sess.transport)
	c.setState(StateStreaming)
	c.log.LogSessionEvent(sess.ID, StateStreaming, "streaming_started")
	c.sink.RecordingStarted()
	c.sink.StatusUpdate("Recording...")
}

func (c *SessionController) handleConnectFailed(ev event) {
	if c.state != StateConnecting {
		return
	}
	if c.stopRequested() {
		c.teardown(StopReasonUser)
		return
	}
	c.failSession(ev.cerr)
}

func (c *SessionController) handleTransportClosed(ev event) {
	if c.state != StateStreaming {
		return
	}
	c.sink.RecordingError(NewUnexpectedDisconnectError(ev.cause))
	c.teardown(StopReasonDisconnected)
}

// handleInbound relays results to the host. Inbound messages never mutate
// session state beyond recording the meeting correlation.
func (c *SessionController) handleInbound(msg *InboundMessage) {
	if msg == nil {
		return
	}
	switch msg.Type {
	case MessageTranscript:
		c.sink.TranscriptReceived(msg.Text, msg.Timestamp)
	case MessageSummary:
		c.sink.SummaryUpdated(msg.Summary)
	case MessageTasks:
		c.sink.TasksUpdated(msg.Tasks)
	case MessageMeetingCreated:
		c.mu.Lock()
		if c.sess != nil {
			c.sess.MeetingID = msg.MeetingID
		}
		c.mu.Unlock()
		c.log.WithField("meeting_id", msg.MeetingID).Info("Meeting created")
	case MessageError:
		c.sink.RecordingError(NewServerError(msg.Message))
	}
}

func (c *SessionController) failSession(cerr *CaptureError) {
	c.log.LogError(cerr)
	c.sink.RecordingError(cerr)
	c.teardown(StopReasonFailed)
}

// teardown is the single cleanup path. Every exit route (user stop,
// unsolicited disconnect, acquisition or connect failure, shutdown) runs this
// sequence and nothing else: stop the recorder, close the transport, release
// the handles, notify the coordinator, land in Idle. Each step is idempotent,
// so racing exit routes cannot double-release anything.
func (c *SessionController) teardown(reason StopReason) {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.state = StateStopping
	sess := c.sess
	c.mu.Unlock()

	streaming := false
	if sess != nil {
		if sess.recorder != nil {
			streaming = true
			sess.recorder.End()
		}
		if sess.transport != nil {
			if reason == StopReasonUser && sess.transport.IsOpen() {
				_ = sess.transport.SendControl(controlMessage{
					Type:      "recording_stopped",
					SessionID: sess.ID,
					UserID:    c.cfg.UserID,
					Timestamp: time.Now().Unix(),
				})
			}
			sess.transport.Close()
		}
		sess.release(c.log)
		c.log.LogSessionEvent(sess.ID, StateStopping, "teardown_complete")
	}
	c.coord.DestroyContext()

	c.mu.Lock()
	c.state = StateIdle
	c.sess = nil
	c.stopReq = false
	c.mu.Unlock()

	switch reason {
	case StopReasonUser:
		if streaming {
			c.sink.RecordingStopped(StopReasonUser)
		} else {
			c.sink.StatusUpdate("Stopped")
		}
	case StopReasonDisconnected:
		c.sink.RecordingStopped(StopReasonDisconnected)
	}
}

func (c *SessionController) stopRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopReq
}

func (c *SessionController) setState(state SessionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
