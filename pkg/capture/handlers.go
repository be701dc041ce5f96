package capture

import "time"

// Factory functions for common message handlers, for hosts that consume the
// transport directly rather than through a SessionController.

func CreateTranscriptHandler(callback func(text string, timestamp int64)) MessageHandler {
	return func(msg *InboundMessage) {
		if msg.Type != MessageTranscript || msg.Text == "" {
			return
		}
		callback(msg.Text, msg.Timestamp)
	}
}

func CreateSummaryHandler(callback func(summary string)) MessageHandler {
	return func(msg *InboundMessage) {
		if msg.Type != MessageSummary || msg.Summary == "" {
			return
		}
		callback(msg.Summary)
	}
}

func CreateTaskListHandler(callback func(tasks []string)) MessageHandler {
	return func(msg *InboundMessage) {
		if msg.Type != MessageTasks || len(msg.Tasks) == 0 {
			return
		}
		callback(msg.Tasks)
	}
}

func CreateMeetingCreatedHandler(callback func(meetingID string)) MessageHandler {
	return func(msg *InboundMessage) {
		if msg.Type != MessageMeetingCreated || msg.MeetingID == "" {
			return
		}
		callback(msg.MeetingID)
	}
}

// CreateLoggingMessageHandler logs every recognized inbound message.
func CreateLoggingMessageHandler(verbose bool) MessageHandler {
	log := GetGlobalLogger().WithComponent("messages")
	return func(msg *InboundMessage) {
		if verbose {
			log.WithField("message", msg).Infof("Received %s at %s", msg.Type, time.Now().Format(time.RFC3339))
		} else {
			log.Infof("Received %s", msg.Type)
		}
	}
}

// LoggingSink is an EventSink that logs every callback. Useful for the CLI
// and as a default when a host does not care about a subset of events.
type LoggingSink struct {
	log *Logger
}

func NewLoggingSink() *LoggingSink {
	return &LoggingSink{log: GetGlobalLogger().WithComponent("sink")}
}

func (s *LoggingSink) StatusUpdate(text string) {
	s.log.Info(text)
}

func (s *LoggingSink) RecordingStarted() {
	s.log.Info("Recording started")
}

func (s *LoggingSink) RecordingStopped(reason StopReason) {
	s.log.WithField("reason", reason).Info("Recording stopped")
}

func (s *LoggingSink) TranscriptReceived(text string, timestamp int64) {
	s.log.WithField("timestamp", timestamp).Infof("Transcript: %s", text)
}

func (s *LoggingSink) SummaryUpdated(text string) {
	s.log.Infof("Summary: %s", text)
}

func (s *LoggingSink) TasksUpdated(tasks []string) {
	s.log.WithField("count", len(tasks)).Info("Task list updated")
}

func (s *LoggingSink) RecordingError(err *CaptureError) {
	s.log.LogError(err)
}
