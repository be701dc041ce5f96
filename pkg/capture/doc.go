// Package capture provides a real-time audio capture and streaming session
// manager: it acquires microphone and optional system (loopback) audio,
// merges them into a single stream, slices the stream into fixed-interval
// chunks, and forwards each chunk over a websocket to a remote processing
// service that answers with transcripts, summaries, and task lists.
//
// # Overview
//
// The package is built from five pieces:
//
//   - DeviceProvider acquires audio sources and classifies failures
//     (permission denied, no device, unsupported environment).
//   - Mix merges primary and secondary sources, degrading to microphone-only
//     when the secondary source is missing or the mix graph cannot be built.
//   - ChunkRecorder emits one chunk per interval and forwards it to the
//     transport if and only if the connection is open; otherwise the chunk is
//     dropped. Delivery is at most once.
//   - WSTransport owns the duplex connection: connect with timeout,
//     fire-and-forget binary sends, JSON message dispatch, idempotent close.
//   - SessionController drives the whole lifecycle on a single event loop:
//     Idle -> Acquiring -> Connecting -> Streaming -> Stopping -> Idle, with
//     every failure path converging on one teardown sequence.
//
// # Quick Start
//
//	cfg := capture.NewConfig()
//	coord := capture.NewRuntimeCoordinator()
//	controller := capture.NewSessionController(
//		capture.NewPortAudioProvider(cfg),
//		func() capture.Transport { return capture.NewWSTransport(cfg) },
//		coord,
//		capture.NewLoggingSink(),
//		cfg,
//	)
//
//	controller.Start()
//	// ... recording; transcripts arrive via the sink ...
//	controller.Stop()
//	controller.Close()
//
// # Failure model
//
// Every acquisition and connect call site maps errors into a closed taxonomy
// (CaptureError codes). All taxonomy members except MIXER_FAILED and
// SERVER_ERROR end the current session through the teardown path; none of
// them crash the process.
// There is no automatic reconnect: a failed session fully tears down and a
// new one requires an explicit Start.
package capture
