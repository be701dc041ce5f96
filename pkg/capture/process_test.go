package capture

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempWAV(t *testing.T, payload []byte) string {
	t.Helper()
	header := make([]byte, 44)
	copy(header[0:], riffMagic)
	copy(header[8:], waveMagic)
	path := filepath.Join(t.TempDir(), "recording.wav")
	if err := os.WriteFile(path, append(header, payload...), 0o644); err != nil {
		t.Fatalf("write temp wav: %v", err)
	}
	return path
}

func TestLoadWAV(t *testing.T) {
	t.Parallel()

	path := writeTempWAV(t, []byte{1, 2, 3})
	data, cerr := LoadWAV(path)
	if cerr != nil {
		t.Fatalf("load failed: %v", cerr)
	}
	if len(data) != 47 {
		t.Fatalf("unexpected payload size %d", len(data))
	}
}

func TestLoadWAVRejectsNonWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("meeting notes, definitely not audio data, padded out"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, cerr := LoadWAV(path); cerr == nil || cerr.Code != ErrCodeNoSupportedFormat {
		t.Fatalf("expected NO_SUPPORTED_FORMAT, got %v", cerr)
	}

	if _, cerr := LoadWAV(filepath.Join(t.TempDir(), "missing.wav")); cerr == nil {
		t.Fatalf("missing file must fail")
	}
}

func TestSendProcessAudio(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	_ = transport.Connect(context.Background(), time.Second)

	cfg := testConfig()
	cfg.UserID = "user-3"
	wav := []byte("RIFFxxxxWAVEdata")

	if cerr := SendProcessAudio(transport, cfg, "sess-1", wav, "standup"); cerr != nil {
		t.Fatalf("send failed: %v", cerr)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.controls) != 1 {
		t.Fatalf("expected one control frame, got %d", len(transport.controls))
	}
	req, ok := transport.controls[0].(ProcessAudioRequest)
	if !ok {
		t.Fatalf("unexpected frame %T", transport.controls[0])
	}
	if req.Type != "process_audio" || req.SessionID != "sess-1" || req.UserID != "user-3" || req.Title != "standup" {
		t.Fatalf("request mangled: %+v", req)
	}
	decoded, err := base64.StdEncoding.DecodeString(req.AudioData)
	if err != nil || string(decoded) != string(wav) {
		t.Fatalf("audio payload mangled: %v", err)
	}
}

func TestProcessAudioFileEndToEnd(t *testing.T) {
	t.Parallel()

	server := newWSTestServer(t)
	cfg := transportConfig(server.endpoint())
	transport := NewWSTransport(cfg)

	path := writeTempWAV(t, []byte{9, 9, 9})
	sessionID, cerr := ProcessAudioFile(context.Background(), transport, cfg, path, "retro")
	if cerr != nil {
		t.Fatalf("process failed: %v", cerr)
	}
	if sessionID == "" {
		t.Fatalf("expected a session id")
	}

	waitFor(t, "request on the server", func() bool { return len(server.textFrames()) == 1 })
	var req ProcessAudioRequest
	if err := json.Unmarshal(server.textFrames()[0], &req); err != nil {
		t.Fatalf("request is not JSON: %v", err)
	}
	if req.Type != "process_audio" || req.SessionID != sessionID || req.Title != "retro" {
		t.Fatalf("request mangled: %+v", req)
	}
	if transport.IsOpen() {
		t.Fatalf("transport must be closed after one-shot processing")
	}
}
