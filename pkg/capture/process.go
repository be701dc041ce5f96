package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"time"

	"github.com/google/uuid"
)

// riff/WAVE magic at offsets 0 and 8.
var (
	riffMagic = []byte("RIFF")
	waveMagic = []byte("WAVE")
)

// LoadWAV reads a WAV file and returns its raw bytes after a minimal header
// check.
func LoadWAV(path string) ([]byte, *CaptureError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(err, ErrCodeNotSupported, "Failed to read audio file")
	}
	if len(data) < 44 || !bytes.Equal(data[:4], riffMagic) || !bytes.Equal(data[8:12], waveMagic) {
		return nil, NewCaptureError("File is not a WAV recording", ErrCodeNoSupportedFormat).
			AddDetail("path", path)
	}
	return data, nil
}

// ProcessAudioFile sends a whole recording for one-shot processing instead of
// a live chunk stream. The transport is connected, the request sent, and the
// connection closed; results come back through the registered message
// handler before the close completes on the server side, so callers that
// want them should register OnMessage first and keep the transport open
// themselves via SendProcessAudio.
func ProcessAudioFile(ctx context.Context, transport Transport, cfg *Config, path, title string) (string, *CaptureError) {
	data, cerr := LoadWAV(path)
	if cerr != nil {
		return "", cerr
	}

	if cerr := transport.Connect(ctx, cfg.ConnectTimeout); cerr != nil {
		return "", cerr
	}
	defer transport.Close()

	sessionID := uuid.NewString()
	if err := SendProcessAudio(transport, cfg, sessionID, data, title); err != nil {
		return "", err
	}
	return sessionID, nil
}

// SendProcessAudio sends the process_audio control frame on an open
// transport.
func SendProcessAudio(transport Transport, cfg *Config, sessionID string, wav []byte, title string) *CaptureError {
	req := ProcessAudioRequest{
		Type:      "process_audio",
		SessionID: sessionID,
		UserID:    cfg.UserID,
		AudioData: base64.StdEncoding.EncodeToString(wav),
		Title:     title,
		Timestamp: time.Now().Unix(),
	}
	if err := transport.SendControl(req); err != nil {
		return WrapError(err, ErrCodeConnectError, "Failed to send processing request")
	}
	return nil
}
