package capture

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func newSteadyStream() (*MixedStream, *scriptedHandle) {
	handle := &scriptedHandle{rate: 16000, value: 0.5, remaining: 1 << 24, delay: time.Millisecond}
	return Mix(handle, nil), handle
}

func TestRecorderStreamsOrderedChunks(t *testing.T) {
	t.Parallel()

	stream, handle := newSteadyStream()
	defer handle.Release()

	transport := newFakeTransport()
	if cerr := transport.Connect(context.Background(), time.Second); cerr != nil {
		t.Fatalf("fake connect failed: %v", cerr)
	}

	recorder, cerr := NewChunkRecorder([]string{EncodingPCM16}, 5*time.Millisecond)
	if cerr != nil {
		t.Fatalf("recorder construction failed: %v", cerr)
	}
	if recorder.Encoding() != EncodingPCM16 {
		t.Fatalf("unexpected encoding %s", recorder.Encoding())
	}

	recorder.Begin(stream, transport)
	waitFor(t, "chunks sent", func() bool { return transport.sentCount() >= 3 })
	recorder.End()
	recorder.End()

	chunks := transport.sentChunks()
	for i, chunk := range chunks {
		if chunk.Seq != uint64(i+1) {
			t.Fatalf("chunk %d carries seq %d", i, chunk.Seq)
		}
		if len(chunk.Data) == 0 || len(chunk.Data)%2 != 0 {
			t.Fatalf("chunk %d has malformed pcm_s16le payload of %d bytes", i, len(chunk.Data))
		}
	}

	sent, dropped := recorder.Stats()
	if sent < 3 || dropped != 0 {
		t.Fatalf("unexpected stats sent=%d dropped=%d", sent, dropped)
	}
}

func TestRecorderDropsWhenTransportNotOpen(t *testing.T) {
	t.Parallel()

	stream, handle := newSteadyStream()
	defer handle.Release()

	transport := newFakeTransport()

	recorder, cerr := NewChunkRecorder([]string{EncodingPCM16}, 5*time.Millisecond)
	if cerr != nil {
		t.Fatalf("recorder construction failed: %v", cerr)
	}

	recorder.Begin(stream, transport)
	waitFor(t, "chunks dropped", func() bool {
		_, dropped := recorder.Stats()
		return dropped >= 2
	})
	recorder.End()

	sent, _ := recorder.Stats()
	if sent != 0 {
		t.Fatalf("nothing may be sent on a closed transport, sent=%d", sent)
	}
	if transport.sentCount() != 0 {
		t.Fatalf("closed transport received %d chunks", transport.sentCount())
	}
}

func TestRecorderBeginIsIdempotent(t *testing.T) {
	t.Parallel()

	stream, handle := newSteadyStream()
	defer handle.Release()

	transport := newFakeTransport()
	_ = transport.Connect(context.Background(), time.Second)

	recorder, _ := NewChunkRecorder([]string{EncodingPCM16}, 5*time.Millisecond)
	recorder.Begin(stream, transport)
	recorder.Begin(stream, transport)

	waitFor(t, "chunks sent", func() bool { return transport.sentCount() >= 3 })
	recorder.End()

	chunks := transport.sentChunks()
	for i, chunk := range chunks {
		if chunk.Seq != uint64(i+1) {
			t.Fatalf("duplicate recorder loops detected at chunk %d (seq %d)", i, chunk.Seq)
		}
	}
}

func TestProbeEncodingPrefersFirstSupported(t *testing.T) {
	t.Parallel()

	encoding, encode, cerr := probeEncoding([]string{"audio/webm", EncodingPCMF32, EncodingPCM16})
	if cerr != nil {
		t.Fatalf("probe failed: %v", cerr)
	}
	if encoding != EncodingPCMF32 || encode == nil {
		t.Fatalf("expected pcm_f32le, got %s", encoding)
	}
}

func TestProbeEncodingRejectsUnsupported(t *testing.T) {
	t.Parallel()

	_, _, cerr := probeEncoding([]string{"audio/webm", "opus"})
	if cerr == nil || cerr.Code != ErrCodeNoSupportedFormat {
		t.Fatalf("expected NO_SUPPORTED_FORMAT, got %v", cerr)
	}

	if _, cerr := NewChunkRecorder([]string{"opus"}, time.Second); cerr == nil || cerr.Code != ErrCodeNoSupportedFormat {
		t.Fatalf("recorder must refuse unsupported encodings, got %v", cerr)
	}
}

func TestEncodePCM16(t *testing.T) {
	t.Parallel()

	out := encodePCM16([]float32{0, 1, -1})
	if len(out) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(out))
	}
	if v := int16(binary.LittleEndian.Uint16(out[0:])); v != 0 {
		t.Fatalf("silence must encode to 0, got %d", v)
	}
	if v := int16(binary.LittleEndian.Uint16(out[2:])); v != math.MaxInt16 {
		t.Fatalf("full scale must encode to %d, got %d", math.MaxInt16, v)
	}
	if v := int16(binary.LittleEndian.Uint16(out[4:])); v != -math.MaxInt16 {
		t.Fatalf("negative full scale must encode to %d, got %d", -math.MaxInt16, v)
	}
}

func TestEncodePCMF32(t *testing.T) {
	t.Parallel()

	samples := []float32{0.125, -0.5}
	out := encodePCMF32(samples)
	if len(out) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(out))
	}
	for i, want := range samples {
		got := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
		if got != want {
			t.Fatalf("sample %d roundtrip mismatch: %f != %f", i, got, want)
		}
	}
}
