package capture

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// Supported chunk encodings, in the order the runtime can produce them.
const (
	EncodingPCM16  = "pcm_s16le"
	EncodingPCMF32 = "pcm_f32le"
)

func supportedEncodings() []string {
	return []string{EncodingPCM16, EncodingPCMF32}
}

type chunkEncoder func(samples []float32) []byte

// probeEncoding selects the first preferred encoding the runtime supports.
func probeEncoding(preferred []string) (string, chunkEncoder, *CaptureError) {
	supported := supportedEncodings()
	for _, want := range preferred {
		for _, have := range supported {
			if want != have {
				continue
			}
			switch want {
			case EncodingPCM16:
				return want, encodePCM16, nil
			case EncodingPCMF32:
				return want, encodePCMF32, nil
			}
		}
	}
	return "", nil, NewNoSupportedFormatError(preferred)
}

func encodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(clampSample(s) * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func encodePCMF32(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

// ChunkRecorder slices the mixed stream into fixed-interval chunks and
// forwards each one to the transport the instant it is produced. Chunks that
// fire while the transport is not open are dropped, not queued; delivery is
// at most once.
type ChunkRecorder struct {
	encoding string
	encode   chunkEncoder
	interval time.Duration
	log      *Logger

	mu      sync.Mutex
	acc     []float32
	seq     uint64
	dropped uint64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	begun    bool
}

// NewChunkRecorder probes the preferred encodings and fails with
// NO_SUPPORTED_FORMAT if none match.
func NewChunkRecorder(preferred []string, interval time.Duration) (*ChunkRecorder, *CaptureError) {
	encoding, encode, err := probeEncoding(preferred)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = defaultChunkInterval
	}
	return &ChunkRecorder{
		encoding: encoding,
		encode:   encode,
		interval: interval,
		log:      GetGlobalLogger().WithComponent("recorder"),
		stop:     make(chan struct{}),
	}, nil
}

func (r *ChunkRecorder) Encoding() string {
	return r.encoding
}

// Begin starts the periodic recorder on stream.
func (r *ChunkRecorder) Begin(stream *MixedStream, transport Transport) {
	r.mu.Lock()
	if r.begun {
		r.mu.Unlock()
		return
	}
	r.begun = true
	r.mu.Unlock()

	r.wg.Add(2)
	go r.readLoop(stream)
	go r.tickLoop(transport)
}

func (r *ChunkRecorder) readLoop(stream *MixedStream) {
	defer r.wg.Done()

	buf := make([]float32, 1024)
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		n, err := stream.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.acc = append(r.acc, buf[:n]...)
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func (r *ChunkRecorder) tickLoop(transport Transport) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			// Flush whatever accumulated since the last tick.
			r.emit(transport)
			return
		case <-ticker.C:
			r.emit(transport)
		}
	}
}

func (r *ChunkRecorder) emit(transport Transport) {
	r.mu.Lock()
	samples := r.acc
	r.acc = nil
	r.mu.Unlock()

	if len(samples) == 0 {
		return
	}

	chunk := AudioChunk{
		Data:       r.encode(samples),
		CapturedAt: time.Now(),
	}

	if !transport.IsOpen() {
		r.mu.Lock()
		r.dropped++
		dropped := r.dropped
		r.mu.Unlock()
		r.log.LogChunkEvent("dropped", dropped, len(chunk.Data))
		return
	}

	r.mu.Lock()
	r.seq++
	chunk.Seq = r.seq
	r.mu.Unlock()

	transport.Send(chunk)
	r.log.LogChunkEvent("sent", chunk.Seq, len(chunk.Data))
}

// End stops the periodic recorder. Idempotent; calling it when already
// stopped is a no-op.
func (r *ChunkRecorder) End() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// Stats returns the number of chunks sent and dropped so far.
func (r *ChunkRecorder) Stats() (sent, dropped uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq, r.dropped
}
