package capture

import (
	"errors"
	"fmt"
	"sync"
)

// MixedStream is the single audio stream produced by combining the primary
// source with an optional secondary source. With no secondary it is a
// zero-copy passthrough of the primary handle.
type MixedStream struct {
	primary AudioHandle
	graph   *mixGraph
}

// Mix merges the sources into one stream. Graph construction failure is
// recovered locally: the error is logged and the mixed stream degrades to
// primary-only. The session never fails because of the mixer.
func Mix(primary AudioHandle, secondary AudioHandle) *MixedStream {
	if secondary == nil {
		return &MixedStream{primary: primary}
	}

	graph, err := newMixGraph(primary, secondary)
	if err != nil {
		GetGlobalLogger().WithComponent("mixer").LogError(NewMixerError(err))
		return &MixedStream{primary: primary}
	}

	// The graph starts suspended; resume launches the pumps.
	graph.resume()
	return &MixedStream{primary: primary, graph: graph}
}

func (m *MixedStream) Read(p []float32) (int, error) {
	if m.graph != nil {
		return m.graph.read(p)
	}
	return m.primary.Read(p)
}

func (m *MixedStream) SampleRate() int {
	return m.primary.SampleRate()
}

// Close stops the mix graph. It does not release the underlying handles;
// those are owned by the session.
func (m *MixedStream) Close() {
	if m.graph != nil {
		m.graph.close()
	}
}

// Mixed reports whether a secondary source is actually being mixed in.
func (m *MixedStream) Mixed() bool {
	return m.graph != nil
}

// maxPendingLead caps how many samples the secondary source may run ahead of
// the drain point; a runaway loopback device otherwise grows the shared
// buffer without bound.
const maxPendingLead = 16384

// mixGraph pumps both sources into a shared additive buffer. The drain
// cadence follows the primary source; the secondary contributes whatever it
// has produced so far, so a stalled loopback device cannot stall the session.
type mixGraph struct {
	sources [2]AudioHandle

	mu      sync.Mutex
	cond    *sync.Cond
	buf     []float32
	written [2]int
	running bool
	closed  bool

	wg sync.WaitGroup
}

func newMixGraph(primary, secondary AudioHandle) (*mixGraph, error) {
	if primary == nil || secondary == nil {
		return nil, errors.New("mix graph needs two sources")
	}
	if primary.SampleRate() != secondary.SampleRate() {
		return nil, fmt.Errorf("sample rate mismatch: primary %d, secondary %d",
			primary.SampleRate(), secondary.SampleRate())
	}

	g := &mixGraph{sources: [2]AudioHandle{primary, secondary}}
	g.cond = sync.NewCond(&g.mu)
	return g, nil
}

// resume starts the pump goroutines and blocks until the graph is running.
func (g *mixGraph) resume() {
	g.mu.Lock()
	if g.running || g.closed {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.mu.Unlock()

	g.wg.Add(2)
	for i := range g.sources {
		go g.pump(i)
	}
}

func (g *mixGraph) pump(idx int) {
	defer g.wg.Done()

	const gain = 0.5
	local := make([]float32, 512)
	for {
		g.mu.Lock()
		closed := g.closed
		g.mu.Unlock()
		if closed {
			return
		}

		n, err := g.sources[idx].Read(local)
		if n > 0 {
			g.mu.Lock()
			for idx != 0 && g.written[idx]-g.written[0] >= maxPendingLead && !g.closed {
				g.cond.Wait()
			}
			if g.closed {
				g.mu.Unlock()
				return
			}
			offset := g.written[idx]
			if need := offset + n; need > len(g.buf) {
				g.buf = append(g.buf, make([]float32, need-len(g.buf))...)
			}
			for i := 0; i < n; i++ {
				g.buf[offset+i] += local[i] * gain
			}
			g.written[idx] = offset + n
			if idx == 0 {
				g.cond.Broadcast()
			}
			g.mu.Unlock()
		}
		if err != nil {
			g.mu.Lock()
			// Primary exhaustion ends the stream; a dead secondary
			// just stops contributing.
			if idx == 0 {
				g.closed = true
				g.cond.Broadcast()
			}
			g.mu.Unlock()
			return
		}
	}
}

func (g *mixGraph) read(p []float32) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.written[0] == 0 && !g.closed {
		g.cond.Wait()
	}
	if g.written[0] == 0 && g.closed {
		return 0, errors.New("mix graph closed")
	}

	n := g.written[0]
	if n > len(p) {
		n = len(p)
	}
	for i := 0; i < n; i++ {
		p[i] = clampSample(g.buf[i])
	}

	g.buf = g.buf[n:]
	for i := range g.written {
		g.written[i] -= n
		if g.written[i] < 0 {
			g.written[i] = 0
		}
	}
	// Wake a secondary pump waiting for the drain point to catch up.
	g.cond.Broadcast()
	return n, nil
}

func (g *mixGraph) close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.cond.Broadcast()
	g.mu.Unlock()
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
