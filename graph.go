package vocaltune

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ricky40043/vocaltune/internal/grain"
	"github.com/ricky40043/vocaltune/internal/mic"
	"github.com/ricky40043/vocaltune/internal/mixer"
	"github.com/ricky40043/vocaltune/internal/transport"
)

// lane is one track's slot in the generation path.
type lane struct {
	id      TrackID
	engine  *grain.Engine
	gain    *mixer.Ramp
	lastGen uint64
	scratch []float32
}

// sessionGraph is the generation path: it pulls every engine, applies mixer
// gains, sums into the output block and advances the transport. It runs on
// the audio goroutine; the control path only touches it through addLane,
// removeLane and the components' own atomic parameters.
type sessionGraph struct {
	mu         sync.Mutex
	lanes      []*lane
	tr         *transport.Transport
	master     *mixer.Ramp
	sampleRate int
	monitor    *mic.Monitor // nil unless the mic add-on is enabled
	onEnd      func()
	ended      bool
}

func newSessionGraph(tr *transport.Transport, master *mixer.Ramp, sampleRate int) *sessionGraph {
	return &sessionGraph{tr: tr, master: master, sampleRate: sampleRate}
}

func (g *sessionGraph) addLane(id TrackID, engine *grain.Engine, gain *mixer.Ramp) {
	g.mu.Lock()
	defer g.mu.Unlock()
	// Force a head sync on the lane's first block.
	g.lanes = append(g.lanes, &lane{id: id, engine: engine, gain: gain, lastGen: ^uint64(0)})
}

func (g *sessionGraph) removeLane(id TrackID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, l := range g.lanes {
		if l.id == id {
			g.lanes = append(g.lanes[:i], g.lanes[i+1:]...)
			return
		}
	}
}

func (g *sessionGraph) laneOrder() []uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]uuid.UUID, len(g.lanes))
	for i, l := range g.lanes {
		out[i] = l.id
	}
	return out
}

func (g *sessionGraph) setMonitor(m *mic.Monitor) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.monitor = m
}

func (g *sessionGraph) setOnEnd(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onEnd = fn
}

// Process renders one interleaved stereo block. Transport state and every
// parameter change issued before this call are observed here, which is what
// bounds control-to-audio latency to one block.
func (g *sessionGraph) Process(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
	frames := len(dst) / 2

	g.mu.Lock()
	defer g.mu.Unlock()

	snap := g.tr.Snapshot()
	if snap.State == transport.Playing {
		live := 0
		for _, l := range g.lanes {
			if l.lastGen != snap.Generation {
				// Discontinuity: discard queued grains, re-seat the head.
				l.engine.SetPosition(snap.Position)
				l.lastGen = snap.Generation
			}
			l.engine.SetTempo(snap.Tempo)
			if cap(l.scratch) < len(dst) {
				l.scratch = make([]float32, len(dst))
			}
			l.scratch = l.scratch[:len(dst)]
			live += l.engine.Process(l.scratch)
			l.gain.Apply(l.scratch, 2)
			for i := range dst {
				dst[i] += l.scratch[i]
			}
		}
		g.master.Apply(dst, 2)
		g.tr.Advance(float64(frames) / float64(g.sampleRate))
		if live == 0 && len(g.lanes) > 0 && !g.ended {
			g.ended = true
			if g.onEnd != nil {
				go g.onEnd()
			}
		} else if live > 0 {
			g.ended = false
		}
	}

	if g.monitor != nil {
		g.monitor.MixInto(dst)
	}
}
