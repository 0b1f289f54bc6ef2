// Package grain implements the granular pitch/tempo engine. Tempo controls
// how fast the read head advances through the source; detune controls each
// grain's resampling ratio. The two never couple, which is what makes
// "same tempo, different pitch" (and vice versa) possible.
package grain

import (
	"math"
	"sync/atomic"
)

const (
	// GrainSeconds and OverlapSeconds are engine constants, not user
	// tunables. Fixed grain geometry keeps formant quality stable across
	// parameter changes.
	GrainSeconds   = 0.2
	OverlapSeconds = 0.05

	// MaxDetuneCents bounds pitch shift to +/-12 semitones.
	MaxDetuneCents = 1200

	maxGrains = 8
)

type grainVoice struct {
	active bool
	srcPos float64 // fractional source frame
	age    int     // output frames elapsed
	dur    int     // output frames total
	ratio  float64 // resample ratio captured at spawn
}

// Engine renders one track's buffer with independent pitch and tempo control.
//
// Control methods (SetDetune, SetTempo, SetPosition) are safe to call from
// the control path at any time; the generation path picks the new values up
// at the next block boundary. Process itself must only be called from a
// single goroutine.
type Engine struct {
	src        []float32 // interleaved, read-only
	channels   int
	sampleRate int

	detuneCents atomic.Int32
	tempoBits   atomic.Uint64        // float64 bit pattern
	pendingPos  atomic.Pointer[float64] // set by SetPosition, applied at block start

	readHead float64 // fractional source frame, generation-path owned
	grains   [maxGrains]grainVoice
	spawnIn  int // output frames until next grain spawn

	grainFrames int
	fadeFrames  int
	hopFrames   int
}

// New creates an engine over an interleaved source buffer. The buffer is
// never mutated.
func New(src []float32, sampleRate, channels int) *Engine {
	e := &Engine{
		src:        src,
		channels:   channels,
		sampleRate: sampleRate,
	}
	e.grainFrames = int(math.Round(GrainSeconds * float64(sampleRate)))
	e.fadeFrames = int(math.Round(OverlapSeconds * float64(sampleRate)))
	e.hopFrames = e.grainFrames - e.fadeFrames
	if e.hopFrames < 1 {
		e.hopFrames = 1
	}
	e.tempoBits.Store(math.Float64bits(1.0))
	return e
}

// SetDetune sets the pitch offset in cents, clamped to +/-1200.
func (e *Engine) SetDetune(cents int) {
	if cents > MaxDetuneCents {
		cents = MaxDetuneCents
	}
	if cents < -MaxDetuneCents {
		cents = -MaxDetuneCents
	}
	e.detuneCents.Store(int32(cents))
}

// Detune returns the current pitch offset in cents.
func (e *Engine) Detune() int {
	return int(e.detuneCents.Load())
}

// SetTempo sets the read-head advance rate. 1.0 = realtime.
func (e *Engine) SetTempo(rate float64) {
	if rate < 0.5 {
		rate = 0.5
	}
	if rate > 2.0 {
		rate = 2.0
	}
	e.tempoBits.Store(math.Float64bits(rate))
}

// Tempo returns the current read-head advance rate.
func (e *Engine) Tempo() float64 {
	return math.Float64frombits(e.tempoBits.Load())
}

// SetPosition moves the read head to the given source time. In-flight grains
// are discarded at the next block boundary rather than played across the
// discontinuity.
func (e *Engine) SetPosition(seconds float64) {
	pos := seconds * float64(e.sampleRate)
	e.pendingPos.Store(&pos)
}

// Position returns the read head in source seconds as of the last processed
// block.
func (e *Engine) Position() float64 {
	if p := e.pendingPos.Load(); p != nil {
		return *p / float64(e.sampleRate)
	}
	return e.readHead / float64(e.sampleRate)
}

// Bypassed reports whether the next block takes the identity path (raw
// buffer, no grain processing).
func (e *Engine) Bypassed() bool {
	return e.detuneCents.Load() == 0 && e.Tempo() == 1.0
}

// Duration returns the source length in seconds.
func (e *Engine) Duration() float64 {
	if e.channels == 0 {
		return 0
	}
	return float64(len(e.src)/e.channels) / float64(e.sampleRate)
}

// Process renders len(dst)/channels output frames into dst, mixing into
// whatever dst already holds is NOT done: dst is overwritten. Returns the
// number of frames that still had source material behind them; once the read
// head passes the end of the source the remainder is silence.
func (e *Engine) Process(dst []float32) int {
	e.applyPending()

	frames := len(dst) / e.channels
	srcFrames := len(e.src) / e.channels
	tempo := e.Tempo()
	cents := int(e.detuneCents.Load())

	if cents == 0 && tempo == 1.0 {
		return e.processBypass(dst, frames, srcFrames)
	}
	return e.processGrains(dst, frames, srcFrames, tempo, cents)
}

func (e *Engine) applyPending() {
	if p := e.pendingPos.Swap(nil); p != nil {
		e.readHead = *p
		for i := range e.grains {
			e.grains[i].active = false
		}
		e.spawnIn = 0
	}
}

// processBypass streams the raw source. Identity parameters must not pay the
// grain path's quality or latency cost.
func (e *Engine) processBypass(dst []float32, frames, srcFrames int) int {
	live := 0
	for f := 0; f < frames; f++ {
		base := int(e.readHead)
		if base >= srcFrames {
			for c := 0; c < e.channels; c++ {
				dst[f*e.channels+c] = 0
			}
			e.readHead++
			continue
		}
		for c := 0; c < e.channels; c++ {
			dst[f*e.channels+c] = e.src[base*e.channels+c]
		}
		e.readHead++
		live++
	}
	return live
}

func (e *Engine) processGrains(dst []float32, frames, srcFrames int, tempo float64, cents int) int {
	ratio := math.Pow(2, float64(cents)/1200.0)
	live := 0
	for f := 0; f < frames; f++ {
		if e.spawnIn <= 0 {
			e.spawn(ratio)
			e.spawnIn = e.hopFrames
		}
		e.spawnIn--

		var sum [8]float64 // up to 8 channels; we use the first e.channels
		for i := range e.grains {
			g := &e.grains[i]
			if !g.active {
				continue
			}
			env := e.envelope(g.age, g.dur)
			for c := 0; c < e.channels; c++ {
				sum[c] += env * e.readLinear(g.srcPos, c, srcFrames)
			}
			g.srcPos += g.ratio
			g.age++
			if g.age >= g.dur {
				g.active = false
			}
		}
		for c := 0; c < e.channels; c++ {
			dst[f*e.channels+c] = float32(sum[c])
		}
		if e.readHead < float64(srcFrames) {
			live++
		}
		e.readHead += tempo
	}
	return live
}

func (e *Engine) spawn(ratio float64) {
	for i := range e.grains {
		if e.grains[i].active {
			continue
		}
		e.grains[i] = grainVoice{
			active: true,
			srcPos: e.readHead,
			dur:    e.grainFrames,
			ratio:  ratio,
		}
		return
	}
}

// envelope is a trapezoid: fade-in over the overlap, flat, fade-out over the
// overlap. With grains spawned every grainFrames-fadeFrames output frames the
// fades of adjacent grains sum to unity.
func (e *Engine) envelope(age, dur int) float64 {
	if age < e.fadeFrames {
		return float64(age) / float64(e.fadeFrames)
	}
	if tail := dur - age; tail <= e.fadeFrames {
		return float64(tail) / float64(e.fadeFrames)
	}
	return 1.0
}

func (e *Engine) readLinear(pos float64, channel, srcFrames int) float64 {
	i0 := int(pos)
	if i0 < 0 || i0 >= srcFrames {
		return 0
	}
	frac := pos - float64(i0)
	v0 := float64(e.src[i0*e.channels+channel])
	i1 := i0 + 1
	if i1 >= srcFrames {
		return v0
	}
	v1 := float64(e.src[i1*e.channels+channel])
	return v0 + (v1-v0)*frac
}
