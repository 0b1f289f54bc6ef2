// Package mixer derives each track's effective gain from its volume, mute and
// solo state and applies it with a short linear ramp so toggles never click.
package mixer

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Ramp is a slew-limited gain shared between the control path (which sets the
// target) and the generation path (which applies it per frame). The target is
// a bit-cast atomic so the audio thread reads it lock-free.
type Ramp struct {
	targetBits atomic.Uint64
	current    float64 // generation-path owned
	step       float64 // max gain delta per frame
}

func newRamp(initial float64, rampFrames int) *Ramp {
	r := &Ramp{current: initial}
	if rampFrames < 1 {
		rampFrames = 1
	}
	r.step = 1.0 / float64(rampFrames)
	r.targetBits.Store(math.Float64bits(initial))
	return r
}

func (r *Ramp) setTarget(g float64) {
	r.targetBits.Store(math.Float64bits(g))
}

// Target returns the gain the ramp is converging to.
func (r *Ramp) Target() float64 {
	return math.Float64frombits(r.targetBits.Load())
}

// Tick advances the ramp by one frame and returns the gain for that frame.
func (r *Ramp) Tick() float64 {
	target := r.Target()
	diff := target - r.current
	switch {
	case diff > r.step:
		r.current += r.step
	case diff < -r.step:
		r.current -= r.step
	default:
		r.current = target
	}
	return r.current
}

// Apply scales interleaved audio in place, advancing the ramp once per frame.
func (r *Ramp) Apply(buf []float32, channels int) {
	for f := 0; f*channels < len(buf); f++ {
		g := float32(r.Tick())
		for c := 0; c < channels; c++ {
			buf[f*channels+c] *= g
		}
	}
}

type strip struct {
	volume float64
	muted  bool
	soloed bool
	gain   *Ramp
}

// Mixer holds per-track volume/mute/solo state and the master gain.
//
// Solo semantics are additive: when several tracks are soloed each remains
// audible at its own volume. This is intentional product behavior, not
// exclusive-solo; keep it.
type Mixer struct {
	mu         sync.Mutex
	tracks     map[uuid.UUID]*strip
	master     *Ramp
	rampFrames int
}

func New(sampleRate int, rampDuration time.Duration) *Mixer {
	rampFrames := int(rampDuration.Seconds() * float64(sampleRate))
	return &Mixer{
		tracks:     make(map[uuid.UUID]*strip),
		master:     newRamp(1.0, rampFrames),
		rampFrames: rampFrames,
	}
}

// AddTrack registers a track at the given volume, unmuted and unsoloed.
func (m *Mixer) AddTrack(id uuid.UUID, volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[id] = &strip{
		volume: clampGain(volume),
		gain:   newRamp(0, m.rampFrames),
	}
	m.recompute()
}

// RemoveTrack drops a track; remaining solo/mute state is re-resolved.
func (m *Mixer) RemoveTrack(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tracks, id)
	m.recompute()
}

func (m *Mixer) SetVolume(id uuid.UUID, volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.tracks[id]; ok {
		s.volume = clampGain(volume)
		m.recompute()
	}
}

func (m *Mixer) SetMute(id uuid.UUID, muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.tracks[id]; ok {
		s.muted = muted
		m.recompute()
	}
}

func (m *Mixer) SetSolo(id uuid.UUID, soloed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.tracks[id]; ok {
		s.soloed = soloed
		m.recompute()
	}
}

// SetMaster sets the post-mix master gain.
func (m *Mixer) SetMaster(volume float64) {
	m.master.setTarget(clampGain(volume))
}

// Master returns the master gain ramp for the generation path.
func (m *Mixer) Master() *Ramp {
	return m.master
}

// Gain returns the track's gain ramp for the generation path, or nil if the
// track is unknown.
func (m *Mixer) Gain(id uuid.UUID) *Ramp {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.tracks[id]; ok {
		return s.gain
	}
	return nil
}

// Effective returns the resolved target gain for a track: 0 if muted, 0 if
// another track is soloed and this one is not, otherwise the track's volume.
func (m *Mixer) Effective(id uuid.UUID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.tracks[id]; ok {
		return s.gain.Target()
	}
	return 0
}

// Volume returns the stored (not effective) volume for a track.
func (m *Mixer) Volume(id uuid.UUID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.tracks[id]; ok {
		return s.volume
	}
	return 0
}

// recompute re-resolves every strip's target gain. Caller holds m.mu.
func (m *Mixer) recompute() {
	anySolo := false
	for _, s := range m.tracks {
		if s.soloed {
			anySolo = true
			break
		}
	}
	for _, s := range m.tracks {
		switch {
		case s.muted:
			s.gain.setTarget(0)
		case anySolo && !s.soloed:
			s.gain.setTarget(0)
		default:
			s.gain.setTarget(s.volume)
		}
	}
}

func clampGain(g float64) float64 {
	if g < 0 {
		return 0
	}
	if g > 1 {
		return 1
	}
	return g
}
