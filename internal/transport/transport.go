// Package transport implements the authoritative playback clock. Every other
// engine component reads position and state from here instead of querying a
// media element directly.
package transport

import (
	"sync"
)

// State is the playback state of the session clock.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// Transport is the single source of truth for playback position, state and
// global tempo. One instance per playback session; it is owned by the session
// and injected into every consumer, never global.
//
// Position advances only through Advance, which the audio generation path
// calls once per rendered block. Control operations (Start, Pause, Seek,
// SetTempo) are non-blocking; consumers observe them on their next scheduling
// tick via Snapshot.
type Transport struct {
	mu       sync.Mutex
	state    State
	position float64 // source-time seconds
	tempo    float64 // read-head rate, 1.0 = realtime
	duration float64 // source length; 0 = unbounded
	gen      uint64  // bumped on every discontinuity (seek, stop)
}

// Snapshot is a coherent view of the clock taken at one instant.
type Snapshot struct {
	Position   float64
	State      State
	Tempo      float64
	Generation uint64
}

func New() *Transport {
	return &Transport{tempo: 1.0}
}

// SetDuration sets the source length used to clamp position. Zero disables
// clamping at the top end.
func (t *Transport) SetDuration(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	t.duration = seconds
	t.position = t.clamp(t.position)
}

// Start begins playback at the given position. A negative position resumes
// from the current one. Calling Start while already Playing is a no-op.
func (t *Transport) Start(atPosition float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Playing {
		return
	}
	if atPosition >= 0 {
		t.position = t.clamp(atPosition)
		t.gen++
	}
	t.state = Playing
}

// Pause freezes the clock at its current position.
func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Playing {
		t.state = Paused
	}
}

// Stop halts playback and rewinds to zero.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Stopped
	t.position = 0
	t.gen++
}

// Seek repositions the clock immediately. The generation counter is bumped so
// consumers holding queued audio from before the jump know to discard it.
func (t *Transport) Seek(position float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = t.clamp(position)
	t.gen++
}

// SetTempo sets the global read-head rate. Values are clamped to [0.5, 2.0].
func (t *Transport) SetTempo(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rate < 0.5 {
		rate = 0.5
	}
	if rate > 2.0 {
		rate = 2.0
	}
	t.tempo = rate
}

// Advance moves the clock forward by outputSeconds of rendered audio. The
// source position moves tempo times as fast as the output. Called only by the
// generation path; returns the new position.
func (t *Transport) Advance(outputSeconds float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Playing || outputSeconds <= 0 {
		return t.position
	}
	t.position = t.clamp(t.position + outputSeconds*t.tempo)
	return t.position
}

func (t *Transport) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) Tempo() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tempo
}

// Generation returns the current discontinuity counter.
func (t *Transport) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Snapshot returns position, state, tempo and generation read under one lock,
// so the generation path never sees a torn update.
func (t *Transport) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{Position: t.position, State: t.state, Tempo: t.tempo, Generation: t.gen}
}

func (t *Transport) clamp(pos float64) float64 {
	if pos < 0 {
		return 0
	}
	if t.duration > 0 && pos > t.duration {
		return t.duration
	}
	return pos
}
