package effects

import (
	"math"
	"sync/atomic"
)

// RoomReverb is a Schroeder reverb (parallel combs into serial allpasses)
// sized for vocal monitoring. The wet mix is adjustable at runtime without
// locking; room size and decay are fixed at construction.
type RoomReverb struct {
	combs   [4]combFilter
	allpass [2]allpassFilter
	wetBits atomic.Uint32
}

type combFilter struct {
	buf []float32
	pos int
	fb  float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// NewRoomReverb creates a reverb. roomSize and decay are in [0,1]; wet is
// the initial wet/dry mix.
func NewRoomReverb(sampleRate int, roomSize, decay, wet float32) *RoomReverb {
	base := int(float32(sampleRate) * clamp(roomSize, 0, 1) * 0.05)
	if base < 10 {
		base = 10
	}
	fb := clamp(decay, 0, 0.95)
	r := &RoomReverb{}
	r.wetBits.Store(math.Float32bits(clamp(wet, 0, 1)))
	// Prime-ish length ratios avoid coincident resonances.
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combs {
		r.combs[i] = combFilter{buf: make([]float32, combLens[i]), fb: fb}
	}
	apLens := [2]int{base * 347 / 1000, base * 213 / 1000}
	for i := range r.allpass {
		r.allpass[i] = allpassFilter{buf: make([]float32, maxInt(apLens[i], 1)), fb: 0.5}
	}
	return r
}

// SetWet sets the wet/dry mix in [0,1].
func (r *RoomReverb) SetWet(wet float32) {
	r.wetBits.Store(math.Float32bits(clamp(wet, 0, 1)))
}

// Wet returns the current wet/dry mix.
func (r *RoomReverb) Wet() float32 {
	return math.Float32frombits(r.wetBits.Load())
}

func (r *RoomReverb) Process(l, rr float32) (float32, float32) {
	mono := (l + rr) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(mono)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	wet := r.Wet()
	return l*(1-wet) + out*wet, rr*(1-wet) + out*wet
}

func (r *RoomReverb) Reset() {
	for i := range r.combs {
		for j := range r.combs[i].buf {
			r.combs[i].buf[j] = 0
		}
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		for j := range r.allpass[i].buf {
			r.allpass[i].buf[j] = 0
		}
		r.allpass[i].pos = 0
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
