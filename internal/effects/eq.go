package effects

import (
	"math"
	"sync/atomic"
)

// MonitorEQ is a 3-band equalizer for the mic monitor path. Bands split at
// 250Hz and 4kHz using cascaded one-pole crossovers. Gains are stored as
// bit-cast float32 atomics so the capture callback reads them lock-free.
type MonitorEQ struct {
	lowBits  atomic.Uint32
	midBits  atomic.Uint32
	highBits atomic.Uint32
	lpAlpha  float32
	hpAlpha  float32
	lpL, lpR float32
	hpL, hpR float32
}

const (
	eqLowCrossover  = 250.0
	eqHighCrossover = 4000.0
)

// NewMonitorEQ creates an EQ with all bands at unity.
func NewMonitorEQ(sampleRate int) *MonitorEQ {
	lpRC := 1.0 / (2.0 * math.Pi * eqLowCrossover)
	hpRC := 1.0 / (2.0 * math.Pi * eqHighCrossover)
	dt := 1.0 / float64(sampleRate)
	eq := &MonitorEQ{
		lpAlpha: float32(dt / (lpRC + dt)),
		hpAlpha: float32(dt / (hpRC + dt)),
	}
	unity := math.Float32bits(1.0)
	eq.lowBits.Store(unity)
	eq.midBits.Store(unity)
	eq.highBits.Store(unity)
	return eq
}

// SetGains sets all three band gains at once. 1.0 = unity, 0 = silence.
func (eq *MonitorEQ) SetGains(low, mid, high float32) {
	eq.lowBits.Store(math.Float32bits(clamp(low, 0, 4)))
	eq.midBits.Store(math.Float32bits(clamp(mid, 0, 4)))
	eq.highBits.Store(math.Float32bits(clamp(high, 0, 4)))
}

// Gains returns the current band gains.
func (eq *MonitorEQ) Gains() (low, mid, high float32) {
	return math.Float32frombits(eq.lowBits.Load()),
		math.Float32frombits(eq.midBits.Load()),
		math.Float32frombits(eq.highBits.Load())
}

func (eq *MonitorEQ) Process(l, r float32) (float32, float32) {
	eq.lpL += eq.lpAlpha * (l - eq.lpL)
	eq.lpR += eq.lpAlpha * (r - eq.lpR)
	lowL, lowR := eq.lpL, eq.lpR

	eq.hpL += eq.hpAlpha * (l - eq.hpL)
	eq.hpR += eq.hpAlpha * (r - eq.hpR)
	highL := l - eq.hpL
	highR := r - eq.hpR

	midL := l - lowL - highL
	midR := r - lowR - highR

	low, mid, high := eq.Gains()
	return lowL*low + midL*mid + highL*high,
		lowR*low + midR*mid + highR*high
}

func (eq *MonitorEQ) Reset() {
	eq.lpL, eq.lpR = 0, 0
	eq.hpL, eq.hpR = 0, 0
}
