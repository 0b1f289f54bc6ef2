package grain

import (
	"math"
	"testing"
)

// sine returns an interleaved stereo sine buffer.
func sine(freq float64, seconds float64, sampleRate int) []float32 {
	frames := int(seconds * float64(sampleRate))
	buf := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		s := float32(math.Sin(2 * math.Pi * freq * float64(f) / float64(sampleRate)))
		buf[f*2] = s
		buf[f*2+1] = s
	}
	return buf
}

func TestIdentityBypassesGrainPath(t *testing.T) {
	src := sine(440, 0.5, 44100)
	e := New(src, 44100, 2)
	if !e.Bypassed() {
		t.Fatalf("pitch=0 tempo=1.0 must take the bypass path")
	}
	dst := make([]float32, 1024*2)
	e.Process(dst)
	for i := range dst {
		if dst[i] != src[i] {
			t.Fatalf("bypass output differs from source at %d: %v != %v", i, dst[i], src[i])
		}
	}
}

func TestNonzeroDetuneLeavesBypass(t *testing.T) {
	e := New(sine(440, 0.5, 44100), 44100, 2)
	e.SetDetune(100)
	if e.Bypassed() {
		t.Fatalf("nonzero detune must route through the grain path")
	}
	e.SetDetune(0)
	e.SetTempo(1.5)
	if e.Bypassed() {
		t.Fatalf("non-unity tempo must route through the grain path")
	}
	e.SetTempo(1.0)
	if !e.Bypassed() {
		t.Fatalf("identity params must restore the bypass path")
	}
}

func TestDetuneRoundTrip(t *testing.T) {
	e := New(sine(440, 0.5, 44100), 44100, 2)
	e.SetDetune(700)
	e.SetDetune(-700)
	e.SetDetune(0)
	if got := e.Detune(); got != 0 {
		t.Fatalf("detune = %d, want 0 after round trip", got)
	}
}

func TestDetuneClamped(t *testing.T) {
	e := New(sine(440, 0.5, 44100), 44100, 2)
	e.SetDetune(5000)
	if got := e.Detune(); got != MaxDetuneCents {
		t.Fatalf("detune = %d, want clamp at %d", got, MaxDetuneCents)
	}
	e.SetDetune(-5000)
	if got := e.Detune(); got != -MaxDetuneCents {
		t.Fatalf("detune = %d, want clamp at %d", got, -MaxDetuneCents)
	}
}

func TestTempoAdvancesReadHead(t *testing.T) {
	sr := 44100
	e := New(sine(440, 2.0, sr), sr, 2)
	e.SetTempo(2.0)
	dst := make([]float32, sr/10*2) // 100ms of output
	e.Process(dst)
	got := e.Position()
	if math.Abs(got-0.2) > 0.001 {
		t.Fatalf("position = %v after 100ms at tempo 2.0, want 0.2", got)
	}
}

func TestSetPositionDiscardsInFlightGrains(t *testing.T) {
	sr := 44100
	e := New(sine(440, 2.0, sr), sr, 2)
	e.SetDetune(300)
	dst := make([]float32, 2048*2)
	e.Process(dst)
	e.SetPosition(1.0)
	if got := e.Position(); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("position = %v, want 1.0 after SetPosition", got)
	}
	// The first post-seek block must not carry grains from before the jump:
	// every active grain was spawned at/after the new head, so the first
	// fade-in frame is near-silent rather than mid-grain material.
	e.Process(dst[:2])
	if math.Abs(float64(dst[0])) > 1e-3 {
		t.Fatalf("first frame after seek carries stale grain audio: %v", dst[0])
	}
}

func TestGrainOutputStaysBounded(t *testing.T) {
	sr := 44100
	e := New(sine(440, 1.0, sr), sr, 2)
	e.SetDetune(-500)
	e.SetTempo(0.75)
	dst := make([]float32, 4096*2)
	for i := 0; i < 8; i++ {
		e.Process(dst)
		for _, s := range dst {
			if s > 1.5 || s < -1.5 || math.IsNaN(float64(s)) {
				t.Fatalf("grain output out of range: %v", s)
			}
		}
	}
}

func TestProcessPastEndReturnsSilence(t *testing.T) {
	sr := 44100
	e := New(sine(440, 0.1, sr), sr, 2)
	dst := make([]float32, sr*2) // 1s, source is 0.1s
	live := e.Process(dst)
	if live >= sr {
		t.Fatalf("live frames = %d, want fewer than requested once source ends", live)
	}
	for _, s := range dst[len(dst)-64:] {
		if s != 0 {
			t.Fatalf("expected silence past end of source, got %v", s)
		}
	}
}
