package mixer

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestMixer() *Mixer {
	return New(44100, 100*time.Millisecond)
}

func TestMutedTrackAlwaysSilent(t *testing.T) {
	m := newTestMixer()
	id := uuid.New()
	m.AddTrack(id, 0.9)
	m.SetMute(id, true)
	if got := m.Effective(id); got != 0 {
		t.Fatalf("effective = %v, want 0 for muted track", got)
	}
	m.SetVolume(id, 0.3)
	if got := m.Effective(id); got != 0 {
		t.Fatalf("effective = %v, want 0 regardless of volume while muted", got)
	}
	m.SetMute(id, false)
	if got := m.Effective(id); got != 0.3 {
		t.Fatalf("effective = %v, want 0.3 after unmute", got)
	}
}

func TestSoloSilencesOthers(t *testing.T) {
	m := newTestMixer()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	m.AddTrack(a, 0.8)
	m.AddTrack(b, 0.8)
	m.AddTrack(c, 0.8)

	m.SetSolo(b, true)
	if got := m.Effective(a); got != 0 {
		t.Fatalf("effective(a) = %v, want 0 while b is soloed", got)
	}
	if got := m.Effective(b); got != 0.8 {
		t.Fatalf("effective(b) = %v, want own volume while soloed", got)
	}
	if got := m.Effective(c); got != 0 {
		t.Fatalf("effective(c) = %v, want 0 while b is soloed", got)
	}
}

func TestMultiSoloIsAdditive(t *testing.T) {
	m := newTestMixer()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	m.AddTrack(a, 0.5)
	m.AddTrack(b, 0.7)
	m.AddTrack(c, 0.9)

	m.SetSolo(a, true)
	m.SetSolo(b, true)
	if got := m.Effective(a); got != 0.5 {
		t.Fatalf("effective(a) = %v, want 0.5 (additive solo keeps own volume)", got)
	}
	if got := m.Effective(b); got != 0.7 {
		t.Fatalf("effective(b) = %v, want 0.7 (additive solo keeps own volume)", got)
	}
	if got := m.Effective(c); got != 0 {
		t.Fatalf("effective(c) = %v, want 0", got)
	}
}

func TestMuteWinsOverSolo(t *testing.T) {
	m := newTestMixer()
	a := uuid.New()
	m.AddTrack(a, 0.8)
	m.SetSolo(a, true)
	m.SetMute(a, true)
	if got := m.Effective(a); got != 0 {
		t.Fatalf("effective = %v, want 0 for muted track even when soloed", got)
	}
}

func TestMuteSoloScenario(t *testing.T) {
	// Three tracks at 0.8; mute(A) then solo(B).
	m := newTestMixer()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{a, b, c} {
		m.AddTrack(id, 0.8)
	}
	m.SetMute(a, true)
	m.SetSolo(b, true)
	if got := m.Effective(a); got != 0 {
		t.Fatalf("effective(A) = %v, want 0", got)
	}
	if got := m.Effective(b); got != 0.8 {
		t.Fatalf("effective(B) = %v, want 0.8", got)
	}
	if got := m.Effective(c); got != 0 {
		t.Fatalf("effective(C) = %v, want 0", got)
	}
}

func TestRemoveSoloedTrackRestoresOthers(t *testing.T) {
	m := newTestMixer()
	a, b := uuid.New(), uuid.New()
	m.AddTrack(a, 0.6)
	m.AddTrack(b, 0.4)
	m.SetSolo(b, true)
	if got := m.Effective(a); got != 0 {
		t.Fatalf("effective(a) = %v, want 0", got)
	}
	m.RemoveTrack(b)
	if got := m.Effective(a); got != 0.6 {
		t.Fatalf("effective(a) = %v, want 0.6 after sole soloed track removed", got)
	}
}

func TestRampMovesGraduallyToTarget(t *testing.T) {
	sr := 44100
	m := New(sr, 100*time.Millisecond)
	id := uuid.New()
	m.AddTrack(id, 1.0)
	ramp := m.Gain(id)
	if ramp == nil {
		t.Fatal("no ramp for registered track")
	}

	// A new track ramps from 0 to its volume; after one frame the gain must
	// be far from the target, after a full ramp window it must reach it.
	first := ramp.Tick()
	if first > 0.01 {
		t.Fatalf("gain after one frame = %v, want a small fraction of target (no step)", first)
	}
	rampFrames := sr / 10
	for i := 0; i < rampFrames+2; i++ {
		ramp.Tick()
	}
	if got := ramp.Tick(); got != 1.0 {
		t.Fatalf("gain after full ramp = %v, want 1.0", got)
	}
}

func TestRampApplyScalesBuffer(t *testing.T) {
	m := New(1000, 10*time.Millisecond) // 10-frame ramp
	id := uuid.New()
	m.AddTrack(id, 1.0)
	ramp := m.Gain(id)
	buf := make([]float32, 40*2)
	for i := range buf {
		buf[i] = 1
	}
	ramp.Apply(buf, 2)
	if buf[0] >= buf[len(buf)-1] {
		t.Fatalf("expected rising gain across buffer, got first=%v last=%v", buf[0], buf[len(buf)-1])
	}
	if got := buf[len(buf)-1]; got != 1 {
		t.Fatalf("gain settled at %v, want 1", got)
	}
}

func TestVolumeClamped(t *testing.T) {
	m := newTestMixer()
	id := uuid.New()
	m.AddTrack(id, 1.7)
	if got := m.Volume(id); got != 1 {
		t.Fatalf("volume = %v, want clamp at 1", got)
	}
	m.SetVolume(id, -0.2)
	if got := m.Volume(id); got != 0 {
		t.Fatalf("volume = %v, want clamp at 0", got)
	}
}
