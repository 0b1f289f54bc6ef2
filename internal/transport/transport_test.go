package transport

import "testing"

func TestStartWhilePlayingIsNoOp(t *testing.T) {
	tr := New()
	tr.SetDuration(60)
	tr.Start(5)
	gen := tr.Generation()
	tr.Start(20)
	if got := tr.Position(); got != 5 {
		t.Fatalf("position = %v, want 5 (Start while Playing must not reposition)", got)
	}
	if tr.Generation() != gen {
		t.Fatalf("generation changed on no-op Start")
	}
}

func TestSeekBumpsGeneration(t *testing.T) {
	tr := New()
	tr.SetDuration(60)
	gen := tr.Generation()
	tr.Seek(12.5)
	if got := tr.Position(); got != 12.5 {
		t.Fatalf("position = %v, want 12.5", got)
	}
	if tr.Generation() == gen {
		t.Fatalf("Seek must bump the generation counter")
	}
}

func TestAdvanceScalesWithTempo(t *testing.T) {
	tr := New()
	tr.SetDuration(60)
	tr.Start(0)
	tr.SetTempo(2.0)
	tr.Advance(1.0)
	if got := tr.Position(); got != 2.0 {
		t.Fatalf("position = %v, want 2.0 after 1s output at tempo 2.0", got)
	}
	tr.Pause()
	tr.Advance(1.0)
	if got := tr.Position(); got != 2.0 {
		t.Fatalf("position advanced while paused: %v", got)
	}
}

func TestPositionClampedToDuration(t *testing.T) {
	tr := New()
	tr.SetDuration(3)
	tr.Start(0)
	tr.Advance(10)
	if got := tr.Position(); got != 3 {
		t.Fatalf("position = %v, want clamp at duration 3", got)
	}
	tr.Seek(-4)
	if got := tr.Position(); got != 0 {
		t.Fatalf("position = %v, want clamp at 0", got)
	}
}

func TestTempoClampedToRange(t *testing.T) {
	tr := New()
	tr.SetTempo(3.5)
	if got := tr.Tempo(); got != 2.0 {
		t.Fatalf("tempo = %v, want clamp at 2.0", got)
	}
	tr.SetTempo(0.1)
	if got := tr.Tempo(); got != 0.5 {
		t.Fatalf("tempo = %v, want clamp at 0.5", got)
	}
}

func TestStopRewindsAndInvalidates(t *testing.T) {
	tr := New()
	tr.SetDuration(60)
	tr.Start(10)
	gen := tr.Generation()
	tr.Stop()
	if tr.State() != Stopped || tr.Position() != 0 {
		t.Fatalf("Stop: state=%v pos=%v, want stopped at 0", tr.State(), tr.Position())
	}
	if tr.Generation() == gen {
		t.Fatalf("Stop must bump the generation counter")
	}
}

func TestSnapshotCoherent(t *testing.T) {
	tr := New()
	tr.SetDuration(60)
	tr.Start(1)
	tr.SetTempo(1.5)
	s := tr.Snapshot()
	if s.Position != 1 || s.State != Playing || s.Tempo != 1.5 {
		t.Fatalf("snapshot = %+v", s)
	}
}
