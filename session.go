// Package vocaltune implements the synchronized multitrack playback and
// pitch/tempo-shifting core of the practice studio. A Session owns one
// playback graph: an authoritative transport clock, a granular engine per
// track, a solo/mute mixer, an A/B loop controller and an optional
// microphone monitor. Everything external (search, download, stem
// separation) only ever hands the session a URL-less payload to decode.
package vocaltune

import (
	"log/slog"
	"sync"

	"github.com/ricky40043/vocaltune/internal/audio"
	"github.com/ricky40043/vocaltune/internal/conf"
	"github.com/ricky40043/vocaltune/internal/grain"
	"github.com/ricky40043/vocaltune/internal/logging"
	"github.com/ricky40043/vocaltune/internal/loopctl"
	"github.com/ricky40043/vocaltune/internal/mediasync"
	"github.com/ricky40043/vocaltune/internal/mic"
	"github.com/ricky40043/vocaltune/internal/mixer"
	"github.com/ricky40043/vocaltune/internal/render"
	"github.com/ricky40043/vocaltune/internal/sched"
	"github.com/ricky40043/vocaltune/internal/transport"
)

// EventKind classifies session events delivered through Watch.
type EventKind int

const (
	// EventPosition is the periodic position readback (every tick).
	EventPosition EventKind = iota
	// EventLoopWrap fires when the A/B loop forced a jump back to point A.
	EventLoopWrap
	// EventEnded fires when every track ran out of source material.
	EventEnded
)

// Event carries a playback notification.
type Event struct {
	Kind     EventKind
	Position float64
	State    transport.State
}

// SessionOption configures a session at construction.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	settings *conf.Settings
	log      *slog.Logger
}

// WithSettings overrides the default engine settings.
func WithSettings(s *conf.Settings) SessionOption {
	return func(c *sessionConfig) { c.settings = s }
}

// WithLogger installs a logger; by default the shared component logger is
// used.
func WithLogger(log *slog.Logger) SessionOption {
	return func(c *sessionConfig) { c.log = log }
}

// Session is one user's playback session. All methods are safe for
// concurrent use; control operations never block on the audio path.
type Session struct {
	mu       sync.Mutex
	settings *conf.Settings
	log      *slog.Logger

	tr       *transport.Transport
	mix      *mixer.Mixer
	loop     *loopctl.Controller
	graph    *sessionGraph
	renderer *render.Renderer
	sch      *sched.Scheduler

	tracks  map[TrackID]*Track
	engines map[TrackID]*grain.Engine

	output *audio.Output
	sync   *mediasync.Controller
	capt   *mic.Capture

	pitchSemitones int
	closed         bool

	eventMu     sync.Mutex
	eventCh     chan Event
	eventClosed bool
}

// NewSession builds a stopped session with no tracks. The caller must Close
// it to release the scheduler, the audio sink and any mic capture.
func NewSession(opts ...SessionOption) (*Session, error) {
	cfg := sessionConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.settings == nil {
		cfg.settings = conf.Default()
	}
	if err := cfg.settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.log == nil {
		cfg.log = logging.ForComponent("session")
	}

	tr := transport.New()
	mix := mixer.New(cfg.settings.SampleRate, cfg.settings.GainRampDuration)
	s := &Session{
		settings: cfg.settings,
		log:      cfg.log,
		tr:       tr,
		mix:      mix,
		loop:     loopctl.New(tr, cfg.log.With("component", "loop")),
		graph:    newSessionGraph(tr, mix.Master(), cfg.settings.SampleRate),
		renderer: render.New(cfg.log.With("component", "render")),
		sch:      sched.New(),
		tracks:   make(map[TrackID]*Track),
		engines:  make(map[TrackID]*grain.Engine),
	}
	s.loop.OnWrap(func(from, to float64) {
		s.sendEvent(Event{Kind: EventLoopWrap, Position: to, State: s.tr.State()})
	})
	s.graph.setOnEnd(func() {
		s.tr.Pause()
		s.sendEvent(Event{Kind: EventEnded, Position: s.tr.Position(), State: s.tr.State()})
	})

	// The session's two cooperative timers: loop enforcement plus position
	// readback on the fast tick, drift correction on the slow tick.
	s.sch.Every("tick", cfg.settings.TickInterval, s.onTick)
	s.sch.Every("drift", cfg.settings.DriftInterval, s.onDriftTick)
	return s, nil
}

func (s *Session) onTick() {
	s.loop.Tick()
	s.sendEvent(Event{Kind: EventPosition, Position: s.tr.Position(), State: s.tr.State()})
}

func (s *Session) onDriftTick() {
	s.mu.Lock()
	sc := s.sync
	s.mu.Unlock()
	if sc != nil {
		sc.DriftTick()
	}
}

// Play starts or resumes playback. The realtime sink is created on first
// use; tests and offline callers can drive the graph without one.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.output == nil {
		out, err := audio.NewOutput(s.settings.SampleRate, s.graph)
		if err != nil {
			return err
		}
		s.output = out
	}
	s.tr.Start(-1)
	s.output.Play()
	return nil
}

// Pause freezes playback, keeping position.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tr.Pause()
	if s.output != nil {
		s.output.Pause()
	}
}

// Seek repositions immediately. Queued audio from before the jump is
// discarded by every engine at the next block boundary.
func (s *Session) Seek(seconds float64) {
	s.tr.Seek(seconds)
}

// Position returns the authoritative playback position in seconds.
func (s *Session) Position() float64 { return s.tr.Position() }

// State returns the transport state.
func (s *Session) State() transport.State { return s.tr.State() }

// SetTempo sets the global playback rate in [0.5, 2.0] without affecting
// pitch.
func (s *Session) SetTempo(rate float64) error {
	if rate < 0.5 || rate > 2.0 {
		return ErrTempoOutOfRange
	}
	s.tr.SetTempo(rate)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sync != nil && s.pitchSemitones == 0 {
		// Native elements track the shared rate while on the native path.
		s.sync.SetRate(rate)
	}
	return nil
}

// Tempo returns the global playback rate.
func (s *Session) Tempo() float64 { return s.tr.Tempo() }

// SetPitch shifts every track by the given number of semitones in [-12, 12]
// without affecting tempo. A nonzero pitch switches playback from the native
// path to the grain path; zero (with unity tempo) switches back.
func (s *Session) SetPitch(semitones int) error {
	if semitones < -12 || semitones > 12 {
		return ErrPitchOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.pitchSemitones = semitones
	for _, e := range s.engines {
		e.SetDetune(semitones * 100)
	}
	if s.sync != nil {
		// Shifted playback substitutes grain engines for the native
		// elements; mute them rather than run both paths.
		s.sync.SetNativeMuted(semitones != 0)
	}
	return nil
}

// Pitch returns the current global pitch shift in semitones.
func (s *Session) Pitch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pitchSemitones
}

// UsingGrainPath reports whether any engine is currently off the identity
// bypass.
func (s *Session) UsingGrainPath() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.engines {
		if !e.Bypassed() {
			return true
		}
	}
	return false
}

// SetMasterVolume sets the post-mix master gain in [0,1].
func (s *Session) SetMasterVolume(gain float64) {
	s.mix.SetMaster(gain)
}

// SetLoopPointA marks the loop start at the current position and returns it.
func (s *Session) SetLoopPointA() float64 {
	return s.loop.SetPointA()
}

// SetLoopPointB marks the loop end at the current position and activates the
// loop. A point at or before A is rejected with a *LoopBoundsError.
func (s *Session) SetLoopPointB() (float64, error) {
	return s.loop.SetPointB()
}

// ClearLoop resets both points and deactivates the loop.
func (s *Session) ClearLoop() {
	s.loop.Clear()
}

// LoopPoints returns the loop region and whether it is active.
func (s *Session) LoopPoints() (a, b float64, active bool) {
	return s.loop.Points()
}

// AttachMedia locks a follower media element to a leader for native-path
// playback. Drift correction starts on the next slow tick.
func (s *Session) AttachMedia(leader, follower mediasync.MediaElement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.sync = mediasync.New(leader, follower, s.settings.DriftThreshold,
		s.log.With("component", "sync"))
	// Replay current session state onto the new elements: an active pitch
	// shift means the grain path is live and the native audio must stay
	// muted, and both elements pick up the shared tempo.
	s.sync.SetNativeMuted(s.pitchSemitones != 0)
	s.sync.SetRate(s.tr.Tempo())
	return nil
}

// LeaderEvent forwards a leader media event (play, pause, waiting, seeking,
// seeked, ratechange) to the sync controller.
func (s *Session) LeaderEvent(ev mediasync.Event) {
	s.mu.Lock()
	sc := s.sync
	s.mu.Unlock()
	if sc != nil {
		sc.HandleLeaderEvent(ev)
	}
}

// EnableMicMonitor opens the default capture device and mixes it into the
// session output through the EQ/reverb monitor chain. Failure returns a
// *MicPermissionError and leaves playback untouched.
func (s *Session) EnableMicMonitor() (*mic.Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.capt != nil {
		return s.capt, nil
	}
	capt, err := mic.Open(s.settings.SampleRate, s.log.With("component", "mic"))
	if err != nil {
		return nil, err
	}
	s.capt = capt
	s.graph.setMonitor(capt.Monitor)
	return capt, nil
}

// DisableMicMonitor stops and disposes mic capture if it is running.
func (s *Session) DisableMicMonitor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capt != nil {
		s.graph.setMonitor(nil)
		s.capt.Close()
		s.capt = nil
	}
}

// Watch returns a buffered channel of session events: position readbacks,
// loop wraps and end-of-source. Only the most recent Watch channel receives
// events; slow receivers drop events rather than block the timers. The
// channel is closed when the session closes, so ranging over it terminates.
func (s *Session) Watch() <-chan Event {
	ch := make(chan Event, 16)
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	if s.eventClosed {
		close(ch)
		return ch
	}
	s.eventCh = ch
	return ch
}

func (s *Session) sendEvent(ev Event) {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	if s.eventCh == nil {
		return
	}
	select {
	case s.eventCh <- ev:
	default:
		// Receiver is behind; drop.
	}
}

// Close tears the session down: timers first so no tick fires against
// disposed state, then the audio sink, then mic capture. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	output := s.output
	capt := s.capt
	s.output = nil
	s.capt = nil
	s.mu.Unlock()

	s.sch.Close()
	s.tr.Stop()
	var err error
	if output != nil {
		err = output.Close()
	}
	if capt != nil {
		capt.Close()
	}

	s.mu.Lock()
	s.graph.setMonitor(nil)
	for id := range s.tracks {
		s.graph.removeLane(id)
		delete(s.tracks, id)
		delete(s.engines, id)
	}
	s.mu.Unlock()

	// The scheduler is down and the sink is released, so no sender remains.
	s.eventMu.Lock()
	s.eventClosed = true
	if s.eventCh != nil {
		close(s.eventCh)
		s.eventCh = nil
	}
	s.eventMu.Unlock()
	s.log.Info("session closed")
	return err
}
