package vocaltune

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/ricky40043/vocaltune/internal/decode"
	"github.com/ricky40043/vocaltune/internal/grain"
)

// TrackID is the opaque stable identifier for a loaded track. String keys
// belong at the UI boundary only.
type TrackID = uuid.UUID

// Track is one loaded stem or backing source. The decoded buffer is owned
// exclusively by the session and read-only to every consumer.
type Track struct {
	id       TrackID
	name     string
	buf      []float32
	rate     int
	channels int
	duration float64
}

func (t *Track) ID() TrackID       { return t.id }
func (t *Track) Name() string      { return t.name }
func (t *Track) Duration() float64 { return t.duration }

// LoadTrackFile decodes an audio file and registers it as a new track.
func (s *Session) LoadTrackFile(name, path string) (*Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	return s.LoadTrack(name, data)
}

// LoadTrack decodes an in-memory payload (WAV, MP3 or Ogg/Vorbis) and
// registers it as a new track at volume 1.0, unmuted and unsoloed. The
// decode runs under the configured timeout; on any failure no track or
// engine state is registered.
func (s *Session) LoadTrack(name string, data []byte) (*Track, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	timeout := s.settings.DecodeTimeout
	rate := s.settings.SampleRate
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	res, err := decode.Buffer(ctx, name, data, rate)
	if err != nil {
		return nil, err
	}

	track := &Track{
		id:       uuid.New(),
		name:     name,
		buf:      res.Samples,
		rate:     res.SampleRate,
		channels: res.Channels,
		duration: res.Duration(),
	}
	engine := grain.New(track.buf, track.rate, track.channels)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	engine.SetDetune(s.pitchSemitones * 100)
	s.tracks[track.id] = track
	s.engines[track.id] = engine
	s.mix.AddTrack(track.id, 1.0)
	s.graph.addLane(track.id, engine, s.mix.Gain(track.id))
	s.updateDurationLocked()
	s.log.Info("track loaded", "track", name, "duration_seconds", track.duration)
	return track, nil
}

// RemoveTrack disposes a track and its engine. The lane is detached from the
// generation path before the buffer is released.
func (s *Session) RemoveTrack(id TrackID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.tracks[id]; !ok {
		return ErrTrackNotFound
	}
	s.graph.removeLane(id)
	s.mix.RemoveTrack(id)
	delete(s.engines, id)
	delete(s.tracks, id)
	s.updateDurationLocked()
	return nil
}

// Tracks returns the loaded tracks in insertion order.
func (s *Session) Tracks() []*Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Track, 0, len(s.tracks))
	for _, id := range s.graph.laneOrder() {
		if t, ok := s.tracks[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// SetVolume sets a track's stored volume in [0,1].
func (s *Session) SetVolume(id TrackID, gain float64) error {
	return s.withTrack(id, func() { s.mix.SetVolume(id, gain) })
}

// SetMute mutes or unmutes a track. A muted track contributes zero effective
// gain regardless of volume or solo state.
func (s *Session) SetMute(id TrackID, muted bool) error {
	return s.withTrack(id, func() { s.mix.SetMute(id, muted) })
}

// SetSolo marks a track as soloed. Solo is additive: every soloed track
// stays audible at its own volume while non-soloed tracks go silent.
func (s *Session) SetSolo(id TrackID, soloed bool) error {
	return s.withTrack(id, func() { s.mix.SetSolo(id, soloed) })
}

// EffectiveGain returns the resolved mixer gain for a track.
func (s *Session) EffectiveGain(id TrackID) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[id]; !ok {
		return 0, ErrTrackNotFound
	}
	return s.mix.Effective(id), nil
}

func (s *Session) withTrack(id TrackID, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if _, ok := s.tracks[id]; !ok {
		return ErrTrackNotFound
	}
	fn()
	return nil
}

// updateDurationLocked sets the transport duration to the longest track.
// Caller holds s.mu.
func (s *Session) updateDurationLocked() {
	var longest float64
	for _, t := range s.tracks {
		if t.duration > longest {
			longest = t.duration
		}
	}
	s.tr.SetDuration(longest)
}
