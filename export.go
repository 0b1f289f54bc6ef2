package vocaltune

import (
	"github.com/ricky40043/vocaltune/internal/render"
)

// ExportOptions tune an export. Zero value means: session's current pitch
// and tempo, the track's stored volume.
type ExportOptions struct {
	// Volume overrides the track's stored volume when non-nil.
	Volume *float64
}

// ExportRange renders [start, end) of one track with the session's current
// pitch and tempo into a 16-bit PCM WAV buffer. The render uses the same
// grain parameters as live playback, so the export matches what was heard.
// Live mute/solo state is deliberately ignored: the caller asked for this
// track, so this track is rendered.
func (s *Session) ExportRange(id TrackID, start, end float64) ([]byte, error) {
	return s.ExportRangeOptions(id, start, end, ExportOptions{})
}

// ExportRangeOptions is ExportRange with overrides.
func (s *Session) ExportRangeOptions(id TrackID, start, end float64, opts ExportOptions) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	track, ok := s.tracks[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrTrackNotFound
	}
	volume := s.mix.Volume(id)
	if opts.Volume != nil {
		volume = *opts.Volume
	}
	job := &render.Job{
		Source:         track.buf,
		SampleRate:     track.rate,
		Channels:       track.channels,
		Start:          start,
		End:            end,
		PitchSemitones: s.pitchSemitones,
		TempoRate:      s.tr.Tempo(),
		Volume:         volume,
	}
	renderer := s.renderer
	s.mu.Unlock()

	// The job holds a read-only view of the buffer; rendering happens
	// outside the session lock so live playback is never stalled.
	return renderer.RenderWAV(job)
}
