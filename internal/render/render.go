// Package render produces a pitch/tempo-shifted slice of a track as a WAV
// buffer, without realtime constraints. It runs the exact grain engine used
// for live playback so exports match what the user heard.
package render

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ricky40043/vocaltune/internal/grain"
)

// Error reports a failed render. Playback state of the live session is never
// affected by a render failure.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render: %s: %v", e.Reason, e.Err)
	}
	return "render: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Job describes one export. Ephemeral: built per call, discarded after the
// output buffer is produced.
type Job struct {
	Source     []float32 // interleaved, read-only
	SampleRate int
	Channels   int

	Start float64 // seconds, inclusive
	End   float64 // seconds, exclusive

	PitchSemitones int
	TempoRate      float64

	// Volume is the gain applied to the rendered slice. Live mute/solo
	// state deliberately does not reach here: an export renders exactly
	// the requested track at the requested volume.
	Volume float64
}

// Renderer renders jobs to PCM and encodes them as RIFF/WAVE.
type Renderer struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Renderer {
	return &Renderer{log: log}
}

// RenderPCM produces the interleaved float32 output for a job. Output length
// is (End-Start)/TempoRate seconds rounded to the nearest sample; pitch does
// not affect duration.
func (r *Renderer) RenderPCM(job *Job) ([]float32, error) {
	if err := r.validate(job); err != nil {
		return nil, err
	}

	outFrames := int(math.Round((job.End - job.Start) / job.TempoRate * float64(job.SampleRate)))
	out := make([]float32, outFrames*job.Channels)

	e := grain.New(job.Source, job.SampleRate, job.Channels)
	e.SetDetune(job.PitchSemitones * 100)
	e.SetTempo(job.TempoRate)
	e.SetPosition(job.Start)

	// Render in live-sized blocks; identical scheduling keeps offline
	// output sample-equal to the realtime path.
	const blockFrames = 2048
	for off := 0; off < outFrames; off += blockFrames {
		n := outFrames - off
		if n > blockFrames {
			n = blockFrames
		}
		e.Process(out[off*job.Channels : (off+n)*job.Channels])
	}

	if job.Volume != 1.0 {
		g := float32(job.Volume)
		for i := range out {
			out[i] *= g
		}
	}

	r.log.Debug("rendered slice",
		"start", job.Start, "end", job.End,
		"tempo", job.TempoRate, "pitch_semitones", job.PitchSemitones,
		"out_frames", outFrames)
	return out, nil
}

// RenderWAV renders a job and encodes it as a 16-bit PCM WAV container.
func (r *Renderer) RenderWAV(job *Job) ([]byte, error) {
	pcm, err := r.RenderPCM(job)
	if err != nil {
		return nil, err
	}
	data, err := EncodeWAV(pcm, job.SampleRate, job.Channels)
	if err != nil {
		return nil, &Error{Reason: "wav encode failed", Err: err}
	}
	return data, nil
}

func (r *Renderer) validate(job *Job) error {
	if job.Channels != 1 && job.Channels != 2 {
		return &Error{Reason: fmt.Sprintf("unsupported channel layout: %d", job.Channels)}
	}
	if job.SampleRate <= 0 {
		return &Error{Reason: fmt.Sprintf("invalid sample rate: %d", job.SampleRate)}
	}
	duration := float64(len(job.Source)/job.Channels) / float64(job.SampleRate)
	if job.Start < 0 || job.End <= job.Start {
		return &Error{Reason: fmt.Sprintf("invalid range [%.3f, %.3f)", job.Start, job.End)}
	}
	if job.Start >= duration {
		return &Error{Reason: fmt.Sprintf("range starts past end of source (%.3f >= %.3f)", job.Start, duration)}
	}
	if job.TempoRate < 0.5 || job.TempoRate > 2.0 {
		return &Error{Reason: fmt.Sprintf("tempo rate %.2f outside [0.5, 2.0]", job.TempoRate)}
	}
	if job.PitchSemitones < -12 || job.PitchSemitones > 12 {
		return &Error{Reason: fmt.Sprintf("pitch %d outside [-12, 12] semitones", job.PitchSemitones)}
	}
	if job.Volume < 0 || job.Volume > 1 {
		return &Error{Reason: fmt.Sprintf("volume %.2f outside [0, 1]", job.Volume)}
	}
	return nil
}
