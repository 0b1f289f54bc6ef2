package render

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer() *Renderer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sineSource(seconds float64, sampleRate int) []float32 {
	frames := int(seconds * float64(sampleRate))
	buf := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		s := float32(0.5 * math.Sin(2*math.Pi*220*float64(f)/float64(sampleRate)))
		buf[f*2] = s
		buf[f*2+1] = s
	}
	return buf
}

func TestTempoScalesOutputDuration(t *testing.T) {
	sr := 44100
	src := sineSource(12, sr)
	r := testRenderer()

	cases := []struct {
		name      string
		tempo     float64
		wantFrames int
	}{
		{"DoubleSpeedHalves", 2.0, 5 * sr},
		{"Unity", 1.0, 10 * sr},
		{"HalfSpeedDoubles", 0.5, 20 * sr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pcm, err := r.RenderPCM(&Job{
				Source: src, SampleRate: sr, Channels: 2,
				Start: 1.0, End: 11.0,
				TempoRate: tc.tempo, Volume: 1.0,
			})
			require.NoError(t, err)
			gotFrames := len(pcm) / 2
			assert.InDelta(t, tc.wantFrames, gotFrames, 1, "output duration must be (end-start)/tempo")
		})
	}
}

func TestPitchDoesNotChangeDuration(t *testing.T) {
	sr := 44100
	src := sineSource(4, sr)
	r := testRenderer()

	for _, pitch := range []int{-12, -5, 5, 12} {
		pcm, err := r.RenderPCM(&Job{
			Source: src, SampleRate: sr, Channels: 2,
			Start: 0, End: 3.0,
			PitchSemitones: pitch, TempoRate: 1.0, Volume: 1.0,
		})
		require.NoError(t, err)
		assert.Equal(t, 3*sr, len(pcm)/2, "pitch %d changed output duration", pitch)
	}
}

func TestIdentityRenderMatchesSource(t *testing.T) {
	sr := 44100
	src := sineSource(2, sr)
	r := testRenderer()

	pcm, err := r.RenderPCM(&Job{
		Source: src, SampleRate: sr, Channels: 2,
		Start: 0, End: 1.0,
		TempoRate: 1.0, Volume: 1.0,
	})
	require.NoError(t, err)
	for i := 0; i < sr*2; i++ {
		require.Equal(t, src[i], pcm[i], "identity render must be a byte-exact slice (bypass path)")
	}
}

func TestVolumeApplied(t *testing.T) {
	sr := 44100
	src := sineSource(2, sr)
	r := testRenderer()

	pcm, err := r.RenderPCM(&Job{
		Source: src, SampleRate: sr, Channels: 2,
		Start: 0, End: 1.0,
		TempoRate: 1.0, Volume: 0.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, src[100]*0.5, pcm[100], 1e-6)
}

func TestValidationErrors(t *testing.T) {
	sr := 44100
	src := sineSource(2, sr)
	r := testRenderer()

	cases := []struct {
		name string
		job  Job
	}{
		{"EmptyRange", Job{Source: src, SampleRate: sr, Channels: 2, Start: 1, End: 1, TempoRate: 1, Volume: 1}},
		{"NegativeStart", Job{Source: src, SampleRate: sr, Channels: 2, Start: -1, End: 1, TempoRate: 1, Volume: 1}},
		{"StartPastEnd", Job{Source: src, SampleRate: sr, Channels: 2, Start: 5, End: 6, TempoRate: 1, Volume: 1}},
		{"TempoTooFast", Job{Source: src, SampleRate: sr, Channels: 2, Start: 0, End: 1, TempoRate: 3, Volume: 1}},
		{"PitchOutOfRange", Job{Source: src, SampleRate: sr, Channels: 2, Start: 0, End: 1, TempoRate: 1, PitchSemitones: 13, Volume: 1}},
		{"BadChannels", Job{Source: src, SampleRate: sr, Channels: 6, Start: 0, End: 1, TempoRate: 1, Volume: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.RenderPCM(&tc.job)
			var re *Error
			require.ErrorAs(t, err, &re)
		})
	}
}

func TestRenderWAVContainer(t *testing.T) {
	sr := 44100
	src := sineSource(3, sr)
	r := testRenderer()

	data, err := r.RenderWAV(&Job{
		Source: src, SampleRate: sr, Channels: 2,
		Start: 0.5, End: 2.5,
		TempoRate: 1.0, Volume: 1.0,
	})
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))

	dec := wav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, sr, int(dec.SampleRate))
	assert.Equal(t, 2, int(dec.NumChans))
	assert.Equal(t, 16, int(dec.BitDepth))
	assert.InDelta(t, 2*sr, len(buf.Data)/2, 1, "2s slice at unity tempo")
}
