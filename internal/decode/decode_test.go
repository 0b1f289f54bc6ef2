package decode

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricky40043/vocaltune/internal/render"
)

func wavFixture(t *testing.T, seconds float64, sampleRate int) []byte {
	t.Helper()
	frames := int(seconds * float64(sampleRate))
	samples := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		s := float32(0.25 * math.Sin(2*math.Pi*330*float64(f)/float64(sampleRate)))
		samples[f*2] = s
		samples[f*2+1] = s
	}
	data, err := render.EncodeWAV(samples, sampleRate, 2)
	require.NoError(t, err)
	return data
}

func TestDecodeWAVBuffer(t *testing.T) {
	sr := 44100
	data := wavFixture(t, 1.5, sr)

	res, err := Buffer(context.Background(), "fixture.wav", data, sr)
	require.NoError(t, err)
	assert.Equal(t, sr, res.SampleRate)
	assert.Equal(t, 2, res.Channels)
	assert.InDelta(t, 1.5, res.Duration(), 0.01)
}

func TestDecodeUnsupportedCodec(t *testing.T) {
	_, err := Buffer(context.Background(), "junk.bin", []byte("not audio at all"), 44100)
	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "junk.bin", de.Source)
}

func TestDecodeCorruptWAV(t *testing.T) {
	data := wavFixture(t, 0.5, 44100)
	_, err := Buffer(context.Background(), "trunc.wav", data[:20], 44100)
	var de *Error
	require.ErrorAs(t, err, &de)
}

func TestDecodeTimeoutIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Buffer(ctx, "slow.wav", wavFixture(t, 0.5, 44100), 44100)
	var de *Error
	require.ErrorAs(t, err, &de)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeRespectsDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	res, err := Buffer(ctx, "fixture.wav", wavFixture(t, 0.25, 44100), 44100)
	require.NoError(t, err)
	require.NotNil(t, res)
}

func TestSniff(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"RIFF", []byte("RIFFxxxxWAVE"), "wav"},
		{"Ogg", []byte("OggS\x00\x02"), "ogg"},
		{"ID3", []byte("ID3\x04\x00"), "mp3"},
		{"FrameSync", []byte{0xFF, 0xFB, 0x90, 0x00}, "mp3"},
		{"Unknown", []byte("ABCD"), ""},
		{"Short", []byte("AB"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sniff(tc.data))
		})
	}
}
