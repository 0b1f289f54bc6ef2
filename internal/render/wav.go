package render

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeSeekBuffer is an in-memory io.WriteSeeker. The WAV encoder seeks back
// to patch the RIFF and data chunk sizes after writing samples, so a plain
// bytes.Buffer is not enough.
type writeSeekBuffer struct {
	data []byte
	pos  int64
}

func (b *writeSeekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *writeSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = b.pos + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("invalid seek whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek before start of buffer")
	}
	b.pos = next
	return next, nil
}

// EncodeWAV encodes interleaved float32 samples as a 16-bit PCM RIFF/WAVE
// container with correct fmt and data chunk sizes.
func EncodeWAV(samples []float32, sampleRate, channels int) ([]byte, error) {
	buf := &writeSeekBuffer{}
	enc := wav.NewEncoder(buf, sampleRate, 16, channels, 1)

	ints := make([]int, len(samples))
	for i, s := range samples {
		v := int(s * 32767)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		ints[i] = v
	}
	ab := &goaudio.IntBuffer{
		Data:           ints,
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: 16,
	}
	if err := enc.Write(ab); err != nil {
		return nil, fmt.Errorf("write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return buf.data, nil
}
