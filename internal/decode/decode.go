// Package decode turns WAV, MP3 and Ogg/Vorbis payloads into interleaved
// float32 buffers at the session sample rate. Decoding runs under a caller
// context; a timeout is a fatal decode failure, never a retry.
package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// Error is a typed decode failure: unsupported codec, corrupt data, or
// timeout. The failed load leaves no partial track state behind.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is a fully decoded source buffer. Decoders always produce stereo.
type Result struct {
	Samples    []float32 // interleaved
	SampleRate int
	Channels   int
}

// Duration returns the decoded length in seconds.
func (r *Result) Duration() float64 {
	return float64(len(r.Samples)/r.Channels) / float64(r.SampleRate)
}

// File decodes an audio file from disk.
func File(ctx context.Context, path string, sampleRate int) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Source: path, Err: err}
	}
	return Buffer(ctx, path, data, sampleRate)
}

// Buffer decodes an in-memory payload. name is used only for error text.
func Buffer(ctx context.Context, name string, data []byte, sampleRate int) (*Result, error) {
	type outcome struct {
		res *Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := decodeBytes(name, data, sampleRate)
		ch <- outcome{res, err}
	}()
	select {
	case <-ctx.Done():
		return nil, &Error{Source: name, Err: ctx.Err()}
	case out := <-ch:
		return out.res, out.err
	}
}

func decodeBytes(name string, data []byte, sampleRate int) (*Result, error) {
	stream, err := openStream(data, sampleRate)
	if err != nil {
		return nil, &Error{Source: name, Err: err}
	}
	raw, err := io.ReadAll(stream)
	if err != nil {
		return nil, &Error{Source: name, Err: err}
	}
	// Streams are signed 16-bit little endian stereo at the requested rate.
	frames := len(raw) / 4
	samples := make([]float32, frames*2)
	for i := 0; i < frames*2; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float32(v) / 32768.0
	}
	return &Result{Samples: samples, SampleRate: sampleRate, Channels: 2}, nil
}

func openStream(data []byte, sampleRate int) (io.Reader, error) {
	switch sniff(data) {
	case "wav":
		return wav.DecodeWithSampleRate(sampleRate, bytes.NewReader(data))
	case "ogg":
		return vorbis.DecodeWithSampleRate(sampleRate, bytes.NewReader(data))
	case "mp3":
		return mp3.DecodeWithSampleRate(sampleRate, bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported codec")
	}
}

// sniff identifies the container by magic bytes. MP3 is the fallback for
// anything with a plausible frame sync, since raw MP3 has no container
// magic beyond an optional ID3 tag.
func sniff(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return "wav"
	case bytes.HasPrefix(data, []byte("OggS")):
		return "ogg"
	case bytes.HasPrefix(data, []byte("ID3")):
		return "mp3"
	case data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	}
	return ""
}
