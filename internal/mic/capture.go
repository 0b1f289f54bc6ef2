// Package mic implements the microphone mix add-on: capture from the default
// input device, pushed through a ring buffer into the session's monitor
// chain. Capture failure (permission denial, no device) never alters
// transport or track state; the session simply runs without the mic.
package mic

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/ricky40043/vocaltune/internal/effects"
)

// PermissionError reports that the capture device could not be opened.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// ringSeconds is the capture backlog kept between the device callback and
// the monitor read path.
const ringSeconds = 0.5

// Monitor buffers captured audio and applies the EQ/compressor/reverb chain
// when the session graph pulls it. Split from the device wiring so it is
// testable without hardware.
type Monitor struct {
	ring     *ringbuffer.RingBuffer
	chain    *effects.Chain
	eq       *effects.MonitorEQ
	comp     *effects.VocalCompressor
	reverb   *effects.RoomReverb
	gainBits atomic.Uint32
	dropped  atomic.Uint64
	scratch  []byte
}

func newMonitor(sampleRate int) *Monitor {
	eq := effects.NewMonitorEQ(sampleRate)
	comp := effects.NewVocalCompressor(sampleRate)
	rv := effects.NewRoomReverb(sampleRate, 0.4, 0.6, 0.15)
	m := &Monitor{
		ring:   ringbuffer.New(int(ringSeconds*float64(sampleRate)) * 2 * 4),
		chain:  effects.NewChain(eq, comp, rv),
		eq:     eq,
		comp:   comp,
		reverb: rv,
	}
	m.gainBits.Store(math.Float32bits(1.0))
	return m
}

// SetGain sets the monitor gain in [0,1].
func (m *Monitor) SetGain(g float32) {
	if g < 0 {
		g = 0
	}
	if g > 1 {
		g = 1
	}
	m.gainBits.Store(math.Float32bits(g))
}

// EQ returns the monitor EQ for runtime adjustment.
func (m *Monitor) EQ() *effects.MonitorEQ { return m.eq }

// Compressor returns the monitor compressor.
func (m *Monitor) Compressor() *effects.VocalCompressor { return m.comp }

// Reverb returns the monitor reverb for runtime adjustment.
func (m *Monitor) Reverb() *effects.RoomReverb { return m.reverb }

// Dropped returns how many capture bytes were discarded because the monitor
// path fell behind.
func (m *Monitor) Dropped() uint64 { return m.dropped.Load() }

// push is called from the capture callback with f32le interleaved stereo.
func (m *Monitor) push(data []byte) {
	if _, err := m.ring.Write(data); err != nil {
		m.dropped.Add(uint64(len(data)))
	}
}

// MixInto adds monitored mic audio on top of an interleaved stereo block.
// Underruns contribute silence.
func (m *Monitor) MixInto(dst []float32) {
	need := len(dst) * 4
	if cap(m.scratch) < need {
		m.scratch = make([]byte, need)
	}
	m.scratch = m.scratch[:need]
	n, _ := m.ring.Read(m.scratch)
	frames := n / 8
	gain := math.Float32frombits(m.gainBits.Load())
	for f := 0; f < frames; f++ {
		l := math.Float32frombits(binary.LittleEndian.Uint32(m.scratch[f*8:]))
		r := math.Float32frombits(binary.LittleEndian.Uint32(m.scratch[f*8+4:]))
		l, r = m.chain.Process(l, r)
		dst[f*2] += l * gain
		dst[f*2+1] += r * gain
	}
}

// Capture owns the malgo context and device on top of a Monitor.
type Capture struct {
	*Monitor
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	log    *slog.Logger
}

// Open initializes the default capture device at the session sample rate.
func Open(sampleRate int, log *slog.Logger) (*Capture, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &PermissionError{Err: err}
	}
	c := &Capture{
		Monitor: newMonitor(sampleRate),
		mctx:    mctx,
		log:     log,
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 2
	cfg.SampleRate = uint32(sampleRate)

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			c.push(input)
		},
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, &PermissionError{Err: err}
	}
	c.device = device
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, &PermissionError{Err: err}
	}
	log.Info("microphone capture started", "sample_rate", sampleRate)
	return c, nil
}

// Close stops capture and releases the device synchronously. Must be called
// before the session builds a replacement graph.
func (c *Capture) Close() {
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	if c.mctx != nil {
		_ = c.mctx.Uninit()
		c.mctx.Free()
		c.mctx = nil
	}
	if n := c.Dropped(); n > 0 {
		c.log.Debug("capture closed", "dropped_bytes", n)
	}
}
