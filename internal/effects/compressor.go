package effects

import "math"

// VocalCompressor evens out mic level swings before the monitor mix. Fixed
// vocal-friendly curve: soft threshold, moderate ratio, fast attack.
type VocalCompressor struct {
	threshold float32
	ratio     float32
	attack    float32
	release   float32
	makeup    float32
	envL      float32
	envR      float32
}

const (
	compThresholdDB = -18.0
	compRatio       = 3.0
	compAttackMs    = 5.0
	compReleaseMs   = 80.0
	compMakeupDB    = 4.0
)

// NewVocalCompressor creates a compressor tuned for close-mic vocals.
func NewVocalCompressor(sampleRate int) *VocalCompressor {
	sr := float64(sampleRate)
	return &VocalCompressor{
		threshold: float32(math.Pow(10, compThresholdDB/20)),
		ratio:     compRatio,
		attack:    float32(1.0 - math.Exp(-1.0/(compAttackMs*sr/1000.0))),
		release:   float32(1.0 - math.Exp(-1.0/(compReleaseMs*sr/1000.0))),
		makeup:    float32(math.Pow(10, compMakeupDB/20)),
	}
}

func (c *VocalCompressor) Process(l, r float32) (float32, float32) {
	absL := float32(math.Abs(float64(l)))
	absR := float32(math.Abs(float64(r)))
	if absL > c.envL {
		c.envL += c.attack * (absL - c.envL)
	} else {
		c.envL += c.release * (absL - c.envL)
	}
	if absR > c.envR {
		c.envR += c.attack * (absR - c.envR)
	} else {
		c.envR += c.release * (absR - c.envR)
	}
	return l * c.gain(c.envL) * c.makeup, r * c.gain(c.envR) * c.makeup
}

func (c *VocalCompressor) gain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *VocalCompressor) Reset() {
	c.envL = 0
	c.envR = 0
}
