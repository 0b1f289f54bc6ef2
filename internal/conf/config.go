// Package conf holds the engine settings shared by every playback session.
package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings contains the tunable engine parameters. Grain size and overlap are
// deliberately absent: they are engine constants, not configuration.
type Settings struct {
	SampleRate    int           `mapstructure:"sample_rate"`
	NumChannels   int           `mapstructure:"num_channels"`
	DecodeTimeout time.Duration `mapstructure:"decode_timeout"`

	// Scheduling intervals. The 100ms tick drives loop enforcement and
	// position readback; the 500ms tick drives drift correction.
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	DriftInterval time.Duration `mapstructure:"drift_interval"`

	// DriftThreshold is the follower offset beyond which a hard reposition
	// is forced.
	DriftThreshold time.Duration `mapstructure:"drift_threshold"`

	// GainRampDuration is the window over which volume/mute/solo changes
	// are ramped to avoid clicks.
	GainRampDuration time.Duration `mapstructure:"gain_ramp_duration"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sample_rate", 44100)
	v.SetDefault("num_channels", 2)
	v.SetDefault("decode_timeout", 15*time.Second)
	v.SetDefault("tick_interval", 100*time.Millisecond)
	v.SetDefault("drift_interval", 500*time.Millisecond)
	v.SetDefault("drift_threshold", 200*time.Millisecond)
	v.SetDefault("gain_ramp_duration", 100*time.Millisecond)
}

// Default returns the settings used when no config file is present.
func Default() *Settings {
	v := viper.New()
	setDefaults(v)
	s := &Settings{}
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(s)
	return s
}

// Load reads settings from the given YAML file, falling back to defaults for
// any key the file omits. Environment variables prefixed VOCALTUNE_ override
// file values.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("vocaltune")
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings the engine cannot run with.
func (s *Settings) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", s.SampleRate)
	}
	if s.NumChannels != 1 && s.NumChannels != 2 {
		return fmt.Errorf("num_channels must be 1 or 2, got %d", s.NumChannels)
	}
	if s.DecodeTimeout <= 0 {
		return fmt.Errorf("decode_timeout must be positive, got %v", s.DecodeTimeout)
	}
	if s.TickInterval <= 0 || s.DriftInterval <= 0 {
		return fmt.Errorf("tick intervals must be positive")
	}
	if s.DriftThreshold <= 0 {
		return fmt.Errorf("drift_threshold must be positive, got %v", s.DriftThreshold)
	}
	return nil
}
