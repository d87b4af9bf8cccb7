// Package jingle computes the timeline of a voice-over-music mix and the filter graph that renders it.
package jingle

import (
	"errors"
	"fmt"
	"math"
)

// ErrConfiguration is returned for timelines that cannot be rendered. It is raised before any engine call.
var ErrConfiguration = errors.New("invalid jingle configuration")

const maxVolume = 4.0

// Config describes how a voice is laid over a music bed.
type Config struct {
	IntroSilenceSec float64 `yaml:"intro_silence_sec"`
	OutroSilenceSec float64 `yaml:"outro_silence_sec"`
	FadeInSec       float64 `yaml:"fade_in_sec"`
	FadeOutSec      float64 `yaml:"fade_out_sec"`
	MusicVolume     float64 `yaml:"music_volume"`
	VoiceVolume     float64 `yaml:"voice_volume"`
	DuckingEnabled  bool    `yaml:"ducking_enabled"`
	// DuckLevel is the sidechain threshold, linear in (0, 1].
	DuckLevel     float64 `yaml:"duck_level"`
	DuckRatio     float64 `yaml:"duck_ratio"`
	DuckAttackMs  float64 `yaml:"duck_attack_ms"`
	DuckReleaseMs float64 `yaml:"duck_release_ms"`
}

// DefaultConfig returns the stock jingle layout.
func DefaultConfig() Config {
	return Config{
		IntroSilenceSec: 2,
		OutroSilenceSec: 3,
		FadeInSec:       1,
		FadeOutSec:      2,
		MusicVolume:     0.3,
		VoiceVolume:     1,
		DuckingEnabled:  true,
		DuckLevel:       0.1,
		DuckRatio:       8,
		DuckAttackMs:    20,
		DuckReleaseMs:   300,
	}
}

// Timeline is the derived, time-indexed layout of one jingle. All times are in seconds from the start of the mix.
type Timeline struct {
	IntroSilenceSec    float64
	VoiceDurationSec   float64
	OutroSilenceSec    float64
	TotalDurationSec   float64
	FadeInSec          float64
	FadeOutSec         float64
	FadeOutStartSec    float64
	DuckingEnabled     bool
	DuckWindowStartSec float64
	DuckWindowEndSec   float64
	MusicVolume        float64
	VoiceVolume        float64
	DuckLevel          float64
	DuckRatio          float64
	DuckAttackMs       float64
	DuckReleaseMs      float64
	VoiceDelayMs       int64
}

// Build lays out a jingle for a voice track of the given duration.
func Build(voiceDurationSec float64, cfg Config) (*Timeline, error) {
	if err := cfg.validate(voiceDurationSec); err != nil {
		return nil, err
	}

	total := cfg.IntroSilenceSec + voiceDurationSec + cfg.OutroSilenceSec

	if cfg.FadeOutSec > total {
		return nil, fmt.Errorf("%w: fade out %.2fs is longer than the jingle (%.2fs)",
			ErrConfiguration, cfg.FadeOutSec, total)
	}

	if cfg.FadeInSec+cfg.FadeOutSec > total {
		return nil, fmt.Errorf("%w: fades (%.2fs in, %.2fs out) overlap over a %.2fs jingle",
			ErrConfiguration, cfg.FadeInSec, cfg.FadeOutSec, total)
	}

	timeline := &Timeline{
		IntroSilenceSec:  cfg.IntroSilenceSec,
		VoiceDurationSec: voiceDurationSec,
		OutroSilenceSec:  cfg.OutroSilenceSec,
		TotalDurationSec: total,
		FadeInSec:        cfg.FadeInSec,
		FadeOutSec:       cfg.FadeOutSec,
		FadeOutStartSec:  math.Max(0, total-cfg.FadeOutSec),
		DuckingEnabled:   cfg.DuckingEnabled,
		MusicVolume:      cfg.MusicVolume,
		VoiceVolume:      cfg.VoiceVolume,
		DuckLevel:        cfg.DuckLevel,
		DuckRatio:        cfg.DuckRatio,
		DuckAttackMs:     cfg.DuckAttackMs,
		DuckReleaseMs:    cfg.DuckReleaseMs,
		VoiceDelayMs:     int64(math.Round(cfg.IntroSilenceSec * 1000)),
	}

	// Ducking brackets the spoken segment only.
	if cfg.DuckingEnabled {
		timeline.DuckWindowStartSec = cfg.IntroSilenceSec
		timeline.DuckWindowEndSec = cfg.IntroSilenceSec + voiceDurationSec
	}

	return timeline, nil
}

func (cfg Config) validate(voiceDurationSec float64) error {
	if !(voiceDurationSec > 0) || math.IsInf(voiceDurationSec, 0) {
		return fmt.Errorf("%w: voice duration must be positive, got %v", ErrConfiguration, voiceDurationSec)
	}

	durations := []struct {
		name  string
		value float64
	}{
		{"intro silence", cfg.IntroSilenceSec},
		{"outro silence", cfg.OutroSilenceSec},
		{"fade in", cfg.FadeInSec},
		{"fade out", cfg.FadeOutSec},
	}

	for _, duration := range durations {
		if duration.value < 0 || math.IsNaN(duration.value) {
			return fmt.Errorf("%w: %s must not be negative, got %v", ErrConfiguration, duration.name, duration.value)
		}
	}

	if cfg.MusicVolume < 0 || cfg.MusicVolume > maxVolume {
		return fmt.Errorf("%w: music volume %v outside [0, %v]", ErrConfiguration, cfg.MusicVolume, maxVolume)
	}

	if cfg.VoiceVolume < 0 || cfg.VoiceVolume > maxVolume {
		return fmt.Errorf("%w: voice volume %v outside [0, %v]", ErrConfiguration, cfg.VoiceVolume, maxVolume)
	}

	if !cfg.DuckingEnabled {
		return nil
	}

	if cfg.DuckLevel <= 0 || cfg.DuckLevel > 1 {
		return fmt.Errorf("%w: duck level %v outside (0, 1]", ErrConfiguration, cfg.DuckLevel)
	}

	if cfg.DuckRatio < 1 {
		return fmt.Errorf("%w: duck ratio %v below 1", ErrConfiguration, cfg.DuckRatio)
	}

	if cfg.DuckAttackMs <= 0 || cfg.DuckReleaseMs <= 0 {
		return fmt.Errorf("%w: duck attack and release must be positive", ErrConfiguration)
	}

	return nil
}
