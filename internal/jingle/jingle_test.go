package jingle_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/sordino/internal/engine/enginetest"
	"github.com/farcloser/sordino/internal/jingle"
	"github.com/farcloser/sordino/internal/types"
)

func TestBuildLayout(t *testing.T) {
	cfg := jingle.DefaultConfig()
	cfg.IntroSilenceSec = 2
	cfg.OutroSilenceSec = 5
	cfg.FadeInSec = 0
	cfg.FadeOutSec = 3

	timeline, err := jingle.Build(3, cfg)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, timeline.TotalDurationSec, 1e-9)
	assert.InDelta(t, 7.0, timeline.FadeOutStartSec, 1e-9)
	assert.InDelta(t, 2.0, timeline.DuckWindowStartSec, 1e-9)
	assert.InDelta(t, 5.0, timeline.DuckWindowEndSec, 1e-9)
	assert.Equal(t, int64(2000), timeline.VoiceDelayMs)
	assert.LessOrEqual(t, timeline.DuckWindowEndSec, timeline.TotalDurationSec)
}

func TestBuildWithoutDucking(t *testing.T) {
	cfg := jingle.DefaultConfig()
	cfg.DuckingEnabled = false
	cfg.DuckLevel = 0

	timeline, err := jingle.Build(4, cfg)
	require.NoError(t, err)

	assert.False(t, timeline.DuckingEnabled)
	assert.Zero(t, timeline.DuckWindowStartSec)
	assert.Zero(t, timeline.DuckWindowEndSec)
}

func TestBuildRejectsInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name  string
		voice float64
		edit  func(cfg *jingle.Config)
	}{
		{name: "overlapping fades", voice: 3, edit: func(cfg *jingle.Config) {
			cfg.IntroSilenceSec, cfg.OutroSilenceSec = 1, 1
			cfg.FadeInSec, cfg.FadeOutSec = 3, 3
		}},
		{name: "fade out longer than jingle", voice: 1, edit: func(cfg *jingle.Config) {
			cfg.IntroSilenceSec, cfg.OutroSilenceSec, cfg.FadeInSec = 0, 0, 0
			cfg.FadeOutSec = 2
		}},
		{name: "no voice", voice: 0, edit: func(*jingle.Config) {}},
		{name: "negative intro", voice: 3, edit: func(cfg *jingle.Config) { cfg.IntroSilenceSec = -1 }},
		{name: "music too loud", voice: 3, edit: func(cfg *jingle.Config) { cfg.MusicVolume = 5 }},
		{name: "duck level zero", voice: 3, edit: func(cfg *jingle.Config) { cfg.DuckLevel = 0 }},
		{name: "duck ratio below one", voice: 3, edit: func(cfg *jingle.Config) { cfg.DuckRatio = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := jingle.DefaultConfig()
			tt.edit(&cfg)

			_, err := jingle.Build(tt.voice, cfg)
			require.ErrorIs(t, err, jingle.ErrConfiguration)
		})
	}
}

func TestBuildAcceptsFadesFillingTheJingle(t *testing.T) {
	cfg := jingle.DefaultConfig()
	cfg.IntroSilenceSec, cfg.OutroSilenceSec = 1, 1
	cfg.FadeInSec, cfg.FadeOutSec = 2, 3

	timeline, err := jingle.Build(3, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, timeline.FadeOutStartSec, 1e-9)
}

func TestGraphWithDucking(t *testing.T) {
	cfg := jingle.Config{
		IntroSilenceSec: 2, OutroSilenceSec: 5, FadeInSec: 1, FadeOutSec: 3,
		MusicVolume: 0.3, VoiceVolume: 1,
		DuckingEnabled: true, DuckLevel: 0.1, DuckRatio: 8, DuckAttackMs: 20, DuckReleaseMs: 300,
	}

	timeline, err := jingle.Build(3, cfg)
	require.NoError(t, err)

	graph := jingle.Graph(*timeline)
	require.NoError(t, graph.Validate())
	assert.Equal(t, "out", graph.Output())
	assert.Equal(t,
		"[0:a]volume=1,adelay=delays=2000:all=1,apad=whole_dur=10,asplit=2[voicemix][key];"+
			"[1:a]atrim=duration=10,volume=0.3,afade=t=in:st=0:d=1,afade=t=out:st=7:d=3[music];"+
			"[music][key]sidechaincompress=threshold=0.1:ratio=8:attack=20:release=300[ducked];"+
			"[voicemix][ducked]amix=inputs=2:duration=longest:normalize=0[out]",
		graph.String(),
	)
}

func TestGraphWithoutDuckingOrFades(t *testing.T) {
	cfg := jingle.Config{IntroSilenceSec: 0.5, OutroSilenceSec: 1, MusicVolume: 0.25, VoiceVolume: 1.5}

	timeline, err := jingle.Build(2, cfg)
	require.NoError(t, err)

	assert.Equal(t,
		"[0:a]volume=1.5,adelay=delays=500:all=1,apad=whole_dur=3.5[voice];"+
			"[1:a]atrim=duration=3.5,volume=0.25[music];"+
			"[voice][music]amix=inputs=2:duration=longest:normalize=0[out]",
		jingle.Graph(*timeline).String(),
	)
}

func TestMix(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "jingle.mp3")

	eng := enginetest.New()
	eng.Infos["voice.wav"] = &types.AudioInfo{DurationSec: 3, SampleRate: 44100, Channels: 1}

	timeline, err := jingle.Mix(context.Background(), eng, "voice.wav", "bed.mp3", output, jingle.DefaultConfig())
	require.NoError(t, err)

	assert.InDelta(t, 8.0, timeline.TotalDurationSec, 1e-9)
	assert.FileExists(t, output)
	require.Len(t, eng.Renders, 1)
	assert.Equal(t, []string{"voice.wav", "bed.mp3"}, eng.Renders[0].Inputs)
}

func TestMixRejectsConfigurationBeforeRendering(t *testing.T) {
	eng := enginetest.New()
	eng.Infos["voice.wav"] = &types.AudioInfo{DurationSec: 1}

	cfg := jingle.DefaultConfig()
	cfg.IntroSilenceSec, cfg.OutroSilenceSec = 0, 0
	cfg.FadeInSec, cfg.FadeOutSec = 1, 1

	_, err := jingle.Mix(context.Background(), eng, "voice.wav", "bed.mp3", filepath.Join(t.TempDir(), "j.wav"), cfg)
	require.ErrorIs(t, err, jingle.ErrConfiguration)
	assert.Empty(t, eng.Renders)
}
