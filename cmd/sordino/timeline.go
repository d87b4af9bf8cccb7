//nolint:wrapcheck
package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/jingle"
	"github.com/farcloser/sordino/internal/output"
)

var errMissingVoiceDuration = errors.New("--voice-duration is required")

func jingleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.FloatFlag{Name: "intro", Usage: "Music-only lead-in, in seconds"},
		&cli.FloatFlag{Name: "outro", Usage: "Music-only tail, in seconds"},
		&cli.FloatFlag{Name: "fade-in", Usage: "Music fade-in, in seconds"},
		&cli.FloatFlag{Name: "fade-out", Usage: "Music fade-out, in seconds"},
		&cli.FloatFlag{Name: "music-volume", Usage: "Linear music gain"},
		&cli.FloatFlag{Name: "voice-volume", Usage: "Linear voice gain"},
		&cli.BoolFlag{Name: "no-ducking", Usage: "Do not lower the music under the voice"},
	}
}

// jingleConfig starts from the configured layout and applies explicit flags on top.
func jingleConfig(base jingle.Config, cmd *cli.Command) jingle.Config {
	cfg := base

	overrides := []struct {
		flag  string
		field *float64
	}{
		{"intro", &cfg.IntroSilenceSec},
		{"outro", &cfg.OutroSilenceSec},
		{"fade-in", &cfg.FadeInSec},
		{"fade-out", &cfg.FadeOutSec},
		{"music-volume", &cfg.MusicVolume},
		{"voice-volume", &cfg.VoiceVolume},
	}

	for _, override := range overrides {
		if cmd.IsSet(override.flag) {
			*override.field = cmd.Float(override.flag)
		}
	}

	if cmd.Bool("no-ducking") {
		cfg.DuckingEnabled = false
	}

	return cfg
}

func timelineCommand() *cli.Command {
	return &cli.Command{
		Name:  "timeline",
		Usage: "Compute a jingle layout without rendering it",
		Flags: append([]cli.Flag{
			&cli.FloatFlag{Name: "voice-duration", Aliases: []string{"d"}, Usage: "Voice track duration, in seconds"},
			formatFlag(),
		}, jingleFlags()...),
		Action: func(_ context.Context, cmd *cli.Command) error {
			if !cmd.IsSet("voice-duration") {
				return errMissingVoiceDuration
			}

			appl, err := newApp(cmd)
			if err != nil {
				return err
			}

			timeline, err := jingle.Build(cmd.Float("voice-duration"), jingleConfig(appl.cfg.Jingle, cmd))
			if err != nil {
				return err
			}

			meta := output.TimelineToMap(timeline)
			meta["graph"] = jingle.Graph(*timeline).String()

			return outputResult("timeline", meta, cmd.String("format"))
		},
	}
}
