package jingle

import (
	"github.com/farcloser/sordino/internal/engine"
)

// Pad labels of the mix graph. Input 0 is the voice, input 1 the music bed.
const (
	padVoice     = "voice"
	padKey       = "key"
	padVoiceMix  = "voicemix"
	padMusic     = "music"
	padDucked    = "ducked"
	padOut       = "out"
	inputVoice   = "0:a"
	inputMusic   = "1:a"
	mixedStreams = 2
)

// Graph translates a timeline into the filter graph mixing voice and music.
// The music is trimmed to the total duration and the voice is padded to it, so the mix ends exactly on time.
func Graph(timeline Timeline) engine.Graph {
	voice := []engine.Filter{
		engine.NewFilter("volume", engine.Float("", timeline.VoiceVolume)),
		engine.NewFilter("adelay", engine.Int("delays", timeline.VoiceDelayMs), engine.Int("all", 1)),
		engine.NewFilter("apad", engine.Float("whole_dur", timeline.TotalDurationSec)),
	}

	music := engine.Chain{
		Inputs: []string{inputMusic},
		Filters: []engine.Filter{
			engine.NewFilter("atrim", engine.Float("duration", timeline.TotalDurationSec)),
			engine.NewFilter("volume", engine.Float("", timeline.MusicVolume)),
		},
		Outputs: []string{padMusic},
	}

	if timeline.FadeInSec > 0 {
		music.Filters = append(music.Filters, engine.NewFilter("afade",
			engine.Opt("t", "in"),
			engine.Float("st", 0),
			engine.Float("d", timeline.FadeInSec),
		))
	}

	if timeline.FadeOutSec > 0 {
		music.Filters = append(music.Filters, engine.NewFilter("afade",
			engine.Opt("t", "out"),
			engine.Float("st", timeline.FadeOutStartSec),
			engine.Float("d", timeline.FadeOutSec),
		))
	}

	mix := engine.NewFilter("amix",
		engine.Int("inputs", mixedStreams),
		engine.Opt("duration", "longest"),
		engine.Int("normalize", 0),
	)

	if !timeline.DuckingEnabled {
		return engine.Graph{Chains: []engine.Chain{
			{Inputs: []string{inputVoice}, Filters: voice, Outputs: []string{padVoice}},
			music,
			{Inputs: []string{padVoice, padMusic}, Filters: []engine.Filter{mix}, Outputs: []string{padOut}},
		}}
	}

	// The delayed voice keys the compressor, so the music only ducks while someone is speaking.
	voice = append(voice, engine.NewFilter("asplit", engine.Int("", mixedStreams)))

	return engine.Graph{Chains: []engine.Chain{
		{Inputs: []string{inputVoice}, Filters: voice, Outputs: []string{padVoiceMix, padKey}},
		music,
		{
			Inputs: []string{padMusic, padKey},
			Filters: []engine.Filter{engine.NewFilter("sidechaincompress",
				engine.Float("threshold", timeline.DuckLevel),
				engine.Float("ratio", timeline.DuckRatio),
				engine.Float("attack", timeline.DuckAttackMs),
				engine.Float("release", timeline.DuckReleaseMs),
			)},
			Outputs: []string{padDucked},
		},
		{Inputs: []string{padVoiceMix, padDucked}, Filters: []engine.Filter{mix}, Outputs: []string{padOut}},
	}}
}
