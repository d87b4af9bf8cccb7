// Package profile holds the loudness targets per content category.
package profile

import (
	"github.com/farcloser/sordino/internal/engine"
)

// Key identifies a loudness profile.
type Key int

const (
	Message Key = iota
	Jingle
	Emergency
	Announcement
	Background
	Podcast
)

// Keys lists every profile key in catalog order.
//
//nolint:gochecknoglobals // effectively const
var Keys = []Key{Message, Jingle, Emergency, Announcement, Background, Podcast}

func (k Key) String() string {
	switch k {
	case Message:
		return "message"
	case Jingle:
		return "jingle"
	case Emergency:
		return "emergency"
	case Announcement:
		return "announcement"
	case Background:
		return "background"
	case Podcast:
		return "podcast"
	}

	return "unknown"
}

// ParseKey converts a profile name to a Key. Unknown names report false.
func ParseKey(name string) (Key, bool) {
	switch normalize(name) {
	case "message":
		return Message, true
	case "jingle":
		return Jingle, true
	case "emergency":
		return Emergency, true
	case "announcement":
		return Announcement, true
	case "background":
		return Background, true
	case "podcast":
		return Podcast, true
	}

	return Message, false
}

// Priority of a profile.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	}

	return "unknown"
}

// Profile is an immutable loudness target.
type Profile struct {
	Key                   Key
	Name                  string
	Color                 string
	TargetIntegratedLUFS  float64
	TargetTruePeakDB      float64 // ceiling, always negative
	TargetLoudnessRangeLU float64
	Priority              Priority
}

// Target returns the engine target for this profile.
func (p Profile) Target() engine.Target {
	return engine.Target{
		IntegratedLUFS:  p.TargetIntegratedLUFS,
		TruePeakDB:      p.TargetTruePeakDB,
		LoudnessRangeLU: p.TargetLoudnessRangeLU,
	}
}

// definition is the only place profile values live.
// Exhaustive on Key: anything unknown resolves to the message profile.
func definition(key Key) Profile {
	switch key {
	case Jingle:
		return Profile{
			Key: Jingle, Name: "Jingle", Color: "#8e44ad",
			TargetIntegratedLUFS: -14, TargetTruePeakDB: -1.0, TargetLoudnessRangeLU: 8,
			Priority: PriorityNormal,
		}
	case Emergency:
		return Profile{
			Key: Emergency, Name: "Emergency", Color: "#c0392b",
			TargetIntegratedLUFS: -12, TargetTruePeakDB: -1.0, TargetLoudnessRangeLU: 6,
			Priority: PriorityHigh,
		}
	case Announcement:
		return Profile{
			Key: Announcement, Name: "Announcement", Color: "#e67e22",
			TargetIntegratedLUFS: -15, TargetTruePeakDB: -1.5, TargetLoudnessRangeLU: 9,
			Priority: PriorityNormal,
		}
	case Background:
		return Profile{
			Key: Background, Name: "Background", Color: "#7f8c8d",
			TargetIntegratedLUFS: -20, TargetTruePeakDB: -3.0, TargetLoudnessRangeLU: 15,
			Priority: PriorityLow,
		}
	case Podcast:
		return Profile{
			Key: Podcast, Name: "Podcast", Color: "#27ae60",
			TargetIntegratedLUFS: -16, TargetTruePeakDB: -2.0, TargetLoudnessRangeLU: 12,
			Priority: PriorityNormal,
		}
	case Message:
	}

	return Profile{
		Key: Message, Name: "Message", Color: "#2980b9",
		TargetIntegratedLUFS: -16, TargetTruePeakDB: -1.5, TargetLoudnessRangeLU: 11,
		Priority: PriorityNormal,
	}
}
