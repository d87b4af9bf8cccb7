package ffmpeg

import (
	"path/filepath"
	"strings"
)

// codecFor picks the audio encoder from the output file extension.
// Unknown extensions fall back to 16 bits PCM, which every container we write accepts.
func codecFor(output string) string {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".mp3":
		return "libmp3lame"
	case ".flac":
		return "flac"
	case ".m4a", ".aac":
		return "aac"
	case ".ogg", ".opus":
		return "libopus"
	default:
		return "pcm_s16le"
	}
}
