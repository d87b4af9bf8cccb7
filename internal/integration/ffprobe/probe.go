//nolint:tagliatelle
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/sordino/internal/integration/binary"
	"github.com/farcloser/sordino/internal/types"
)

var errNoAudioStream = errors.New("no audio stream found")

// Result contains the marshalled output of ffprobe.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream holds the stream properties we read. Numeric values come back from ffprobe as strings.
type Stream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`               // mp3
	CodecType     string `json:"codec_type"`               // audio
	SampleRate    string `json:"sample_rate,omitempty"`    // 44100
	Channels      int    `json:"channels,omitempty"`       // 2
	ChannelLayout string `json:"channel_layout,omitempty"` // stereo
	Duration      string `json:"duration,omitempty"`       // 12.408163
	BitRate       string `json:"bit_rate,omitempty"`       // 128000
}

// Format represents container-level information.
type Format struct {
	Filename   string `json:"filename"`
	NbStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`        // "mp3", "mov,mp4,m4a,3gp,3g2,mj2"
	Duration   string `json:"duration,omitempty"` // container duration, seconds
	BitRate    string `json:"bit_rate,omitempty"` // all streams combined
	Size       string `json:"size,omitempty"`     // bytes
	ProbeScore int    `json:"probe_score"`        // 0-100
}

// Probe runs ffprobe on the given file path and returns parsed metadata.
// It requires ffprobe to be available in the system PATH.
func Probe(ctx context.Context, filePath string) (*Result, error) {
	slog.Debug("ffprobe.Probe", "file path", filePath)

	ffprobePath, err := binary.Require(name)
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // filePath is intentionally user-provided input for probing media files
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		return nil, fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	var result Result
	if err = json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	return &result, nil
}

// Info probes a file and condenses the first audio stream into an AudioInfo.
func Info(ctx context.Context, filePath string) (*types.AudioInfo, error) {
	result, err := Probe(ctx, filePath)
	if err != nil {
		return nil, err
	}

	return result.AudioInfo()
}

// AudioInfo condenses the first audio stream. Stream duration wins over container duration when present.
func (r *Result) AudioInfo() (*types.AudioInfo, error) {
	for i := range r.Streams {
		stream := &r.Streams[i]
		if stream.CodecType != "audio" {
			continue
		}

		duration := parseFloat(stream.Duration)
		if duration <= 0 {
			duration = parseFloat(r.Format.Duration)
		}

		bitrate := parseInt(stream.BitRate)
		if bitrate == 0 {
			bitrate = parseInt(r.Format.BitRate)
		}

		return &types.AudioInfo{
			DurationSec: duration,
			SampleRate:  int(parseInt(stream.SampleRate)),
			Bitrate:     bitrate,
			Channels:    stream.Channels,
			Format:      r.Format.FormatName,
		}, nil
	}

	return nil, errNoAudioStream
}

func parseFloat(value string) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}

	return parsed
}

func parseInt(value string) int64 {
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}

	return parsed
}
