// Package ffmpeg implements the audio engine on top of the ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"context"
	"time"

	"github.com/farcloser/sordino/internal/engine"
	"github.com/farcloser/sordino/internal/integration/ffprobe"
	"github.com/farcloser/sordino/internal/types"
)

const (
	name = "ffmpeg"
	// Renders of long podcasts on slow storage can legitimately take minutes.
	defaultTimeout = 5 * time.Minute
)

var _ engine.Engine = (*Engine)(nil)

// Engine runs measurements and renders through ffmpeg.
// Every invocation is bounded by the configured timeout; expiry is a hard failure, never retried.
type Engine struct {
	timeout time.Duration
}

// New returns an engine. A zero or negative timeout selects the default.
func New(timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Engine{timeout: timeout}
}

// Timeout returns the per-invocation timeout.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Probe delegates to ffprobe.
func (e *Engine) Probe(ctx context.Context, path string) (*types.AudioInfo, error) {
	return ffprobe.Info(ctx, path) //nolint:wrapcheck // already wrapped with fault sentinels
}
