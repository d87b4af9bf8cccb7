package output_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/sordino"
	"github.com/farcloser/sordino/internal/breaker"
	"github.com/farcloser/sordino/internal/jingle"
	"github.com/farcloser/sordino/internal/output"
	"github.com/farcloser/sordino/internal/profile"
	"github.com/farcloser/sordino/internal/ratelimit"
	"github.com/farcloser/sordino/internal/types"
)

func TestMeasurementOfSilenceStillEncodes(t *testing.T) {
	meta := output.MeasurementToMap(types.Measurement{IntegratedLUFS: math.Inf(-1), TruePeakDB: math.Inf(-1)})

	assert.Nil(t, meta["integrated_lufs"])

	_, err := json.Marshal(meta)
	require.NoError(t, err)
}

func TestAdjustmentsToList(t *testing.T) {
	list := output.AdjustmentsToList([]profile.Adjustment{
		{Action: profile.ActionReduceGain, AmountDB: 4},
		{Action: profile.ActionApplyLimiter, CeilingDB: -1},
	})

	require.Len(t, list, 2)
	assert.Equal(t, 4.0, list[0].(map[string]any)["amount_db"])
	assert.Equal(t, -1.0, list[1].(map[string]any)["ceiling_db"])
}

func TestTimelineToMapOmitsDisabledDucking(t *testing.T) {
	meta := output.TimelineToMap(&jingle.Timeline{TotalDurationSec: 10})
	assert.NotContains(t, meta, "ducking")

	meta = output.TimelineToMap(&jingle.Timeline{TotalDurationSec: 10, DuckingEnabled: true, DuckWindowEndSec: 5})
	assert.Contains(t, meta, "ducking")
}

func TestGenerationToMap(t *testing.T) {
	meta := output.GenerationToMap(&sordino.Result{
		RequestID: "id",
		Status:    sordino.StatusCircuitOpen,
		Circuit: breaker.Decision{
			Service: "tts", Status: breaker.StatusOpen, RetryAfter: 30 * time.Second, Reason: "down",
		},
	})

	assert.Equal(t, "circuit-open", meta["status"])
	assert.NotContains(t, meta, "rate_limit")
	assert.InDelta(t, 30.0, meta["circuit"].(map[string]any)["retry_after_sec"], 1e-9)

	meta = output.GenerationToMap(&sordino.Result{
		Status:    sordino.StatusRateLimited,
		RateLimit: ratelimit.Decision{Service: "tts", Limit: 5, RetryAfter: 12 * time.Second},
	})
	assert.InDelta(t, 12.0, meta["rate_limit"].(map[string]any)["retry_after_sec"], 1e-9)

	_, err := json.Marshal(meta)
	require.NoError(t, err)
}
