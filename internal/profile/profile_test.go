package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/sordino/internal/profile"
	"github.com/farcloser/sordino/internal/types"
)

func onTarget(p profile.Profile) types.Measurement {
	return types.Measurement{
		IntegratedLUFS:  p.TargetIntegratedLUFS,
		TruePeakDB:      p.TargetTruePeakDB,
		LoudnessRangeLU: p.TargetLoudnessRangeLU,
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	for _, key := range profile.Keys {
		parsed, ok := profile.ParseKey(key.String())
		require.True(t, ok, key.String())
		assert.Equal(t, key, parsed)
	}

	_, ok := profile.ParseKey("karaoke")
	assert.False(t, ok)

	parsed, ok := profile.ParseKey("  Jingle ")
	assert.True(t, ok)
	assert.Equal(t, profile.Jingle, parsed)
}

func TestCatalogFallsBackToMessage(t *testing.T) {
	catalog := profile.NewCatalog(nil)

	assert.Equal(t, profile.Message, catalog.Lookup("nope").Key)
	assert.Equal(t, profile.Message, catalog.Get(profile.Key(42)).Key)
	assert.Equal(t, profile.Message, catalog.ByCategory("unheard-of").Key)
	assert.Equal(t, profile.Jingle, catalog.ByCategory("Promociones").Key)
}

func TestCatalogLookupByName(t *testing.T) {
	catalog := profile.NewCatalog(nil)

	assert.Equal(t, profile.Emergency, catalog.Lookup("Emergency").Key)
	assert.Equal(t, profile.Podcast, catalog.Lookup(" podcast ").Key)
	assert.Equal(t, profile.Message, catalog.Lookup("").Key, "no name means message")
}

func TestCatalogProfilesHaveNegativeCeilings(t *testing.T) {
	catalog := profile.NewCatalog(nil)

	all := catalog.All()
	require.Len(t, all, len(profile.Keys))

	for _, p := range all {
		assert.Less(t, p.TargetTruePeakDB, 0.0, p.Name)
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Color)
	}
}

func TestExtraCategoryMappings(t *testing.T) {
	catalog := profile.NewCatalog(map[string]string{
		"Deportes": "announcement",
		"general":  "podcast",
		"broken":   "not-a-profile",
	})

	assert.Equal(t, profile.Announcement, catalog.ByCategory("deportes").Key)
	assert.Equal(t, profile.Podcast, catalog.ByCategory("general").Key)
	assert.Equal(t, profile.Message, catalog.ByCategory("broken").Key)
}

func TestAutoDetect(t *testing.T) {
	catalog := profile.NewCatalog(nil)

	tests := []struct {
		name string
		ctx  profile.Context
		want profile.Key
	}{
		{name: "empty context", ctx: profile.Context{}, want: profile.Message},
		{name: "explicit profile wins", ctx: profile.Context{Profile: "podcast", Category: "emergencias", HasMusic: true}, want: profile.Podcast},
		{
			name: "category beats heuristics",
			ctx:  profile.Context{Category: "emergencias", HasMusic: true, Urgent: false, DurationSeconds: 300},
			want: profile.Emergency,
		},
		{name: "unknown profile falls through to category", ctx: profile.Context{Profile: "loud", Category: "avisos"}, want: profile.Announcement},
		{name: "unknown category falls through to music", ctx: profile.Context{Category: "misc", HasMusic: true}, want: profile.Jingle},
		{name: "music before urgency", ctx: profile.Context{HasMusic: true, Urgent: true}, want: profile.Jingle},
		{name: "urgency before duration", ctx: profile.Context{Urgent: true, DurationSeconds: 120}, want: profile.Emergency},
		{name: "long content", ctx: profile.Context{DurationSeconds: 61}, want: profile.Podcast},
		{name: "exactly sixty seconds is not long", ctx: profile.Context{DurationSeconds: 60}, want: profile.Message},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.AutoDetect(tt.ctx).Key)
		})
	}
}

func TestValidateOnTargetIsClean(t *testing.T) {
	catalog := profile.NewCatalog(nil)

	for _, p := range catalog.All() {
		t.Run(p.Key.String(), func(t *testing.T) {
			result := catalog.Validate(onTarget(p), p.Key)

			assert.True(t, result.Valid)
			assert.Empty(t, result.Errors)
			assert.Empty(t, result.Warnings)
		})
	}
}

func TestValidatePeakOverCeilingIsAlwaysAnError(t *testing.T) {
	catalog := profile.NewCatalog(nil)

	for _, p := range catalog.All() {
		t.Run(p.Key.String(), func(t *testing.T) {
			measurement := onTarget(p)
			measurement.TruePeakDB += 0.1

			result := catalog.Validate(measurement, p.Key)

			assert.False(t, result.Valid)
			assert.NotEmpty(t, result.Errors)
		})
	}
}

func TestValidateBands(t *testing.T) {
	catalog := profile.NewCatalog(nil)
	message := catalog.Get(profile.Message)

	tests := []struct {
		name         string
		deltaI       float64
		deltaLRA     float64
		wantValid    bool
		wantErrors   int
		wantWarnings int
	}{
		{name: "within one LU", deltaI: 0.9, wantValid: true},
		{name: "warning band", deltaI: 1.5, wantValid: true, wantWarnings: 1},
		{name: "warning band quieter", deltaI: -2.0, wantValid: true, wantWarnings: 1},
		{name: "error band", deltaI: 2.5, wantValid: false, wantErrors: 1},
		{name: "wide range is only a warning", deltaLRA: 6, wantValid: true, wantWarnings: 1},
		{name: "both", deltaI: -3, deltaLRA: -5.5, wantValid: false, wantErrors: 1, wantWarnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			measurement := onTarget(message)
			measurement.IntegratedLUFS += tt.deltaI
			measurement.LoudnessRangeLU += tt.deltaLRA

			result := catalog.Validate(measurement, profile.Message)

			assert.Equal(t, tt.wantValid, result.Valid)
			assert.Len(t, result.Errors, tt.wantErrors)
			assert.Len(t, result.Warnings, tt.wantWarnings)
		})
	}
}

func TestRecommend(t *testing.T) {
	catalog := profile.NewCatalog(nil)
	jingle := catalog.Get(profile.Jingle)

	assert.Empty(t, catalog.Recommend(onTarget(jingle), profile.Jingle))

	loud := types.Measurement{IntegratedLUFS: -9, TruePeakDB: 0.3, LoudnessRangeLU: 14}
	adjustments := catalog.Recommend(loud, profile.Jingle)
	require.Len(t, adjustments, 3)

	assert.Equal(t, profile.ActionReduceGain, adjustments[0].Action)
	assert.InDelta(t, 5.0, adjustments[0].AmountDB, 1e-9)
	assert.Equal(t, profile.ActionApplyLimiter, adjustments[1].Action)
	assert.InDelta(t, jingle.TargetTruePeakDB, adjustments[1].CeilingDB, 1e-9)
	assert.Equal(t, profile.ActionApplyCompress, adjustments[2].Action)
	assert.InDelta(t, 6.0, adjustments[2].AmountDB, 1e-9)

	quiet := types.Measurement{IntegratedLUFS: -20, TruePeakDB: -6, LoudnessRangeLU: 8}
	adjustments = catalog.Recommend(quiet, profile.Jingle)
	require.Len(t, adjustments, 1)
	assert.Equal(t, profile.ActionIncreaseGain, adjustments[0].Action)
	assert.InDelta(t, 6.0, adjustments[0].AmountDB, 1e-9)
}
