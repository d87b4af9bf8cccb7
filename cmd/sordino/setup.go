//nolint:wrapcheck
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/farcloser/sordino/internal/breaker"
	"github.com/farcloser/sordino/internal/config"
	"github.com/farcloser/sordino/internal/integration/ffmpeg"
	"github.com/farcloser/sordino/internal/loudness"
	"github.com/farcloser/sordino/internal/profile"
	"github.com/farcloser/sordino/internal/ratelimit"
	"github.com/farcloser/sordino/internal/store"
)

// app holds the components shared by commands. Stores are opened lazily, commands that do not need one never touch it.
type app struct {
	cfg     *config.Config
	engine  *ffmpeg.Engine
	catalog *profile.Catalog
}

func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := config.LoadFromEnv(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		engine:  ffmpeg.New(cfg.Engine.Timeout()),
		catalog: profile.NewCatalog(cfg.CategoryMappings),
	}, nil
}

func (a *app) analyzer() *loudness.Analyzer {
	return loudness.NewAnalyzer(a.engine, a.catalog)
}

func (a *app) normalizer() *loudness.Normalizer {
	return loudness.NewNormalizer(a.engine, a.analyzer(), a.catalog, loudness.Options{
		VoiceAdjustments:     a.cfg.VoiceAdjustments(),
		VoiceAdjustmentScale: a.cfg.VoiceAdjustmentScale,
		ToleranceLU:          a.cfg.Normalization.ToleranceLU,
	})
}

func (a *app) openStore() (store.Store, error) {
	return store.Open(a.cfg.Store)
}

func (a *app) breaker(st store.Store) *breaker.Breaker {
	return breaker.New(st, breaker.Config{
		FailureThreshold: a.cfg.Breaker.FailureThreshold,
		Cooldown:         a.cfg.Breaker.Cooldown(),
		HalfOpenProbes:   a.cfg.Breaker.HalfOpenProbes,
	})
}

func (a *app) limiter(st store.Store) *ratelimit.Limiter {
	limits := make(map[string]int, len(a.cfg.Services))
	monthly := make(map[string]int64, len(a.cfg.Services))

	for name, service := range a.cfg.Services {
		limits[name] = a.cfg.Service(name).PerMinute
		monthly[name] = service.MonthlyCharacters
	}

	return ratelimit.New(st, ratelimit.Config{
		Window:            a.cfg.RateLimit.Window(),
		DefaultLimit:      a.cfg.RateLimit.DefaultPerMinute,
		Limits:            limits,
		MonthlyCharacters: monthly,
	})
}
