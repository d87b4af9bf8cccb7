// Package config loads the sordino configuration from YAML, an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/farcloser/primordium/fault"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/farcloser/sordino/internal/jingle"
)

// ErrInvalid is returned for configurations that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Environment overrides.
const (
	EnvStoreDriver   = "SORDINO_STORE_DRIVER"
	EnvStorePath     = "SORDINO_STORE_PATH"
	EnvRedisURL      = "SORDINO_REDIS_URL"
	EnvEngineTimeout = "SORDINO_ENGINE_TIMEOUT"
)

const (
	defaultPrefix           = "sordino:"
	defaultEngineTimeout    = 300
	defaultFailureThreshold = 5
	defaultCooldown         = 60
	defaultHalfOpenProbes   = 3
	defaultWindow           = 60
	defaultPerMinute        = 60
	defaultToleranceLU      = 2.0
	defaultVoiceScale       = 1.0
)

// Config is the full configuration.
type Config struct {
	Store                StoreConfig         `yaml:"store"`
	Engine               EngineConfig        `yaml:"engine"`
	Breaker              BreakerConfig       `yaml:"breaker"`
	RateLimit            RateLimitConfig     `yaml:"rate_limit"`
	Services             map[string]Service  `yaml:"services"`
	Voices               map[string]Voice    `yaml:"voices"`
	VoiceAdjustmentScale *float64            `yaml:"voice_adjustment_scale"`
	Normalization        NormalizationConfig `yaml:"normalization"`
	CategoryMappings     map[string]string   `yaml:"category_mappings"`
	Jingle               jingle.Config       `yaml:"jingle"`
}

// StoreConfig selects where counters and circuit states are persisted.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	Prefix   string `yaml:"prefix"`
}

// EngineConfig bounds every audio engine invocation.
type EngineConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the engine timeout as a duration.
func (c EngineConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	CooldownSeconds  int `yaml:"cooldown_seconds"`
	HalfOpenProbes   int `yaml:"half_open_probes"`
}

// Cooldown returns how long an open circuit blocks calls.
func (c BreakerConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// RateLimitConfig tunes the sliding window limiter.
type RateLimitConfig struct {
	WindowSeconds    int `yaml:"window_seconds"`
	DefaultPerMinute int `yaml:"default_per_minute"`
}

// Window returns the sliding window length.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Service holds the limits of one metered external service.
type Service struct {
	PerMinute         int   `yaml:"per_minute"`
	MonthlyCharacters int64 `yaml:"monthly_characters"`
	// Command is an argv template for the command provider. {text}, {voice} and {output} are substituted.
	Command []string `yaml:"command"`
}

// Voice holds per-voice settings.
type Voice struct {
	AdjustmentDB float64 `yaml:"adjustment_db"`
}

// NormalizationConfig tunes normalization verification.
type NormalizationConfig struct {
	ToleranceLU float64 `yaml:"tolerance_lu"`
}

// Default returns a configuration usable without any file.
func Default() *Config {
	cfg := &Config{Jingle: jingle.DefaultConfig()}
	cfg.applyDefaults()

	return cfg
}

// Load reads and parses the configuration file. Missing values get their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	// Seeding the jingle section keeps its booleans at their defaults when omitted.
	cfg := &Config{Jingle: jingle.DefaultConfig()}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// LoadFromEnv loads .env if present, then the configuration file when path is not empty,
// then applies environment overrides and validates the result.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverFile
	}

	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath()
	}

	if c.Store.Prefix == "" {
		c.Store.Prefix = defaultPrefix
	}

	if c.Engine.TimeoutSeconds == 0 {
		c.Engine.TimeoutSeconds = defaultEngineTimeout
	}

	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = defaultFailureThreshold
	}

	if c.Breaker.CooldownSeconds == 0 {
		c.Breaker.CooldownSeconds = defaultCooldown
	}

	if c.Breaker.HalfOpenProbes == 0 {
		c.Breaker.HalfOpenProbes = defaultHalfOpenProbes
	}

	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = defaultWindow
	}

	if c.RateLimit.DefaultPerMinute == 0 {
		c.RateLimit.DefaultPerMinute = defaultPerMinute
	}

	// Zero is a valid scale that turns voice trims off; only an absent value gets the default.
	if c.VoiceAdjustmentScale == nil {
		scale := defaultVoiceScale
		c.VoiceAdjustmentScale = &scale
	}

	if c.Normalization.ToleranceLU == 0 {
		c.Normalization.ToleranceLU = defaultToleranceLU
	}
}

func (c *Config) applyEnv() error {
	if driver := os.Getenv(EnvStoreDriver); driver != "" {
		c.Store.Driver = driver
	}

	if path := os.Getenv(EnvStorePath); path != "" {
		c.Store.Path = path
	}

	if redisURL := os.Getenv(EnvRedisURL); redisURL != "" {
		c.Store.RedisURL = redisURL
	}

	if timeout := os.Getenv(EnvEngineTimeout); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, EnvEngineTimeout, err)
		}

		c.Engine.TimeoutSeconds = int(parsed.Seconds())
	}

	return nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile:
	case DriverRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("%w: redis store needs a redis_url", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}

	if c.Engine.TimeoutSeconds < 1 {
		return fmt.Errorf("%w: engine timeout must be at least one second", ErrInvalid)
	}

	if c.Breaker.FailureThreshold < 1 || c.Breaker.HalfOpenProbes < 1 || c.Breaker.CooldownSeconds < 0 {
		return fmt.Errorf("%w: breaker needs a threshold and probes of at least 1", ErrInvalid)
	}

	if c.RateLimit.WindowSeconds < 1 || c.RateLimit.DefaultPerMinute < 1 {
		return fmt.Errorf("%w: rate limit window and ceiling must be positive", ErrInvalid)
	}

	for name, service := range c.Services {
		if service.PerMinute < 0 || service.MonthlyCharacters < 0 {
			return fmt.Errorf("%w: service %q has a negative ceiling", ErrInvalid, name)
		}
	}

	if c.VoiceAdjustmentScale != nil && *c.VoiceAdjustmentScale < 0 {
		return fmt.Errorf("%w: voice_adjustment_scale must not be negative", ErrInvalid)
	}

	if c.Normalization.ToleranceLU < 0 {
		return fmt.Errorf("%w: tolerance_lu must not be negative", ErrInvalid)
	}

	return nil
}

// Service returns the limits of a service, falling back to the default per-minute ceiling.
func (c *Config) Service(name string) Service {
	service := c.Services[name]
	if service.PerMinute == 0 {
		service.PerMinute = c.RateLimit.DefaultPerMinute
	}

	return service
}

// VoiceAdjustments returns the unscaled per-voice trims.
func (c *Config) VoiceAdjustments() map[string]float64 {
	adjustments := make(map[string]float64, len(c.Voices))
	for name, voice := range c.Voices {
		adjustments[name] = voice.AdjustmentDB
	}

	return adjustments
}

func defaultStorePath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "sordino")
	}

	return ".sordino"
}
