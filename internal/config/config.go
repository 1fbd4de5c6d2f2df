package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. CYCLE_SEED.
const EnvPrefix = "CYCLE"

const (
	// DefaultCycleSteps is the number of wall segments generated per spawn.
	DefaultCycleSteps = 1000
	// DefaultTickHz drives the fixed-step simulation loop.
	DefaultTickHz = 60.0
	// DefaultDuration bounds a headless run. Zero runs until interrupted.
	DefaultDuration = 30 * time.Second

	// DefaultBikeAccel is the forward acceleration applied per unit of intent.
	DefaultBikeAccel = 50.0
	// DefaultBikeDrag is the fractional speed loss per second.
	DefaultBikeDrag = 0.1
	// DefaultBikeTopSpeed is recorded with the bike but not enforced.
	DefaultBikeTopSpeed = 60.0

	// DefaultCameraLerp controls how quickly the camera catches up.
	DefaultCameraLerp = 2.0
	// DefaultCameraZoomScale is the resting zoom multiplier.
	DefaultCameraZoomScale = 1.0

	// DefaultInputScript rides forward for ten seconds with a turn each way.
	DefaultInputScript = "0s-10s:W;2s-3s:A;5s-6s:D"
	// DefaultReplayRetain caps how many replay bundles are kept on disk.
	DefaultReplayRetain = 10

	// DefaultLogLevel controls verbosity for simulator logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "cyclesim.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// Config captures all runtime tunables for the headless simulator.
type Config struct {
	// Seed is nil when a fresh random seed should be drawn per spawn.
	Seed          *uint32
	CycleSteps    uint
	TickHz        float64
	Duration      time.Duration
	Bike          BikeConfig
	Camera        CameraConfig
	InputScript   string
	ReplayDir     string
	ReplayRetain  int
	TelemetryAddr string
	Logging       LoggingConfig
}

// BikeConfig seeds the tuning of a freshly spawned bike.
type BikeConfig struct {
	Accel    float64
	Drag     float64
	TopSpeed float64
}

// CameraConfig tunes the chase camera.
type CameraConfig struct {
	LerpFactor float64
	ZoomScale  float64
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the simulator configuration from CYCLE_* environment variables and an
// optional file named by CYCLE_CONFIG, applying defaults and returning one error that
// lists every invalid override.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("input_script", DefaultInputScript)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_path", DefaultLogPath)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	p := &parser{v: v}

	//1.- Layer the optional file underneath the environment.
	if path := p.raw("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			p.problems = append(p.problems, fmt.Sprintf("CYCLE_CONFIG could not be read: %v", err))
		}
	}

	cfg := &Config{
		CycleSteps: DefaultCycleSteps,
		TickHz:     DefaultTickHz,
		Duration:   DefaultDuration,
		Bike: BikeConfig{
			Accel:    DefaultBikeAccel,
			Drag:     DefaultBikeDrag,
			TopSpeed: DefaultBikeTopSpeed,
		},
		Camera: CameraConfig{
			LerpFactor: DefaultCameraLerp,
			ZoomScale:  DefaultCameraZoomScale,
		},
		InputScript:   p.raw("input_script"),
		ReplayDir:     p.raw("replay_dir"),
		ReplayRetain:  DefaultReplayRetain,
		TelemetryAddr: p.raw("telemetry_addr"),
		Logging: LoggingConfig{
			Level:      p.raw("log_level"),
			Path:       p.raw("log_path"),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	//2.- Parse every numeric override so all mistakes are reported together.
	if raw := p.raw("seed"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			p.fail("seed", "an unsigned 32-bit integer", raw)
		} else {
			seed := uint32(value)
			cfg.Seed = &seed
		}
	}
	if raw := p.raw("steps"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			p.fail("steps", "a non-negative integer", raw)
		} else {
			cfg.CycleSteps = uint(value)
		}
	}
	p.positiveFloat("tick_hz", &cfg.TickHz)
	if raw := p.raw("duration"); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration < 0 {
			p.fail("duration", "a non-negative duration", raw)
		} else {
			cfg.Duration = duration
		}
	}
	p.nonNegativeFloat("bike_accel", &cfg.Bike.Accel)
	p.nonNegativeFloat("bike_drag", &cfg.Bike.Drag)
	p.nonNegativeFloat("bike_top_speed", &cfg.Bike.TopSpeed)
	p.nonNegativeFloat("camera_lerp", &cfg.Camera.LerpFactor)
	p.positiveFloat("camera_zoom_scale", &cfg.Camera.ZoomScale)
	p.integer("replay_retain", 0, &cfg.ReplayRetain)
	p.integer("log_max_size_mb", 1, &cfg.Logging.MaxSizeMB)
	p.integer("log_max_backups", 0, &cfg.Logging.MaxBackups)
	p.integer("log_max_age_days", 0, &cfg.Logging.MaxAgeDays)
	if raw := p.raw("log_compress"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			p.fail("log_compress", "a boolean value", raw)
		} else {
			cfg.Logging.Compress = value
		}
	}

	if len(p.problems) > 0 {
		return nil, errors.New(strings.Join(p.problems, "; "))
	}
	return cfg, nil
}

// EnvKey returns the environment variable backing a configuration key.
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

type parser struct {
	v        *viper.Viper
	problems []string
}

func (p *parser) raw(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) fail(key, rule, raw string) {
	p.problems = append(p.problems, fmt.Sprintf("%s must be %s, got %q", EnvKey(key), rule, raw))
}

func (p *parser) positiveFloat(key string, dst *float64) {
	raw := p.raw(key)
	if raw == "" {
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value <= 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		p.fail(key, "a positive number", raw)
		return
	}
	*dst = value
}

func (p *parser) nonNegativeFloat(key string, dst *float64) {
	raw := p.raw(key)
	if raw == "" {
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		p.fail(key, "a non-negative number", raw)
		return
	}
	*dst = value
}

func (p *parser) integer(key string, minimum int, dst *int) {
	raw := p.raw(key)
	if raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < minimum {
		if minimum > 0 {
			p.fail(key, "a positive integer", raw)
		} else {
			p.fail(key, "a non-negative integer", raw)
		}
		return
	}
	*dst = value
}
