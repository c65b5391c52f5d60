// Package config loads the controller configuration from defaults, an
// optional YAML file and TRAFFIC_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/vvaria04/Traffic-light-Management/internal/advisory"
	"github.com/vvaria04/Traffic-light-Management/internal/controller"
	"github.com/vvaria04/Traffic-light-Management/internal/detect"
	"github.com/vvaria04/Traffic-light-Management/internal/history"
	"github.com/vvaria04/Traffic-light-Management/internal/occupancy"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

// Duration is a time.Duration written as a Go duration string ("90s").
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

type TimingConfig struct {
	MaxGreen       Duration `yaml:"maxGreen"`
	MinGreen       Duration `yaml:"minGreen"`
	SwitchMargin   float64  `yaml:"switchMargin"`
	HistorySize    int      `yaml:"historySize"`
	RotationWindow int      `yaml:"rotationWindow"`
	InitialGreen   string   `yaml:"initialGreen"`
}

type FilterConfig struct {
	IntensityThreshold float64 `yaml:"intensityThreshold"`
}

type LoopConfig struct {
	// Interval between cycles; zero runs back to back.
	Interval    Duration `yaml:"interval"`
	RecordEvery int      `yaml:"recordEvery"`
	StaleAfter  Duration `yaml:"staleAfter"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	// Cycle is the signal cycle divided by the advisory split.
	Cycle Duration `yaml:"cycle"`
}

type HistoryConfig struct {
	Database         string `yaml:"database"`
	RecencyDecayDays int    `yaml:"recencyDecayDays"`
}

type DetectorConfig struct {
	Threshold       int                    `yaml:"threshold"`
	MinArea         int                    `yaml:"minArea"`
	MinAspect       float64                `yaml:"minAspect"`
	MaxAspect       float64                `yaml:"maxAspect"`
	ReferenceWidth  int                    `yaml:"referenceWidth"`
	ReferenceHeight int                    `yaml:"referenceHeight"`
	Regions         map[string]detect.Rect `yaml:"regions"`
}

type Config struct {
	Timing   TimingConfig   `yaml:"timing"`
	Filter   FilterConfig   `yaml:"filter"`
	Loop     LoopConfig     `yaml:"loop"`
	Server   ServerConfig   `yaml:"server"`
	History  HistoryConfig  `yaml:"history"`
	Detector DetectorConfig `yaml:"detector"`
}

func DefaultConfig() *Config {
	timing := phase.DefaultTiming()
	det := detect.DefaultDetectorConfig()
	return &Config{
		Timing: TimingConfig{
			MaxGreen:       Duration(timing.MaxGreen),
			MinGreen:       Duration(timing.MinGreen),
			SwitchMargin:   timing.SwitchMargin,
			HistorySize:    timing.HistorySize,
			RotationWindow: timing.RotationWindow,
			InitialGreen:   timing.Initial.String(),
		},
		Filter: FilterConfig{
			IntensityThreshold: occupancy.DefaultConfig().IntensityThreshold,
		},
		Loop: LoopConfig{
			Interval:    Duration(time.Second),
			RecordEvery: 60,
			StaleAfter:  Duration(30 * time.Second),
		},
		Server: ServerConfig{
			Listen: ":8080",
			Cycle:  Duration(advisory.DefaultCycle),
		},
		History: HistoryConfig{
			Database:         "traffic.duckdb",
			RecencyDecayDays: history.DefaultPredictorConfig().RecencyDecayDays,
		},
		Detector: DetectorConfig{
			Threshold: int(det.Threshold),
			MinArea:   det.MinArea,
			MinAspect: det.MinAspect,
			MaxAspect: det.MaxAspect,
		},
	}
}

// LoadConfig reads path (if not empty) over the defaults, applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		klog.V(2).InfoS("Loaded configuration file", "path", path)
	}

	if err := cfg.loadFromEnvironment(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type envVar struct {
	name  string
	apply func(string) error
}

func durationVar(name string, dst *Duration) envVar {
	return envVar{name, func(val string) error {
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		*dst = Duration(d)
		return nil
	}}
}

func intVar(name string, dst *int) envVar {
	return envVar{name, func(val string) error {
		i, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		*dst = i
		return nil
	}}
}

func floatVar(name string, dst *float64) envVar {
	return envVar{name, func(val string) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}}
}

func stringVar(name string, dst *string) envVar {
	return envVar{name, func(val string) error {
		*dst = val
		return nil
	}}
}

// loadFromEnvironment applies TRAFFIC_* variables. Unlike file values a
// malformed variable is an error, not a silent fallback.
func (c *Config) loadFromEnvironment() error {
	vars := []envVar{
		durationVar("TRAFFIC_MAX_GREEN", &c.Timing.MaxGreen),
		durationVar("TRAFFIC_MIN_GREEN", &c.Timing.MinGreen),
		floatVar("TRAFFIC_SWITCH_MARGIN", &c.Timing.SwitchMargin),
		intVar("TRAFFIC_ROTATION_WINDOW", &c.Timing.RotationWindow),
		stringVar("TRAFFIC_INITIAL_GREEN", &c.Timing.InitialGreen),
		floatVar("TRAFFIC_INTENSITY_THRESHOLD", &c.Filter.IntensityThreshold),
		durationVar("TRAFFIC_INTERVAL", &c.Loop.Interval),
		intVar("TRAFFIC_RECORD_EVERY", &c.Loop.RecordEvery),
		durationVar("TRAFFIC_STALE_AFTER", &c.Loop.StaleAfter),
		stringVar("TRAFFIC_LISTEN", &c.Server.Listen),
		durationVar("TRAFFIC_CYCLE", &c.Server.Cycle),
		stringVar("TRAFFIC_DB", &c.History.Database),
		intVar("TRAFFIC_RECENCY_DECAY_DAYS", &c.History.RecencyDecayDays),
	}

	for _, v := range vars {
		val := os.Getenv(v.name)
		if val == "" {
			continue
		}
		if err := v.apply(val); err != nil {
			return fmt.Errorf("invalid %s: %w", v.name, err)
		}
		klog.V(2).InfoS("Loaded setting from environment", "name", v.name, "value", val)
	}
	return nil
}

// PhaseTiming converts the timing section for the scheduler.
func (c *Config) PhaseTiming() (phase.Timing, error) {
	initial, err := phase.ParseDirection(c.Timing.InitialGreen)
	if err != nil {
		return phase.Timing{}, err
	}
	return phase.Timing{
		MaxGreen:       c.Timing.MaxGreen.Std(),
		MinGreen:       c.Timing.MinGreen.Std(),
		SwitchMargin:   c.Timing.SwitchMargin,
		HistorySize:    c.Timing.HistorySize,
		RotationWindow: c.Timing.RotationWindow,
		Initial:        initial,
	}, nil
}

func (c *Config) Controller() (controller.Config, error) {
	timing, err := c.PhaseTiming()
	if err != nil {
		return controller.Config{}, err
	}
	return controller.Config{
		Timing:      timing,
		Filter:      occupancy.Config{IntensityThreshold: c.Filter.IntensityThreshold},
		RecordEvery: c.Loop.RecordEvery,
	}, nil
}

func (c *Config) Predictor() history.PredictorConfig {
	return history.PredictorConfig{RecencyDecayDays: c.History.RecencyDecayDays}
}

func (c *Config) MaskDetector() detect.DetectorConfig {
	return detect.DetectorConfig{
		Threshold: uint8(c.Detector.Threshold),
		MinArea:   c.Detector.MinArea,
		MinAspect: c.Detector.MinAspect,
		MaxAspect: c.Detector.MaxAspect,
	}
}

// Regions returns the configured detection rectangles. ok is false when
// none are configured and the detector should derive them from the frame.
func (c *Config) Regions() (regions detect.Regions, ok bool, err error) {
	if len(c.Detector.Regions) == 0 {
		return regions, false, nil
	}
	var seen [phase.NumDirections]bool
	for name, rect := range c.Detector.Regions {
		d, err := phase.ParseDirection(name)
		if err != nil {
			return regions, false, err
		}
		regions[d], seen[d] = rect, true
	}
	for _, d := range phase.Directions {
		if !seen[d] {
			return regions, false, fmt.Errorf("region for %s is missing", d)
		}
	}
	return regions, true, nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	timing, err := c.PhaseTiming()
	if err != nil {
		return err
	}
	if err := timing.Validate(); err != nil {
		return err
	}
	if c.Filter.IntensityThreshold < 0 || c.Filter.IntensityThreshold > 1 {
		return fmt.Errorf("intensityThreshold must be in [0, 1], got %f", c.Filter.IntensityThreshold)
	}
	if c.Loop.Interval < 0 {
		return fmt.Errorf("interval must be >= 0, got %v", c.Loop.Interval.Std())
	}
	if c.Loop.RecordEvery < 0 {
		return fmt.Errorf("recordEvery must be >= 0, got %d", c.Loop.RecordEvery)
	}
	if c.Loop.StaleAfter <= 0 {
		return fmt.Errorf("staleAfter must be > 0, got %v", c.Loop.StaleAfter.Std())
	}
	if c.Server.Cycle.Std() < time.Second {
		return fmt.Errorf("cycle must be at least 1s, got %v", c.Server.Cycle.Std())
	}
	if c.History.RecencyDecayDays <= 0 {
		return fmt.Errorf("recencyDecayDays must be > 0, got %d", c.History.RecencyDecayDays)
	}
	if c.Detector.Threshold < 0 || c.Detector.Threshold > 255 {
		return fmt.Errorf("detector threshold must be in [0, 255], got %d", c.Detector.Threshold)
	}
	if c.Detector.MinArea < 0 {
		return fmt.Errorf("minArea must be >= 0, got %d", c.Detector.MinArea)
	}
	if c.Detector.MinAspect <= 0 || c.Detector.MaxAspect < c.Detector.MinAspect {
		return fmt.Errorf("aspect band [%f, %f] is invalid", c.Detector.MinAspect, c.Detector.MaxAspect)
	}
	if _, ok, err := c.Regions(); err != nil {
		return err
	} else if ok && (c.Detector.ReferenceWidth <= 0 || c.Detector.ReferenceHeight <= 0) {
		return fmt.Errorf("referenceWidth and referenceHeight are required with explicit regions")
	}
	return nil
}

// Log logs the current configuration values.
func (c *Config) Log() {
	klog.InfoS("Controller configuration",
		"maxGreen", c.Timing.MaxGreen.Std(),
		"minGreen", c.Timing.MinGreen.Std(),
		"switchMargin", c.Timing.SwitchMargin,
		"historySize", c.Timing.HistorySize,
		"rotationWindow", c.Timing.RotationWindow,
		"initialGreen", c.Timing.InitialGreen,
		"intensityThreshold", c.Filter.IntensityThreshold,
		"interval", c.Loop.Interval.Std(),
		"recordEvery", c.Loop.RecordEvery,
		"staleAfter", c.Loop.StaleAfter.Std(),
		"listen", c.Server.Listen,
		"cycle", c.Server.Cycle.Std(),
		"database", c.History.Database,
		"recencyDecayDays", c.History.RecencyDecayDays)
}
