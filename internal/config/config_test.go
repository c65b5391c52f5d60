package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vvaria04/Traffic-light-Management/internal/detect"
	"github.com/vvaria04/Traffic-light-Management/internal/phase"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traffic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	timing, err := cfg.PhaseTiming()
	require.NoError(t, err)
	assert.Equal(t, phase.DefaultTiming(), timing)

	ctrl, err := cfg.Controller()
	require.NoError(t, err)
	assert.Equal(t, 0.1, ctrl.Filter.IntensityThreshold)
	assert.Equal(t, 60, ctrl.RecordEvery)

	assert.Equal(t, detect.DefaultDetectorConfig(), cfg.MaskDetector())
	assert.Equal(t, 30, cfg.Predictor().RecencyDecayDays)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
timing:
  maxGreen: 60s
  minGreen: 10s
  rotationWindow: 3
  initialGreen: north
loop:
  interval: 500ms
server:
  listen: 127.0.0.1:9090
detector:
  referenceWidth: 960
  referenceHeight: 540
  regions:
    north: {x: 336, y: 0, w: 96, h: 108}
    south: {x: 336, y: 432, w: 96, h: 108}
    east: {x: 528, y: 189, w: 288, h: 81}
    west: {x: 48, y: 297, w: 288, h: 81}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	timing, err := cfg.PhaseTiming()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, timing.MaxGreen)
	assert.Equal(t, 10*time.Second, timing.MinGreen)
	assert.Equal(t, 1.5, timing.SwitchMargin, "unset fields keep defaults")
	assert.Equal(t, 3, timing.RotationWindow)
	assert.Equal(t, phase.North, timing.Initial)
	assert.Equal(t, 500*time.Millisecond, cfg.Loop.Interval.Std())
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Listen)

	regions, ok, err := cfg.Regions()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, detect.Rect{X: 528, Y: 189, W: 288, H: 81}, regions[phase.East])
}

func TestLoadConfig_Environment(t *testing.T) {
	path := writeConfig(t, "timing:\n  maxGreen: 60s\n")
	t.Setenv("TRAFFIC_MAX_GREEN", "120s")
	t.Setenv("TRAFFIC_INITIAL_GREEN", "west")
	t.Setenv("TRAFFIC_RECORD_EVERY", "5")
	t.Setenv("TRAFFIC_DB", "/tmp/history.duckdb")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, cfg.Timing.MaxGreen.Std())
	assert.Equal(t, "west", cfg.Timing.InitialGreen)
	assert.Equal(t, 5, cfg.Loop.RecordEvery)
	assert.Equal(t, "/tmp/history.duckdb", cfg.History.Database)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "timing:\n  maxGreen: soon\n"))
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("bad environment value", func(t *testing.T) {
		t.Setenv("TRAFFIC_SWITCH_MARGIN", "wide")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "invalid TRAFFIC_SWITCH_MARGIN")
	})

	t.Run("invalid timing", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "timing:\n  minGreen: 2m\n"))
		require.Error(t, err)
		assert.True(t, phase.IsConfigError(err))
	})

	t.Run("unknown initial direction", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "timing:\n  initialGreen: up\n"))
		assert.True(t, phase.IsDirectionError(err))
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"threshold above one", func(c *Config) { c.Filter.IntensityThreshold = 1.5 }, "intensityThreshold"},
		{"negative interval", func(c *Config) { c.Loop.Interval = -1 }, "interval"},
		{"negative record every", func(c *Config) { c.Loop.RecordEvery = -1 }, "recordEvery"},
		{"zero stale after", func(c *Config) { c.Loop.StaleAfter = 0 }, "staleAfter"},
		{"short cycle", func(c *Config) { c.Server.Cycle = Duration(time.Millisecond) }, "cycle"},
		{"zero decay", func(c *Config) { c.History.RecencyDecayDays = 0 }, "recencyDecayDays"},
		{"gray level", func(c *Config) { c.Detector.Threshold = 300 }, "threshold"},
		{"aspect band", func(c *Config) { c.Detector.MaxAspect = 0.1 }, "aspect band"},
		{"partial regions", func(c *Config) {
			c.Detector.Regions = map[string]detect.Rect{"north": {W: 1, H: 1}}
		}, "region for south is missing"},
		{"regions without reference frame", func(c *Config) {
			c.Detector.Regions = map[string]detect.Rect{
				"north": {W: 1, H: 1}, "south": {W: 1, H: 1}, "east": {W: 1, H: 1}, "west": {W: 1, H: 1},
			}
		}, "referenceWidth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestDuration_YAML(t *testing.T) {
	out, err := yaml.Marshal(struct {
		D Duration `yaml:"d"`
	}{Duration(90 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, "d: 1m30s\n", string(out))
}
