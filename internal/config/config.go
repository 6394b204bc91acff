package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petems/localmedia/internal/activity"
	"github.com/petems/localmedia/internal/media"
)

const (
	ModePushToTalk = "PushToTalk"
	ModeToggle     = "Toggle"

	BackendPortAudio    = "portaudio"
	BackendMediaDevices = "mediadevices"
)

type Config struct {
	Hotkey       string            `json:"hotkey" yaml:"hotkey"`
	HotkeyDarwin string            `json:"hotkey_darwin" yaml:"hotkey_darwin"`
	Mode         string            `json:"mode" yaml:"mode"`       // "PushToTalk" or "Toggle"
	Backend      string            `json:"backend" yaml:"backend"` // "portaudio" or "mediadevices"
	LogLevel     string            `json:"log_level" yaml:"log_level"`
	Media        media.Constraints `json:"media" yaml:"media"`
	Audio        AudioConfig       `json:"audio" yaml:"audio"`
	Session      SessionConfig     `json:"session" yaml:"session"`
	Activity     ActivityConfig    `json:"activity" yaml:"activity"`
	Metrics      MetricsConfig     `json:"metrics" yaml:"metrics"`

	path string
}

// AudioConfig tunes the PortAudio backend. The input device lives in
// Media.DeviceID so both backends honour it.
type AudioConfig struct {
	SampleRate int `json:"sample_rate" yaml:"sample_rate"`
}

type SessionConfig struct {
	DetectSpeakingEvents bool `json:"detect_speaking_events" yaml:"detect_speaking_events"`
	AudioFallback        bool `json:"audio_fallback" yaml:"audio_fallback"`
	StartMuted           bool `json:"start_muted" yaml:"start_muted"`
}

// ActivityConfig tunes speaking detection
type ActivityConfig struct {
	IntervalMs int     `json:"interval_ms" yaml:"interval_ms"`
	Threshold  float64 `json:"threshold" yaml:"threshold"` // dBFS
	History    int     `json:"history" yaml:"history"`
	Smoothing  float64 `json:"smoothing" yaml:"smoothing"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address" yaml:"address"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Hotkey:       "Alt+Space",
		HotkeyDarwin: "Alt+Space", // Option+Space
		Mode:         ModePushToTalk,
		Backend:      BackendPortAudio,
		LogLevel:     "info",
		Media: media.Constraints{
			Audio: true,
			Video: true,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
		},
		Session: SessionConfig{
			DetectSpeakingEvents: true,
			AudioFallback:        true,
			StartMuted:           true,
		},
		Activity: ActivityConfig{
			IntervalMs: 50,
			Threshold:  -50,
			History:    10,
			Smoothing:  0.1,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9464",
		},
	}
}

// Load reads the config from the platform path or returns defaults
func Load() (*Config, error) {
	cfg, err := LoadFile(configPath())
	if os.IsNotExist(err) {
		cfg = Default()
		cfg.path = configPath()
		return cfg, nil
	}
	return cfg, err
}

// LoadFile decodes path over the defaults. Files ending in .yaml or .yml
// are YAML, anything else is JSON.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields and ranges.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModePushToTalk, ModeToggle:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModePushToTalk, ModeToggle, c.Mode)
	}
	switch c.Backend {
	case BackendPortAudio, BackendMediaDevices:
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendPortAudio, BackendMediaDevices, c.Backend)
	}
	if !c.Media.Audio && !c.Media.Video {
		return fmt.Errorf("media must request audio, video or both")
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Activity.Threshold >= 0 {
		return fmt.Errorf("activity threshold is in dBFS and must be negative, got %f", c.Activity.Threshold)
	}
	if c.Activity.Smoothing < 0 || c.Activity.Smoothing >= 1 {
		return fmt.Errorf("activity smoothing must be in [0, 1), got %f", c.Activity.Smoothing)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}
	return nil
}

// ActivityOptions converts the activity section for the detector.
func (c *Config) ActivityOptions() *activity.Options {
	return &activity.Options{
		Interval:  time.Duration(c.Activity.IntervalMs) * time.Millisecond,
		Threshold: c.Activity.Threshold,
		History:   c.Activity.History,
		Smoothing: c.Activity.Smoothing,
	}
}

// Save writes the config back to where it was loaded from
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = configPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "localmedia", "config.json")
}
