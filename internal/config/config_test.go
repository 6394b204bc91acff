package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"mode": "Toggle", "media": {"audio": true, "video": false}, "session": {"audio_fallback": false}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Mode != ModeToggle {
		t.Errorf("expected mode Toggle, got %s", cfg.Mode)
	}
	if cfg.Media.Video {
		t.Error("expected video disabled")
	}
	if cfg.Session.AudioFallback {
		t.Error("expected audio fallback disabled")
	}
	// Unset fields keep their defaults
	if cfg.Hotkey != "Alt+Space" || cfg.Activity.Threshold != -50 {
		t.Errorf("defaults lost: hotkey=%q threshold=%f", cfg.Hotkey, cfg.Activity.Threshold)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
backend: mediadevices
log_level: debug
activity:
  interval_ms: 20
  threshold: -40
metrics:
  enabled: true
  address: ":9100"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Backend != BackendMediaDevices {
		t.Errorf("expected mediadevices backend, got %s", cfg.Backend)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9100" {
		t.Errorf("unexpected metrics %+v", cfg.Metrics)
	}

	opts := cfg.ActivityOptions()
	if opts.Interval != 20*time.Millisecond || opts.Threshold != -40 || opts.History != 10 {
		t.Errorf("unexpected activity options %+v", opts)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad mode", `{"mode": "Always"}`, "mode"},
		{"bad backend", `{"backend": "gstreamer"}`, "backend"},
		{"empty media", `{"media": {"audio": false, "video": false}}`, "media"},
		{"positive threshold", `{"activity": {"threshold": 3}}`, "threshold"},
		{"metrics without address", `{"metrics": {"enabled": true, "address": ""}}`, "metrics"},
		{"malformed", `{"mode": `, "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode != ModePushToTalk {
		t.Errorf("expected default mode, got %s", cfg.Mode)
	}
}

func TestSaveRoundTripYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	cfg := Default()
	cfg.path = path
	cfg.Mode = ModeToggle

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.Mode != ModeToggle {
		t.Errorf("expected saved mode, got %s", loaded.Mode)
	}
}

func TestSaveKeepsMediaDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.path = path
	cfg.Media.DeviceID = "usb-mic"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "device_id") != 1 {
		t.Errorf("expected a single device_id key, got:\n%s", data)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if loaded.Media.DeviceID != "usb-mic" {
		t.Errorf("expected media device usb-mic, got %q", loaded.Media.DeviceID)
	}
}
