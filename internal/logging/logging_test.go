package logging

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithLevel(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"chatty", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		log := NewWithLevel(tt.level)
		if got := log.GetLevel(); got != tt.want {
			t.Errorf("NewWithLevel(%q) level = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestLogFileCreated(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_STATE_HOME only applies on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	log := New()
	log.Info().Msg("hello")

	path := filepath.Join(dir, "localmedia", "localmedia.log")
	if Path() != path {
		t.Fatalf("expected log path %s, got %s", path, Path())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty")
	}
}
