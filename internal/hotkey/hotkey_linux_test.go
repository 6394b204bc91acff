//go:build linux

package hotkey

import (
	"fmt"
	"os"
	"sync"
	"testing"
)

func TestKeysymName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"enter", "Return"},
		{"return", "Return"},
		{"esc", "Escape"},
		{"backspace", "BackSpace"},
		{"f5", "F5"},
		{"f12", "F12"},
		{"f", "f"},
		{"fx", "fx"},
		{"space", "space"},
		{"m", "m"},
	}

	for _, tt := range tests {
		if got := keysymName(tt.key); got != tt.want {
			t.Errorf("keysymName(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestX11Modifiers(t *testing.T) {
	tests := []struct {
		mod  Modifier
		want uint
	}{
		{0, 0},
		{ModShift, 1},
		{ModCtrl | ModShift, 5},
		{ModAlt, 8},
		{ModSuper, 64},
		{ModShift | ModCtrl | ModAlt | ModSuper, 77},
	}

	for _, tt := range tests {
		if got := x11Modifiers(tt.mod); got != tt.want {
			t.Errorf("x11Modifiers(%s) = %d, want %d", tt.mod, got, tt.want)
		}
	}
}

// Register and Unregister race the event loop on one X connection.
func TestConcurrentRegistration(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("no X display")
	}
	mgr, err := New()
	if err != nil {
		t.Skipf("X display unavailable: %v", err)
	}
	defer mgr.Close()

	var wg sync.WaitGroup
	for i := 9; i <= 12; i++ {
		accel := fmt.Sprintf("Ctrl+Alt+Shift+Super+F%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				if err := mgr.Register(accel, func(bool) {}); err != nil {
					// Taken by another client, nothing to undo.
					return
				}
				if err := mgr.Unregister(accel); err != nil {
					t.Errorf("Unregister(%s): %v", accel, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if err := mgr.Unregister("Ctrl+Alt+Shift+Super+F9"); err == nil {
		t.Error("expected error for a hotkey that is no longer registered")
	}
}
