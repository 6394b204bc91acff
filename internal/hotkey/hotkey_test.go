package hotkey

import "testing"

func TestParseAccelerator(t *testing.T) {
	tests := []struct {
		accel   string
		want    Accelerator
		wantErr bool
	}{
		{"Alt+Space", Accelerator{Modifiers: ModAlt, Key: "space"}, false},
		{"ctrl+shift+m", Accelerator{Modifiers: ModCtrl | ModShift, Key: "m"}, false},
		{"Cmd + Option + F5", Accelerator{Modifiers: ModSuper | ModAlt, Key: "f5"}, false},
		{"Space", Accelerator{Key: "space"}, false},
		{"", Accelerator{}, true},
		{"Ctrl+Alt", Accelerator{}, true},
		{"Ctrl+A+B", Accelerator{}, true},
		{"Ctrl++", Accelerator{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.accel, func(t *testing.T) {
			got, err := ParseAccelerator(tt.accel)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseAccelerator(%q) = %+v, want %+v", tt.accel, got, tt.want)
			}
		})
	}
}

func TestAcceleratorString(t *testing.T) {
	a, err := ParseAccelerator("shift+ctrl+space")
	if err != nil {
		t.Fatal(err)
	}
	if got := a.String(); got != "Ctrl+Shift+Space" {
		t.Errorf("expected canonical form, got %q", got)
	}
	if got := (Accelerator{Key: "m"}).String(); got != "M" {
		t.Errorf("expected M, got %q", got)
	}
}
