package hotkey

import (
	"fmt"
	"strings"
)

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// Modifier is a platform-neutral modifier bitmask.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt // Option on macOS
	ModSuper
)

func (m Modifier) String() string {
	var parts []string
	if m&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if m&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if m&ModSuper != 0 {
		parts = append(parts, "Super")
	}
	return strings.Join(parts, "+")
}

// Accelerator is a parsed hotkey such as "Ctrl+Shift+M".
type Accelerator struct {
	Modifiers Modifier
	Key       string // lower case, e.g. "space", "m", "f5"
}

func (a Accelerator) String() string {
	key := a.Key
	if len(key) > 1 {
		key = strings.ToUpper(key[:1]) + key[1:]
	} else {
		key = strings.ToUpper(key)
	}
	if a.Modifiers == 0 {
		return key
	}
	return a.Modifiers.String() + "+" + key
}

var modifierNames = map[string]Modifier{
	"shift":   ModShift,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
}

// ParseAccelerator parses "Mod+Mod+Key" strings. Names are case-insensitive
// and exactly one non-modifier key is required.
func ParseAccelerator(accel string) (Accelerator, error) {
	var a Accelerator
	if strings.TrimSpace(accel) == "" {
		return a, fmt.Errorf("empty accelerator")
	}

	for _, part := range strings.Split(accel, "+") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return a, fmt.Errorf("accelerator %q has an empty component", accel)
		}
		if mod, ok := modifierNames[name]; ok {
			a.Modifiers |= mod
			continue
		}
		if a.Key != "" {
			return a, fmt.Errorf("accelerator %q has more than one key", accel)
		}
		a.Key = name
	}

	if a.Key == "" {
		return a, fmt.Errorf("accelerator %q has no key", accel)
	}
	return a, nil
}
