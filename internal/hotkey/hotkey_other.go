//go:build !linux && !darwin

package hotkey

import (
	"fmt"

	"github.com/petems/localmedia/internal/media"
)

// New reports that global hotkeys are unavailable on this platform.
func New() (Manager, error) {
	return nil, fmt.Errorf("global hotkeys: %w", media.ErrNotSupported)
}
