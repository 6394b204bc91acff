//go:build !linux

package capture

import (
	"fmt"

	"github.com/petems/localmedia/internal/media"
)

// ScreenSourceTypes is only answered by the Linux desktop portal.
func ScreenSourceTypes() (SourceTypes, error) {
	return 0, fmt.Errorf("screen portal: %w", media.ErrNotSupported)
}
