package permissions

import (
	"fmt"

	"github.com/petems/localmedia/internal/media"
)

// Status mirrors the macOS authorization states.
type Status int

const (
	NotDetermined Status = iota
	Restricted
	Denied
	Authorized
)

func (s Status) String() string {
	switch s {
	case NotDetermined:
		return "not determined"
	case Restricted:
		return "restricted"
	case Denied:
		return "denied"
	case Authorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Source is what a capture request needs access to.
type Source int

const (
	Microphone Source = iota
	Camera
	Screen
)

func (s Source) String() string {
	switch s {
	case Microphone:
		return "microphone"
	case Camera:
		return "camera"
	case Screen:
		return "screen recording"
	default:
		return "unknown"
	}
}

// Require checks every source and returns an error wrapping
// media.ErrPermissionDenied for the first one that is not authorized.
// Undetermined sources trigger the system prompt.
func Require(sources ...Source) error {
	for _, src := range sources {
		status := Check(src)
		if status == Authorized {
			continue
		}
		if status == NotDetermined {
			Request(src)
		}
		return fmt.Errorf("%s access %s: %w", src, status, media.ErrPermissionDenied)
	}
	return nil
}

// ForConstraints lists the sources a user media request touches.
func ForConstraints(c media.Constraints) []Source {
	var sources []Source
	if c.Audio {
		sources = append(sources, Microphone)
	}
	if c.Video {
		sources = append(sources, Camera)
	}
	return sources
}
