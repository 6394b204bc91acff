package capture

import (
	"context"

	"github.com/petems/localmedia/internal/media"
)

// UserMedia acquires camera and microphone streams.
type UserMedia interface {
	RequestUserMedia(ctx context.Context, constraints media.Constraints) (media.Stream, error)
}

// DisplayMedia acquires screen share streams.
type DisplayMedia interface {
	// IsSourceAvailable reports whether any screen capture source exists.
	IsSourceAvailable() bool
	RequestDisplayMedia(ctx context.Context, constraints media.Constraints) (media.Stream, error)
}

// Capabilities describes what the environment can capture.
type Capabilities interface {
	HasUserMedia() bool
	HasDisplayMedia() bool
	SupportsScreenSourceConstraint() bool
}

var (
	_ Capabilities = (*Devices)(nil)
	_ Capabilities = (*Microphone)(nil)
)

// Device represents a capture input device
type Device struct {
	ID      string
	Name    string
	Kind    media.Kind
	Default bool
}

// Lister is implemented by backends that can enumerate their devices.
type Lister interface {
	ListDevices() ([]Device, error)
}
