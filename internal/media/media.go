package media

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Kind is the track kind, shared with pion so tracks can be handed to a peer connection.
type Kind = webrtc.RTPCodecType

const (
	KindAudio = webrtc.RTPCodecTypeAudio
	KindVideo = webrtc.RTPCodecTypeVideo
)

var (
	ErrDeviceNotFound   = errors.New("no capture device matches the constraints")
	ErrPermissionDenied = errors.New("capture permission denied")
	ErrNotSupported     = errors.New("capture not supported on this platform")
	ErrNoScreenSource   = errors.New("no screen capture source available")
)

// TrackState is the lifecycle state of a track. Ended is terminal.
type TrackState int

const (
	TrackStateLive TrackState = iota
	TrackStateEnded
)

func (s TrackState) String() string {
	switch s {
	case TrackStateLive:
		return "live"
	case TrackStateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Constraints selects which kinds of media an acquisition asks for.
type Constraints struct {
	Audio    bool   `json:"audio" yaml:"audio"`
	Video    bool   `json:"video" yaml:"video"`
	DeviceID string `json:"device_id,omitempty" yaml:"device_id,omitempty"` // preferred audio input, "" = default
}

// WithoutVideo returns a copy of c with video disabled.
func (c Constraints) WithoutVideo() Constraints {
	c.Video = false
	return c
}

func (c Constraints) String() string {
	return fmt.Sprintf("audio=%t video=%t", c.Audio, c.Video)
}
