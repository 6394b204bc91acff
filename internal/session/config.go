package session

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/petems/localmedia/internal/activity"
	"github.com/petems/localmedia/internal/capture"
	"github.com/petems/localmedia/internal/media"
)

// Config is read once by New and never changes afterwards.
type Config struct {
	UserMedia    capture.UserMedia
	DisplayMedia capture.DisplayMedia // Optional - screen share fails without it
	Detector     activity.Factory     // Optional - defaults to activity.New
	Logger       zerolog.Logger

	// DetectSpeakingEvents attaches an activity monitor to audio acquisitions.
	DetectSpeakingEvents bool
	// AudioFallback retries without video when no camera is found.
	AudioFallback bool
	// Media is the default for Start; nil means audio and video.
	Media *media.Constraints
	// HarkOptions is handed to the detector factory untouched.
	HarkOptions *activity.Options
}

func (c Config) withDefaults() (Config, error) {
	if c.UserMedia == nil {
		return c, errors.New("session: UserMedia provider is required")
	}
	if c.Detector == nil {
		c.Detector = activity.New
	}
	if c.Media == nil {
		c.Media = &media.Constraints{Audio: true, Video: true}
	} else {
		m := *c.Media
		c.Media = &m
	}
	return c, nil
}
