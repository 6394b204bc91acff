package activity

import (
	"time"

	"github.com/petems/localmedia/internal/media"
)

// Detector reports voice activity for one stream.
type Detector interface {
	OnSpeaking(callback func())
	OnStoppedSpeaking(callback func())
	OnVolumeChange(callback func(volume, threshold float64))
	Stop()
}

// Factory builds a Detector bound to stream. opts may be nil.
type Factory func(stream media.Stream, opts *Options) Detector

// Options tunes the energy detector
type Options struct {
	Interval  time.Duration `json:"interval" yaml:"interval"`   // sampling period
	Threshold float64       `json:"threshold" yaml:"threshold"` // dBFS
	History   int           `json:"history" yaml:"history"`     // samples kept for the stop decision
	Smoothing float64       `json:"smoothing" yaml:"smoothing"` // 0 = none, close to 1 = heavy
}

// DefaultOptions returns the detector defaults.
func DefaultOptions() Options {
	return Options{
		Interval:  50 * time.Millisecond,
		Threshold: -50,
		History:   10,
		Smoothing: 0.1,
	}
}

func (o *Options) withDefaults() Options {
	d := DefaultOptions()
	if o == nil {
		return d
	}
	out := *o
	if out.Interval <= 0 {
		out.Interval = d.Interval
	}
	if out.Threshold == 0 {
		out.Threshold = d.Threshold
	}
	if out.History < 3 {
		out.History = d.History
	}
	if out.Smoothing < 0 || out.Smoothing >= 1 {
		out.Smoothing = d.Smoothing
	}
	return out
}
