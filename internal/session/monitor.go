package session

import (
	"sync"
	"time"

	"github.com/petems/localmedia/internal/activity"
	"github.com/petems/localmedia/internal/media"
)

// StoppedSpeakingDelay is how long silence must last before stoppedSpeaking
// is published.
const StoppedSpeakingDelay = time.Second

// audioMonitor turns detector callbacks for one stream into session events.
type audioMonitor struct {
	stream   media.Stream
	detector activity.Detector
	delay    time.Duration
	publish  func(Event)

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	stopped bool
}

func newAudioMonitor(stream media.Stream, detector activity.Detector, delay time.Duration, publish func(Event)) *audioMonitor {
	a := &audioMonitor{
		stream:   stream,
		detector: detector,
		delay:    delay,
		publish:  publish,
	}
	detector.OnSpeaking(a.speaking)
	detector.OnStoppedSpeaking(a.stoppedSpeaking)
	detector.OnVolumeChange(a.volumeChange)
	return a
}

func (a *audioMonitor) speaking() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.cancelLocked()
	a.mu.Unlock()

	a.publish(Event{Type: Speaking, Stream: a.stream})
}

// stoppedSpeaking (re)arms the debounce timer.
func (a *audioMonitor) stoppedSpeaking() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.cancelLocked()
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

func (a *audioMonitor) fire(gen uint64) {
	a.mu.Lock()
	if a.stopped || gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.mu.Unlock()

	a.publish(Event{Type: StoppedSpeaking, Stream: a.stream})
}

func (a *audioMonitor) volumeChange(volume, threshold float64) {
	a.mu.Lock()
	stopped := a.stopped
	a.mu.Unlock()
	if stopped {
		return
	}
	a.publish(Event{Type: VolumeChange, Stream: a.stream, Volume: volume, Threshold: threshold})
}

// cancelLocked invalidates any pending stoppedSpeaking.
func (a *audioMonitor) cancelLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *audioMonitor) stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.cancelLocked()
	a.mu.Unlock()

	a.detector.Stop()
}
