package media

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Track is a single audio or video component of a captured stream.
type Track interface {
	ID() string
	Kind() Kind
	Label() string

	Enabled() bool
	SetEnabled(enabled bool)

	State() TrackState

	// Stop ends the track and releases the underlying device. Stopping an
	// ended track does nothing.
	Stop()

	// OnEnded registers a callback invoked once when the track ends.
	OnEnded(callback func())
}

// SampleSource is implemented by audio tracks that expose raw PCM.
type SampleSource interface {
	Samples() <-chan []float32
	SampleRate() int
}

// LocalTrack is a Track backed by a local capture device.
type LocalTrack struct {
	id    string
	kind  Kind
	label string

	enabled atomic.Bool

	mu      sync.Mutex
	state   TrackState
	onEnded []func()
	release func() error

	samples    chan []float32
	sampleRate int
}

// NewLocalTrack creates a live, enabled track. release is called once when
// the track is stopped and may be nil.
func NewLocalTrack(kind Kind, label string, release func() error) *LocalTrack {
	t := &LocalTrack{
		id:      uuid.NewString(),
		kind:    kind,
		label:   label,
		release: release,
	}
	t.enabled.Store(true)
	return t
}

// NewAudioTrack creates an audio track that carries PCM samples.
func NewAudioTrack(label string, sampleRate int, release func() error) *LocalTrack {
	t := NewLocalTrack(KindAudio, label, release)
	t.samples = make(chan []float32, 8)
	t.sampleRate = sampleRate
	return t
}

func (t *LocalTrack) ID() string    { return t.id }
func (t *LocalTrack) Kind() Kind    { return t.kind }
func (t *LocalTrack) Label() string { return t.label }

func (t *LocalTrack) Enabled() bool           { return t.enabled.Load() }
func (t *LocalTrack) SetEnabled(enabled bool) { t.enabled.Store(enabled) }

func (t *LocalTrack) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *LocalTrack) OnEnded(callback func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnded = append(t.onEnded, callback)
}

// Stop ends the track and releases its device.
func (t *LocalTrack) Stop() {
	t.end(true)
}

// End marks the track ended from the device side (unplugged, revoked)
// without calling release.
func (t *LocalTrack) End() {
	t.end(false)
}

func (t *LocalTrack) end(release bool) {
	t.mu.Lock()
	if t.state == TrackStateEnded {
		t.mu.Unlock()
		return
	}
	t.state = TrackStateEnded
	callbacks := t.onEnded
	t.onEnded = nil
	rel := t.release
	t.mu.Unlock()

	if release && rel != nil {
		rel()
	}
	for _, cb := range callbacks {
		cb()
	}
}

// Samples returns the PCM feed, or nil for tracks without one.
func (t *LocalTrack) Samples() <-chan []float32 {
	return t.samples
}

func (t *LocalTrack) SampleRate() int {
	return t.sampleRate
}

// WriteSamples offers a buffer to the sample feed. Buffers are dropped when
// the consumer falls behind, when the track is disabled or when it has ended.
func (t *LocalTrack) WriteSamples(samples []float32) bool {
	if t.samples == nil || !t.Enabled() || t.State() == TrackStateEnded {
		return false
	}
	select {
	case t.samples <- samples:
		return true
	default:
		return false
	}
}
