package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/localmedia/internal/activity"
	"github.com/petems/localmedia/internal/media"
)

type mockUserMedia struct {
	mu      sync.Mutex
	calls   []media.Constraints
	request func(c media.Constraints) (media.Stream, error)
}

func (m *mockUserMedia) RequestUserMedia(ctx context.Context, c media.Constraints) (media.Stream, error) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	request := m.request
	m.mu.Unlock()
	if request == nil {
		return newCameraStream(c), nil
	}
	return request(c)
}

func (m *mockUserMedia) Calls() []media.Constraints {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]media.Constraints(nil), m.calls...)
}

type mockDisplay struct {
	available bool
	stream    media.Stream
	err       error
	requested int
}

func (m *mockDisplay) IsSourceAvailable() bool {
	return m.available
}

func (m *mockDisplay) RequestDisplayMedia(ctx context.Context, c media.Constraints) (media.Stream, error) {
	m.requested++
	return m.stream, m.err
}

type mockDetector struct {
	mu         sync.Mutex
	onSpeaking func()
	onStopped  func()
	onVolume   func(volume, threshold float64)
	stopped    bool
}

func (d *mockDetector) OnSpeaking(cb func())        { d.mu.Lock(); d.onSpeaking = cb; d.mu.Unlock() }
func (d *mockDetector) OnStoppedSpeaking(cb func()) { d.mu.Lock(); d.onStopped = cb; d.mu.Unlock() }
func (d *mockDetector) OnVolumeChange(cb func(volume, threshold float64)) {
	d.mu.Lock()
	d.onVolume = cb
	d.mu.Unlock()
}

func (d *mockDetector) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

func (d *mockDetector) IsStopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

func (d *mockDetector) speak()     { d.onSpeaking() }
func (d *mockDetector) stopSpeak() { d.onStopped() }

type detectorPool struct {
	mu        sync.Mutex
	detectors []*mockDetector
	opts      []*activity.Options
}

func (p *detectorPool) factory(stream media.Stream, opts *activity.Options) activity.Detector {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := &mockDetector{}
	p.detectors = append(p.detectors, d)
	p.opts = append(p.opts, opts)
	return d
}

func (p *detectorPool) get(i int) *mockDetector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detectors[i]
}

// eventLog records every published event.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) handle(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

func (l *eventLog) count(typ EventType) int {
	n := 0
	for _, t := range l.types() {
		if t == typ {
			n++
		}
	}
	return n
}

func (l *eventLog) last(typ EventType) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type == typ {
			return l.events[i], true
		}
	}
	return Event{}, false
}

func newCameraStream(c media.Constraints) *media.LocalStream {
	var tracks []media.Track
	if c.Audio {
		tracks = append(tracks, media.NewLocalTrack(media.KindAudio, "mic", nil))
	}
	if c.Video {
		tracks = append(tracks, media.NewLocalTrack(media.KindVideo, "camera", nil))
	}
	return media.NewLocalStream(tracks...)
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *eventLog) {
	t.Helper()
	if cfg.UserMedia == nil {
		cfg.UserMedia = &mockUserMedia{}
	}
	cfg.Logger = zerolog.Nop()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log := &eventLog{}
	m.SubscribeAll(log.handle)
	return m, log
}

func wait(t *testing.T, acq *Acquisition) (media.Stream, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stream, err := acq.Wait(ctx)
	if err == context.DeadlineExceeded {
		t.Fatal("acquisition did not complete")
	}
	return stream, err
}

func sameTypes(got, want []EventType) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
