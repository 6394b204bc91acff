package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/localmedia/internal/activity"
	"github.com/petems/localmedia/internal/capture"
	"github.com/petems/localmedia/internal/media"
)

// Manager tracks the locally captured camera/microphone and screen share
// streams of one user, and publishes their lifecycle as events.
//
// Collection changes happen under mu; events are published after mu is
// released so handlers may call back into the Manager.
type Manager struct {
	cfg       Config
	log       zerolog.Logger
	userMedia capture.UserMedia
	display   capture.DisplayMedia
	detectors activity.Factory
	events    emitter

	stoppedSpeakingDelay time.Duration

	mu           sync.Mutex
	localStreams []media.Stream
	localScreens []media.Stream
	monitors     map[string]*audioMonitor
	muted        bool
}

func New(cfg Config) (*Manager, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:                  cfg,
		log:                  cfg.Logger,
		userMedia:            cfg.UserMedia,
		display:              cfg.DisplayMedia,
		detectors:            cfg.Detector,
		stoppedSpeakingDelay: StoppedSpeakingDelay,
		monitors:             make(map[string]*audioMonitor),
	}

	// Registered first so monitors are gone before any other subscriber
	// sees the stopped event.
	m.events.subscribe(LocalStreamStopped, m.releaseMonitor)
	m.events.subscribe(LocalScreenStopped, m.releaseMonitor)

	return m, nil
}

// Subscribe registers handler for one event type.
func (m *Manager) Subscribe(event EventType, handler Handler) Subscription {
	return m.events.subscribe(event, handler)
}

// SubscribeAll registers handler for every event.
func (m *Manager) SubscribeAll(handler Handler) Subscription {
	return m.events.subscribe("", handler)
}

// Unsubscribe removes a handler. It reports whether the handler was registered.
func (m *Manager) Unsubscribe(s Subscription) bool {
	return m.events.unsubscribe(s)
}

func (m *Manager) publish(ev Event) {
	m.events.publish(ev)
}

// Start requests a camera/microphone stream. nil constraints use the
// configured default. The returned Acquisition completes once; cb, if set,
// runs on completion.
func (m *Manager) Start(ctx context.Context, constraints *media.Constraints, cb Callback) *Acquisition {
	c := *m.cfg.Media
	if constraints != nil {
		c = *constraints
	}

	acq := newAcquisition(cb)
	m.requestUserMedia(ctx, c, acq)
	return acq
}

func (m *Manager) requestUserMedia(ctx context.Context, c media.Constraints, acq *Acquisition) {
	m.publish(Event{Type: LocalStreamRequested, Constraints: c})
	m.log.Debug().Stringer("constraints", c).Msg("Requesting user media")

	go func() {
		stream, err := m.userMedia.RequestUserMedia(ctx, c)
		if err != nil {
			m.userMediaFailed(ctx, c, err, acq)
			return
		}
		m.addLocalStream(c, stream)
		acq.complete(stream, nil)
		m.removeIfEnded(stream, media.FullyEnded)
	}()
}

func (m *Manager) userMediaFailed(ctx context.Context, c media.Constraints, err error, acq *Acquisition) {
	if m.cfg.AudioFallback && c.Video && errors.Is(err, media.ErrDeviceNotFound) {
		m.log.Info().Err(err).Msg("No camera found, retrying with audio only")
		m.requestUserMedia(ctx, c.WithoutVideo(), acq)
		return
	}

	m.log.Error().Err(err).Stringer("constraints", c).Msg("User media request failed")
	m.publish(Event{Type: LocalStreamRequestFailed, Constraints: c, Err: err})
	acq.complete(nil, err)
}

func (m *Manager) addLocalStream(c media.Constraints, stream media.Stream) {
	var mon *audioMonitor
	if c.Audio && m.cfg.DetectSpeakingEvents && media.HasAudio(stream) {
		mon = m.newMonitor(stream)
	}

	m.mu.Lock()
	if m.registeredLocked(stream) {
		m.mu.Unlock()
		if mon != nil {
			mon.stop()
		}
		m.log.Warn().Str("stream", stream.ID()).Msg("Stream already registered")
		return
	}
	if mon != nil {
		m.monitors[stream.ID()] = mon
	}
	m.localStreams = append(m.localStreams, stream)
	m.mu.Unlock()

	for _, t := range stream.Tracks() {
		t.OnEnded(func() {
			m.removeIfEnded(stream, media.FullyEnded)
		})
	}

	m.log.Info().Str("stream", stream.ID()).Int("tracks", len(stream.Tracks())).Bool("monitored", mon != nil).Msg("Local stream started")
	m.publish(Event{Type: LocalStream, Stream: stream})
}

func (m *Manager) newMonitor(stream media.Stream) *audioMonitor {
	if len(stream.AudioTracks()) > 0 && !activity.HasSampleSource(stream) {
		m.log.Warn().Str("stream", stream.ID()).Msg("Audio monitor attached to a stream without a sample source, speaking events will not fire")
	}
	detector := m.detectors(stream, m.cfg.HarkOptions)
	return newAudioMonitor(stream, detector, m.stoppedSpeakingDelay, m.publish)
}

// StartScreenShare requests a screen capture stream. nil constraints ask for
// video only; passing nil constraints with a callback is the handler-only form.
func (m *Manager) StartScreenShare(ctx context.Context, constraints *media.Constraints, cb Callback) *Acquisition {
	c := media.Constraints{Video: true}
	if constraints != nil {
		c = *constraints
	}

	acq := newAcquisition(cb)
	m.publish(Event{Type: LocalScreenRequested, Constraints: c})

	if m.display == nil || !m.display.IsSourceAvailable() {
		m.log.Warn().Msg("No screen capture source available")
		m.publish(Event{Type: LocalScreenRequestFailed, Constraints: c})
		acq.complete(nil, media.ErrNoScreenSource)
		return acq
	}

	go func() {
		stream, err := m.display.RequestDisplayMedia(ctx, c)
		if err != nil {
			m.log.Error().Err(err).Msg("Screen share request failed")
			m.publish(Event{Type: LocalScreenRequestFailed, Constraints: c, Err: err})
			acq.complete(nil, err)
			return
		}
		m.addLocalScreen(stream)
		acq.complete(stream, nil)
		m.removeIfEnded(stream, videoEnded)
	}()

	return acq
}

func (m *Manager) addLocalScreen(stream media.Stream) {
	m.mu.Lock()
	if m.registeredLocked(stream) {
		m.mu.Unlock()
		m.log.Warn().Str("stream", stream.ID()).Msg("Screen stream already registered")
		return
	}
	m.localScreens = append(m.localScreens, stream)
	// New screen shares follow the current mute state
	if m.muted {
		for _, t := range stream.AudioTracks() {
			t.SetEnabled(false)
		}
	}
	m.mu.Unlock()

	// Only the video side ends a screen share
	for _, t := range stream.VideoTracks() {
		t.OnEnded(func() {
			m.removeIfEnded(stream, videoEnded)
		})
	}

	m.log.Info().Str("stream", stream.ID()).Msg("Screen share started")
	m.publish(Event{Type: LocalScreen, Stream: stream})
}

// videoEnded reports whether every video track of s has ended.
func videoEnded(s media.Stream) bool {
	video := s.VideoTracks()
	if len(video) == 0 {
		return false
	}
	for _, t := range video {
		if t.State() != media.TrackStateEnded {
			return false
		}
	}
	return true
}

func (m *Manager) removeIfEnded(stream media.Stream, ended func(media.Stream) bool) {
	if ended(stream) {
		m.removeStream(stream)
	}
}

// Stop stops stream in whichever collection holds it, or every stream when
// stream is nil.
func (m *Manager) Stop(stream media.Stream) {
	m.StopStream(stream)
	m.StopScreenShare(stream)
}

// StopStream stops a camera/microphone stream, or all of them when stream is nil.
func (m *Manager) StopStream(stream media.Stream) {
	m.stopIn(false, stream)
}

// StopScreenShare stops a screen share, or all of them when stream is nil.
func (m *Manager) StopScreenShare(stream media.Stream) {
	m.stopIn(true, stream)
}

func (m *Manager) stopIn(screens bool, stream media.Stream) {
	m.mu.Lock()
	list := m.localStreams
	if screens {
		list = m.localScreens
	}
	var targets []media.Stream
	if stream == nil {
		targets = append(targets, list...)
	} else if indexOf(list, stream) >= 0 {
		targets = append(targets, stream)
	}
	m.mu.Unlock()

	// Track callbacks re-enter the Manager, so tracks stop outside mu.
	for _, s := range targets {
		media.StopAll(s)
		m.removeStream(s)
	}
}

// removeStream deregisters stream and publishes the matching stopped event.
// Streams that are no longer registered are ignored.
func (m *Manager) removeStream(stream media.Stream) {
	m.mu.Lock()
	var typ EventType
	if i := indexOf(m.localStreams, stream); i >= 0 {
		m.localStreams = append(m.localStreams[:i:i], m.localStreams[i+1:]...)
		typ = LocalStreamStopped
	} else if i := indexOf(m.localScreens, stream); i >= 0 {
		m.localScreens = append(m.localScreens[:i:i], m.localScreens[i+1:]...)
		typ = LocalScreenStopped
	}
	m.mu.Unlock()

	if typ == "" {
		return
	}
	m.log.Info().Str("stream", stream.ID()).Str("event", string(typ)).Msg("Stream removed")
	m.publish(Event{Type: typ, Stream: stream})
}

func (m *Manager) releaseMonitor(ev Event) {
	m.mu.Lock()
	mon := m.monitors[ev.Stream.ID()]
	delete(m.monitors, ev.Stream.ID())
	m.mu.Unlock()

	if mon != nil {
		mon.stop()
	}
}

func (m *Manager) Mute() {
	m.setAudioEnabled(false)
	m.publish(Event{Type: AudioOff})
}

func (m *Manager) Unmute() {
	m.setAudioEnabled(true)
	m.publish(Event{Type: AudioOn})
}

func (m *Manager) PauseVideo() {
	m.setVideoEnabled(false)
	m.publish(Event{Type: VideoOff})
}

func (m *Manager) ResumeVideo() {
	m.setVideoEnabled(true)
	m.publish(Event{Type: VideoOn})
}

// Pause mutes audio and pauses video.
func (m *Manager) Pause() {
	m.Mute()
	m.PauseVideo()
}

// Resume unmutes audio and resumes video.
func (m *Manager) Resume() {
	m.Unmute()
	m.ResumeVideo()
}

// setAudioEnabled covers camera/microphone and screen share audio.
func (m *Manager) setAudioEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = !enabled
	for _, s := range m.localStreams {
		setEnabled(s.AudioTracks(), enabled)
	}
	for _, s := range m.localScreens {
		setEnabled(s.AudioTracks(), enabled)
	}
}

func (m *Manager) setVideoEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.localStreams {
		setEnabled(s.VideoTracks(), enabled)
	}
}

func setEnabled(tracks []media.Track, enabled bool) {
	for _, t := range tracks {
		t.SetEnabled(enabled)
	}
}

// IsAudioEnabled reports whether every registered audio track is enabled.
// No tracks counts as enabled.
func (m *Manager) IsAudioEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.localStreams {
		if !allEnabled(s.AudioTracks()) {
			return false
		}
	}
	for _, s := range m.localScreens {
		if !allEnabled(s.AudioTracks()) {
			return false
		}
	}
	return true
}

// IsVideoEnabled reports whether every camera video track is enabled.
func (m *Manager) IsVideoEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.localStreams {
		if !allEnabled(s.VideoTracks()) {
			return false
		}
	}
	return true
}

func allEnabled(tracks []media.Track) bool {
	for _, t := range tracks {
		if !t.Enabled() {
			return false
		}
	}
	return true
}

// IsMuted reports whether Mute was called more recently than Unmute.
func (m *Manager) IsMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// LocalStreams returns a snapshot of the camera/microphone streams.
func (m *Manager) LocalStreams() []media.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]media.Stream(nil), m.localStreams...)
}

// LocalScreens returns a snapshot of the screen share streams.
func (m *Manager) LocalScreens() []media.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]media.Stream(nil), m.localScreens...)
}

// MonitorCount returns the number of attached activity monitors.
func (m *Manager) MonitorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.monitors)
}

// Close stops every stream. In-flight acquisitions still complete and
// register their stream.
func (m *Manager) Close() {
	m.Stop(nil)
}

func (m *Manager) registeredLocked(stream media.Stream) bool {
	return indexOf(m.localStreams, stream) >= 0 || indexOf(m.localScreens, stream) >= 0
}

func indexOf(list []media.Stream, stream media.Stream) int {
	if stream == nil {
		return -1
	}
	for i, s := range list {
		if s.ID() == stream.ID() {
			return i
		}
	}
	return -1
}
