package capture

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/driver"
	"github.com/pion/mediadevices/pkg/io/audio"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/mediadevices/pkg/wave"
	"github.com/rs/zerolog"

	"github.com/petems/localmedia/internal/media"
	"github.com/petems/localmedia/internal/permissions"
)

// Devices captures camera, microphone and screen through pion/mediadevices.
// Drivers are registered by blank imports in the binary.
type Devices struct {
	log zerolog.Logger

	// screenTypes reports the screen sources offered by the desktop portal.
	screenTypes func() (SourceTypes, error)
}

func NewDevices(log zerolog.Logger) *Devices {
	return &Devices{log: log, screenTypes: ScreenSourceTypes}
}

func (d *Devices) RequestUserMedia(ctx context.Context, c media.Constraints) (media.Stream, error) {
	if !c.Audio && !c.Video {
		return nil, fmt.Errorf("empty constraints: %w", media.ErrNotSupported)
	}
	if err := permissions.Require(permissions.ForConstraints(c)...); err != nil {
		return nil, err
	}

	stream, err := mediadevices.GetUserMedia(userMediaConstraints(c))
	if err != nil {
		return nil, classify("user media", err)
	}
	return wrapStream(stream), nil
}

// userMediaConstraints translates c. DeviceID is a preference, not a hard
// requirement, so a missing device still falls back to the best match.
func userMediaConstraints(c media.Constraints) mediadevices.MediaStreamConstraints {
	var constraints mediadevices.MediaStreamConstraints
	if c.Audio {
		constraints.Audio = func(mtc *mediadevices.MediaTrackConstraints) {
			if c.DeviceID != "" {
				mtc.DeviceID = prop.String(c.DeviceID)
			}
		}
	}
	if c.Video {
		constraints.Video = func(mtc *mediadevices.MediaTrackConstraints) {}
	}
	return constraints
}

func (d *Devices) IsSourceAvailable() bool {
	return d.HasDisplayMedia()
}

func (d *Devices) RequestDisplayMedia(ctx context.Context, c media.Constraints) (media.Stream, error) {
	if err := permissions.Require(permissions.Screen); err != nil {
		return nil, err
	}

	stream, err := mediadevices.GetDisplayMedia(displayMediaConstraints())
	if err != nil {
		return nil, classify("display media", err)
	}
	return wrapStream(stream), nil
}

func displayMediaConstraints() mediadevices.MediaStreamConstraints {
	return mediadevices.MediaStreamConstraints{
		Video: func(mtc *mediadevices.MediaTrackConstraints) {},
	}
}

func (d *Devices) HasUserMedia() bool {
	for _, info := range mediadevices.EnumerateDevices() {
		if info.Kind == mediadevices.AudioInput || info.Kind == mediadevices.VideoInput {
			return true
		}
	}
	return false
}

func (d *Devices) HasDisplayMedia() bool {
	for _, info := range mediadevices.EnumerateDevices() {
		if info.DeviceType == driver.Screen {
			return true
		}
	}
	types, err := d.screenTypes()
	if err != nil {
		d.log.Debug().Err(err).Msg("Screen portal unavailable")
		return false
	}
	return types != 0
}

// SupportsScreenSourceConstraint reports whether a caller can choose between
// whole monitors and single windows.
func (d *Devices) SupportsScreenSourceConstraint() bool {
	types, err := d.screenTypes()
	if err != nil {
		return false
	}
	return types&SourceMonitor != 0 && types&SourceWindow != 0
}

func (d *Devices) ListDevices() ([]Device, error) {
	var result []Device
	for _, info := range mediadevices.EnumerateDevices() {
		var kind media.Kind
		switch info.Kind {
		case mediadevices.AudioInput:
			kind = media.KindAudio
		case mediadevices.VideoInput:
			kind = media.KindVideo
		default:
			continue
		}
		result = append(result, Device{
			ID:   info.DeviceID,
			Name: info.Label,
			Kind: kind,
		})
	}
	return result, nil
}

// classify maps driver selection failures onto media.ErrDeviceNotFound.
func classify(what string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "failed to find") || strings.Contains(msg, "not found") {
		return fmt.Errorf("%s: %w: %v", what, media.ErrDeviceNotFound, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func wrapStream(stream mediadevices.MediaStream) media.Stream {
	pionTracks := stream.GetTracks()
	tracks := make([]media.Track, 0, len(pionTracks))
	for _, t := range pionTracks {
		tracks = append(tracks, newDeviceTrack(t))
	}
	return media.NewLocalStream(tracks...)
}

// DeviceTrack adapts a mediadevices track. Underlying exposes it for
// binding to a peer connection. Disabling the track replaces its output
// with silence or black frames, so consumers of Underlying see the toggle
// too. Audio tracks also feed mono PCM to Samples.
type DeviceTrack struct {
	track   mediadevices.Track
	enabled atomic.Bool

	samples    chan []float32
	sampleRate atomic.Int64
	closeOnce  sync.Once

	mu      sync.Mutex
	ended   bool
	onEnded []func()
}

// audioBroadcast is implemented by *mediadevices.AudioTrack.
type audioBroadcast interface {
	NewReader(copyChunk bool) audio.Reader
}

type audioTransformer interface {
	Transform(fns ...audio.TransformFunc)
}

type videoTransformer interface {
	Transform(fns ...video.TransformFunc)
}

func newDeviceTrack(track mediadevices.Track) *DeviceTrack {
	t := &DeviceTrack{track: track}
	t.enabled.Store(true)

	switch tr := track.(type) {
	case audioTransformer:
		tr.Transform(t.gateAudio)
	case videoTransformer:
		tr.Transform(t.gateVideo)
	}

	if b, ok := track.(audioBroadcast); ok && track.Kind() == media.KindAudio {
		t.samples = make(chan []float32, 8)
		go t.readSamples(b.NewReader(true))
	}

	track.OnEnded(func(error) { t.markEnded() })
	return t
}

func (t *DeviceTrack) Underlying() mediadevices.Track { return t.track }

func (t *DeviceTrack) ID() string         { return t.track.ID() }
func (t *DeviceTrack) Kind() media.Kind   { return t.track.Kind() }
func (t *DeviceTrack) Label() string      { return t.track.ID() }
func (t *DeviceTrack) Enabled() bool      { return t.enabled.Load() }
func (t *DeviceTrack) SetEnabled(on bool) { t.enabled.Store(on) }

// Samples returns the PCM feed, or nil for video tracks.
func (t *DeviceTrack) Samples() <-chan []float32 {
	if t.samples == nil {
		return nil
	}
	return t.samples
}

// SampleRate is the rate of the most recent chunk, 0 before the first one.
func (t *DeviceTrack) SampleRate() int { return int(t.sampleRate.Load()) }

func (t *DeviceTrack) State() media.TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ended {
		return media.TrackStateEnded
	}
	return media.TrackStateLive
}

func (t *DeviceTrack) OnEnded(callback func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnded = append(t.onEnded, callback)
}

// Stop closes the device once and ends the track.
func (t *DeviceTrack) Stop() {
	t.closeOnce.Do(func() { t.track.Close() })
	t.markEnded()
}

func (t *DeviceTrack) markEnded() {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return
	}
	t.ended = true
	callbacks := t.onEnded
	t.onEnded = nil
	t.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

func (t *DeviceTrack) readSamples(r audio.Reader) {
	for {
		chunk, release, err := r.Read()
		if err != nil {
			return
		}
		info := chunk.ChunkInfo()
		buf := monoSamples(chunk)
		release()

		t.sampleRate.Store(int64(info.SamplingRate))
		t.writeSamples(buf)
	}
}

// writeSamples drops buffers when the track is disabled or ended, or when
// the consumer falls behind.
func (t *DeviceTrack) writeSamples(buf []float32) bool {
	if !t.Enabled() || t.State() == media.TrackStateEnded {
		return false
	}
	select {
	case t.samples <- buf:
		return true
	default:
		return false
	}
}

func (t *DeviceTrack) gateAudio(r audio.Reader) audio.Reader {
	return audio.ReaderFunc(func() (wave.Audio, func(), error) {
		chunk, release, err := r.Read()
		if err != nil || t.Enabled() {
			return chunk, release, err
		}
		silence := wave.NewFloat32Interleaved(chunk.ChunkInfo())
		release()
		return silence, func() {}, nil
	})
}

func (t *DeviceTrack) gateVideo(r video.Reader) video.Reader {
	return video.ReaderFunc(func() (image.Image, func(), error) {
		img, release, err := r.Read()
		if err != nil || t.Enabled() {
			return img, release, err
		}
		black := blackFrame(img.Bounds())
		release()
		return black, func() {}, nil
	})
}

func blackFrame(bounds image.Rectangle) *image.YCbCr {
	frame := image.NewYCbCr(bounds, image.YCbCrSubsampleRatio420)
	for i := range frame.Cb {
		frame.Cb[i] = 128
	}
	for i := range frame.Cr {
		frame.Cr[i] = 128
	}
	return frame
}

// monoSamples averages the channels of chunk into [-1, 1] floats.
func monoSamples(chunk wave.Audio) []float32 {
	info := chunk.ChunkInfo()
	out := make([]float32, info.Len)
	if info.Channels <= 0 {
		return out
	}
	for i := 0; i < info.Len; i++ {
		var sum float32
		for ch := 0; ch < info.Channels; ch++ {
			sum += sampleFloat(chunk.At(i, ch))
		}
		out[i] = sum / float32(info.Channels)
	}
	return out
}

func sampleFloat(s wave.Sample) float32 {
	switch v := s.(type) {
	case wave.Float32Sample:
		return float32(v)
	case wave.Int16Sample:
		return float32(v) / 32768
	default:
		return float32(float64(s.Int()) / (1 << 31))
	}
}
