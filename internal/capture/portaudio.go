package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/petems/localmedia/internal/media"
	"github.com/petems/localmedia/internal/permissions"
)

const framesPerBuffer = 512

// Microphone captures audio-only streams through PortAudio. Requests that
// ask for video fail with media.ErrDeviceNotFound, which lets the session
// fall back to audio.
type Microphone struct {
	sampleRate int
	log        zerolog.Logger
}

// NewMicrophone initializes PortAudio. Close must be called to release it.
func NewMicrophone(sampleRate int, log zerolog.Logger) (*Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Microphone{sampleRate: sampleRate, log: log}, nil
}

func (p *Microphone) RequestUserMedia(ctx context.Context, c media.Constraints) (media.Stream, error) {
	if c.Video {
		return nil, fmt.Errorf("camera capture: %w", media.ErrDeviceNotFound)
	}
	if !c.Audio {
		return nil, fmt.Errorf("empty constraints: %w", media.ErrNotSupported)
	}
	if err := permissions.Require(permissions.Microphone); err != nil {
		return nil, err
	}

	device, err := findInputDevice(c.DeviceID)
	if err != nil {
		return nil, err
	}

	channels := device.MaxInputChannels
	if channels > 2 {
		channels = 2
	}

	// Interleaved input buffer
	buffer := make([]float32, framesPerBuffer*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(p.sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	track := media.NewAudioTrack(device.Name, p.sampleRate, func() error {
		cancel()
		return stream.Stop()
	})

	go p.readLoop(readCtx, stream, buffer, channels, track)

	p.log.Debug().Str("device", device.Name).Int("channels", channels).Msg("Microphone opened")
	return media.NewLocalStream(track), nil
}

func (p *Microphone) readLoop(ctx context.Context, stream *portaudio.Stream, buffer []float32, channels int, track *media.LocalTrack) {
	defer stream.Close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			if ctx.Err() != nil {
				return
			}
			// Device went away underneath us
			p.log.Warn().Err(err).Str("track", track.ID()).Msg("Microphone read failed")
			track.End()
			return
		}

		track.WriteSamples(downmixInterleaved(buffer, channels, framesPerBuffer))
	}
}

func (p *Microphone) ListDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]Device, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, Device{
				ID:      d.Name,
				Name:    d.Name,
				Kind:    media.KindAudio,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (p *Microphone) HasUserMedia() bool {
	devices, err := p.ListDevices()
	return err == nil && len(devices) > 0
}

// HasDisplayMedia is always false; PortAudio has no screen sources.
func (p *Microphone) HasDisplayMedia() bool { return false }

func (p *Microphone) SupportsScreenSourceConstraint() bool { return false }

func (p *Microphone) Close() error {
	return portaudio.Terminate()
}

func findInputDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil || device == nil {
			return nil, fmt.Errorf("default input device: %w", errors.Join(media.ErrDeviceNotFound, err))
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("input device %q: %w", deviceID, media.ErrDeviceNotFound)
}

// downmixInterleaved averages interleaved frames into a fresh mono slice.
func downmixInterleaved(buffer []float32, channels, frames int) []float32 {
	out := make([]float32, frames)
	if channels <= 1 {
		copy(out, buffer[:frames])
		return out
	}
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += buffer[base+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}
