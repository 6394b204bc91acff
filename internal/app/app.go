package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/localmedia/internal/capture"
	"github.com/petems/localmedia/internal/config"
	"github.com/petems/localmedia/internal/hotkey"
	"github.com/petems/localmedia/internal/media"
	"github.com/petems/localmedia/internal/session"
)

type Mode int

const (
	PushToTalk Mode = iota
	Toggle
)

// Status is the coarse state shown to the user.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusLive     Status = "live"
	StatusSpeaking Status = "speaking"
	StatusMuted    Status = "muted"
	StatusError    Status = "error"
)

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetLive()
	SetSpeaking()
	SetMuted()
	SetError()
}

type Config struct {
	Session       *session.Manager
	Devices       capture.Lister // Optional - device listing is empty without it
	Hotkeys       hotkey.Manager // Optional - no global hotkey without it
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// App maps hotkey and tray actions onto a session.Manager and keeps the
// status indicator in sync with session events.
type App struct {
	sess    *session.Manager
	devices capture.Lister
	hotkeys hotkey.Manager
	cfg     *config.Config
	log     zerolog.Logger
	status  StatusUpdater
	sub     session.Subscription

	mu       sync.Mutex
	held     bool // push-to-talk key is down
	speaking bool
	lastErr  error
	current  Status
	hotkey   string
}

func New(cfg Config) *App {
	a := &App{
		sess:    cfg.Session,
		devices: cfg.Devices,
		hotkeys: cfg.Hotkeys,
		cfg:     cfg.Config,
		log:     cfg.Logger,
		status:  cfg.StatusUpdater,
		current: StatusIdle,
	}
	a.sub = a.sess.SubscribeAll(a.onEvent)
	return a
}

func (a *App) mode() Mode {
	if a.cfg.Mode == config.ModeToggle {
		return Toggle
	}
	return PushToTalk
}

// RegisterHotkey grabs the configured platform hotkey.
func (a *App) RegisterHotkey() error {
	if a.hotkeys == nil {
		return fmt.Errorf("no hotkey manager: %w", media.ErrNotSupported)
	}
	accel := a.cfg.PlatformHotkey()
	if err := a.hotkeys.Register(accel, a.OnHotkey); err != nil {
		return fmt.Errorf("failed to register hotkey %s: %w", accel, err)
	}

	a.mu.Lock()
	a.hotkey = accel
	a.mu.Unlock()
	a.log.Info().Str("hotkey", accel).Msg("Hotkey registered")
	return nil
}

// OnHotkey unmutes while the key is held in push-to-talk mode and flips
// mute on each press in toggle mode.
func (a *App) OnHotkey(pressed bool) {
	a.mu.Lock()
	mode := a.mode()
	if mode == PushToTalk {
		if a.held == pressed {
			a.mu.Unlock()
			return
		}
		a.held = pressed
	}
	a.mu.Unlock()

	switch mode {
	case PushToTalk:
		if pressed {
			a.sess.Unmute()
		} else {
			a.sess.Mute()
		}
	case Toggle:
		if pressed {
			a.ToggleMute()
		}
	}
}

// StartCamera acquires the configured camera and microphone.
func (a *App) StartCamera(ctx context.Context) *session.Acquisition {
	c := a.cfg.Media
	return a.sess.Start(ctx, &c, func(err error, stream media.Stream) {
		if err != nil {
			return
		}
		a.applyInitialMute()
	})
}

// ShareScreen acquires a screen share.
func (a *App) ShareScreen(ctx context.Context) *session.Acquisition {
	return a.sess.StartScreenShare(ctx, nil, nil)
}

// applyInitialMute keeps a fresh stream silent until the user talks.
func (a *App) applyInitialMute() {
	a.mu.Lock()
	mute := a.cfg.Session.StartMuted
	if a.mode() == PushToTalk {
		mute = !a.held
	}
	a.mu.Unlock()

	if mute {
		a.sess.Mute()
	}
}

func (a *App) StopAll() {
	a.log.Info().Msg("Stopping all streams")
	a.sess.Stop(nil)
}

func (a *App) ToggleMute() {
	if a.sess.IsMuted() {
		a.sess.Unmute()
	} else {
		a.sess.Mute()
	}
}

func (a *App) TogglePauseVideo() {
	if a.sess.IsVideoEnabled() {
		a.sess.PauseVideo()
	} else {
		a.sess.ResumeVideo()
	}
}

func (a *App) onEvent(ev session.Event) {
	a.mu.Lock()
	switch ev.Type {
	case session.LocalStreamRequestFailed, session.LocalScreenRequestFailed:
		a.lastErr = ev.Err
		if a.lastErr == nil {
			a.lastErr = media.ErrNoScreenSource
		}
	case session.LocalStream, session.LocalScreen:
		a.lastErr = nil
	case session.Speaking:
		a.speaking = true
	case session.StoppedSpeaking, session.LocalStreamStopped:
		a.speaking = false
	case session.VolumeChange, session.LocalStreamRequested, session.LocalScreenRequested:
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	a.refreshStatus()
}

func (a *App) refreshStatus() {
	live := len(a.sess.LocalStreams())+len(a.sess.LocalScreens()) > 0
	muted := a.sess.IsMuted()

	a.mu.Lock()
	var next Status
	switch {
	case a.lastErr != nil:
		next = StatusError
	case !live:
		next = StatusIdle
	case muted:
		next = StatusMuted
	case a.speaking:
		next = StatusSpeaking
	default:
		next = StatusLive
	}
	changed := next != a.current
	a.current = next
	a.mu.Unlock()

	if !changed || a.status == nil {
		return
	}
	switch next {
	case StatusIdle:
		a.status.SetIdle()
	case StatusLive:
		a.status.SetLive()
	case StatusSpeaking:
		a.status.SetSpeaking()
	case StatusMuted:
		a.status.SetMuted()
	case StatusError:
		a.status.SetError()
	}
}

// Status returns the state last shown to the user.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Summary describes the session in one line, suitable for the clipboard.
func (a *App) Summary() string {
	streams := len(a.sess.LocalStreams())
	screens := len(a.sess.LocalScreens())
	muted := a.sess.IsMuted()
	video := a.sess.IsVideoEnabled()

	a.mu.Lock()
	defer a.mu.Unlock()

	s := fmt.Sprintf("%s: %d camera stream(s), %d screen share(s), muted=%t, video=%t, mode=%s",
		a.current, streams, screens, muted, video, a.cfg.Mode)
	if a.lastErr != nil {
		s += ", last error: " + a.lastErr.Error()
	}
	return s
}

func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	accel := a.hotkey
	a.hotkey = ""
	a.mu.Unlock()

	if accel != "" && a.hotkeys != nil {
		if err := a.hotkeys.Unregister(accel); err != nil {
			a.log.Warn().Err(err).Str("hotkey", accel).Msg("Failed to unregister hotkey")
		}
	}

	a.sess.Close()
	a.sess.Unsubscribe(a.sub)
	return nil
}

// Tray actions

func (a *App) SetMode(mode string) error {
	if mode != config.ModePushToTalk && mode != config.ModeToggle {
		return fmt.Errorf("unknown mode %q", mode)
	}

	a.mu.Lock()
	a.cfg.Mode = mode
	a.held = false
	err := a.cfg.Save()
	a.mu.Unlock()

	// Push-to-talk starts silent
	if mode == config.ModePushToTalk {
		a.sess.Mute()
	}
	return err
}

func (a *App) SetDevice(id string) error {
	if len(a.sess.LocalStreams()) > 0 {
		return fmt.Errorf("cannot change device while capturing")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Media.DeviceID = id
	return a.cfg.Save()
}

func (a *App) IsMuted() bool {
	return a.sess.IsMuted()
}

func (a *App) IsVideoPaused() bool {
	return !a.sess.IsVideoEnabled()
}

func (a *App) Mode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Mode
}

func (a *App) ListDevices() ([]capture.Device, error) {
	if a.devices == nil {
		return nil, nil
	}
	return a.devices.ListDevices()
}
