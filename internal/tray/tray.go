package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/localmedia/internal/app"
	"github.com/petems/localmedia/internal/config"
	"github.com/petems/localmedia/internal/logging"
	"github.com/petems/localmedia/internal/media"
)

const requestTimeout = 30 * time.Second

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	// Menu items
	mCamera  *systray.MenuItem
	mScreen  *systray.MenuItem
	mMute    *systray.MenuItem
	mPause   *systray.MenuItem
	mStopAll *systray.MenuItem
	mMode    *systray.MenuItem
	mDevices *systray.MenuItem
	mCopy    *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus(app.StatusIdle)
}

func (u *UI) SetLive() {
	u.updateStatus(app.StatusLive)
}

func (u *UI) SetSpeaking() {
	u.updateStatus(app.StatusSpeaking)
}

func (u *UI) SetMuted() {
	u.updateStatus(app.StatusMuted)
}

func (u *UI) SetError() {
	u.updateStatus(app.StatusError)
}

func New(application *app.App, cfg *config.Config, log zerolog.Logger, version, commit string) *UI {
	return &UI{
		app:     application,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log,
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// Run blocks on the systray loop. It must be called from the main goroutine.
func (u *UI) Run(ctx context.Context) error {
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.updateStatus(app.StatusIdle)
	systray.SetTooltip("Local camera, microphone and screen capture")

	// Build menu
	u.mCamera = systray.AddMenuItem("Start Camera", "Capture camera and microphone")
	u.mScreen = systray.AddMenuItem("Share Screen", "Capture a screen")
	u.mStopAll = systray.AddMenuItem("Stop All", "Stop every capture")
	systray.AddSeparator()

	u.mMute = systray.AddMenuItemCheckbox("Mute", "Mute all outgoing audio", u.app.IsMuted())
	u.mPause = systray.AddMenuItemCheckbox("Pause Video", "Pause camera video", false)
	systray.AddSeparator()

	u.mMode = systray.AddMenuItem(modeTitle(u.cfg.Mode), "Toggle between modes")
	u.mDevices = systray.AddMenuItem("Devices", "Select capture device")
	u.buildDeviceMenu()
	systray.AddSeparator()

	u.mCopy = systray.AddMenuItem("Copy Status", "Copy session status to the clipboard")
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About localmedia")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mCamera.ClickedCh:
			u.startCamera()
		case <-u.mScreen.ClickedCh:
			u.shareScreen()
		case <-u.mStopAll.ClickedCh:
			u.app.StopAll()
		case <-u.mMute.ClickedCh:
			u.app.ToggleMute()
			u.syncChecks()
		case <-u.mPause.ClickedCh:
			u.app.TogglePauseVideo()
			u.syncChecks()
		case <-u.mMode.ClickedCh:
			u.toggleMode()
		case <-u.mCopy.ClickedCh:
			u.copyStatus()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) startCamera() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	u.app.StartCamera(ctx).OnComplete(func(err error, _ media.Stream) {
		defer cancel()
		if err != nil {
			u.log.Error().Err(err).Msg("Failed to start camera")
		}
		u.syncChecks()
	})
}

func (u *UI) shareScreen() {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	u.app.ShareScreen(ctx).OnComplete(func(err error, _ media.Stream) {
		defer cancel()
		if err != nil {
			u.log.Error().Err(err).Msg("Failed to share screen")
		}
	})
}

// syncChecks mirrors the session toggles into the checkbox items.
func (u *UI) syncChecks() {
	setChecked(u.mMute, u.app.IsMuted())
	setChecked(u.mPause, u.app.IsVideoPaused())
}

func setChecked(item *systray.MenuItem, on bool) {
	if on {
		item.Check()
	} else {
		item.Uncheck()
	}
}

func (u *UI) buildDeviceMenu() {
	// Get devices from app
	devices, err := u.app.ListDevices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list capture devices")
		return
	}

	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItem(deviceTitle(dev.Name, dev.Kind.String()), "")
		if dev.ID == u.cfg.Media.DeviceID || (u.cfg.Media.DeviceID == "" && dev.Default) {
			item.Check()
		}
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				if err := u.app.SetDevice(deviceID); err != nil {
					u.log.Warn().Err(err).Str("device", deviceName).Msg("Device not changed")
					continue
				}
				// Uncheck all other items
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				// Check this item
				menuItem.Check()
				u.log.Info().Str("device", deviceName).Msg("Changed capture device")
			}
		}(dev.ID, dev.Name, item)
	}
}

func (u *UI) toggleMode() {
	oldMode := u.app.Mode()
	newMode := nextMode(oldMode)
	if err := u.app.SetMode(newMode); err != nil {
		u.log.Error().Err(err).Msg("Failed to save mode")
	}
	u.mMode.SetTitle(modeTitle(newMode))
	u.syncChecks()
	u.log.Info().Str("from", oldMode).Str("to", newMode).Msg("Changed mode")
}

func (u *UI) copyStatus() {
	summary := u.app.Summary()
	if err := clipboard.WriteAll(summary); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy status")
		return
	}
	u.log.Debug().Str("status", summary).Msg("Copied status")
}

func (u *UI) openLogs() {
	path := logging.Path()
	if err := exec.Command(openCommand(), path).Start(); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open logs")
	}
}

func (u *UI) showAbout() {
	systray.SetTooltip(fmt.Sprintf("localmedia %s (%s)", u.version, u.commit))
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("localmedia")
}

func (u *UI) onExit() {
	u.log.Debug().Msg("Tray exited")
}

// updateStatus sets the tray title with camera emoji and status indicator
func (u *UI) updateStatus(status app.Status) {
	systray.SetTitle(fmt.Sprintf("📷 %s", emojiForStatus(status)))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status app.Status) string {
	switch status {
	case app.StatusLive:
		return "🟢" // Green - capturing, unmuted
	case app.StatusSpeaking:
		return "🔴" // Red - on air
	case app.StatusMuted:
		return "🟡" // Yellow - capturing, muted
	case app.StatusError:
		return "⚠️"
	default:
		return "⚪️" // White - idle
	}
}

func modeTitle(mode string) string {
	if mode == config.ModeToggle {
		return "Mode: Toggle"
	}
	return "Mode: Push-to-Talk"
}

func nextMode(mode string) string {
	if mode == config.ModePushToTalk {
		return config.ModeToggle
	}
	return config.ModePushToTalk
}

func deviceTitle(name, kind string) string {
	return fmt.Sprintf("%s (%s)", name, kind)
}

func openCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}
