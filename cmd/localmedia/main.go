package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/petems/localmedia/internal/app"
	"github.com/petems/localmedia/internal/capture"
	"github.com/petems/localmedia/internal/config"
	"github.com/petems/localmedia/internal/hotkey"
	"github.com/petems/localmedia/internal/logging"
	"github.com/petems/localmedia/internal/metrics"
	"github.com/petems/localmedia/internal/permissions"
	"github.com/petems/localmedia/internal/session"
	"github.com/petems/localmedia/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	// macOS asks for camera and microphone access up front
	if err := permissions.Require(permissions.ForConstraints(cfg.Media)...); err != nil {
		log.Warn().Err(err).Msg("Capture permissions not granted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize capture backend
	userMedia, display, devices, closeBackend, err := newBackend(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("Failed to initialize capture")
	}
	defer closeBackend()

	if caps, ok := userMedia.(capture.Capabilities); ok {
		log.Info().
			Bool("user_media", caps.HasUserMedia()).
			Bool("display_media", caps.HasDisplayMedia()).
			Bool("screen_source_constraint", caps.SupportsScreenSourceConstraint()).
			Msg("Capture capabilities")
	}

	sess, err := session.New(session.Config{
		UserMedia:            userMedia,
		DisplayMedia:         display,
		Logger:               log.With().Str("component", "session").Logger(),
		DetectSpeakingEvents: cfg.Session.DetectSpeakingEvents,
		AudioFallback:        cfg.Session.AudioFallback,
		Media:                &cfg.Media,
		HarkOptions:          cfg.ActivityOptions(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session")
	}

	if cfg.Metrics.Enabled {
		m := metrics.New(prometheus.DefaultRegisterer)
		m.Attach(sess)
		go serveMetrics(ctx, cfg.Metrics.Address, log)
	}

	// Initialize hotkey manager
	hkManager, err := hotkey.New()
	if err != nil {
		log.Warn().Err(err).Msg("Global hotkeys unavailable")
		hkManager = nil
	} else {
		defer hkManager.Close()
	}

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, cfg, log, Version, Commit) // App reference set below

	// Create app with tray as status updater
	application := app.New(app.Config{
		Session:       sess,
		Devices:       devices,
		Hotkeys:       hkManager,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: trayUI,
	})

	// Set app reference in tray
	trayUI.SetApp(application)

	if cfg.Session.StartMuted || cfg.Mode == config.ModePushToTalk {
		sess.Mute()
	}

	// Register global hotkey
	if hkManager != nil {
		if err := application.RegisterHotkey(); err != nil {
			log.Error().Err(err).Msg("Failed to register hotkey")
		}
	}

	log.Info().Str("version", Version).Str("backend", cfg.Backend).Msg("localmedia starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		if err := application.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		cancel()
		closeBackend()
		os.Exit(0)
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Tray error")
	}
	if err := application.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// newBackend builds the capture providers for cfg.Backend. display is nil
// when the backend cannot share screens.
func newBackend(cfg *config.Config, log zerolog.Logger) (capture.UserMedia, capture.DisplayMedia, capture.Lister, func(), error) {
	switch cfg.Backend {
	case config.BackendMediaDevices:
		d := capture.NewDevices(log.With().Str("component", "mediadevices").Logger())
		return d, d, d, func() {}, nil
	default:
		mic, err := capture.NewMicrophone(cfg.Audio.SampleRate, log.With().Str("component", "portaudio").Logger())
		if err != nil {
			return nil, nil, nil, nil, err
		}
		var once sync.Once
		closeFn := func() {
			once.Do(func() {
				if err := mic.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to terminate PortAudio")
				}
			})
		}
		return mic, nil, mic, closeFn, nil
	}
}

func serveMetrics(ctx context.Context, addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
