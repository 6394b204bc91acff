package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/petems/localmedia/internal/session"
)

const (
	collectionCamera = "camera"
	collectionScreen = "screen"
)

// Metrics holds the session collectors.
type Metrics struct {
	Requests      *prometheus.CounterVec
	Acquired      *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	Stopped       *prometheus.CounterVec
	ActiveStreams *prometheus.GaugeVec

	// Speaking detection
	SpeakingTransitions *prometheus.CounterVec
	Volume              prometheus.Gauge
	Threshold           prometheus.Gauge

	// Toggle state
	AudioEnabled prometheus.Gauge
	VideoEnabled prometheus.Gauge
}

// New creates and registers all metrics on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "localmedia_requests_total",
			Help: "Total number of capture requests",
		}, []string{"collection"}),
		Acquired: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "localmedia_streams_acquired_total",
			Help: "Total number of streams acquired",
		}, []string{"collection"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "localmedia_request_failures_total",
			Help: "Total number of capture requests that failed",
		}, []string{"collection"}),
		Stopped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "localmedia_streams_stopped_total",
			Help: "Total number of streams stopped or ended",
		}, []string{"collection"}),
		ActiveStreams: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "localmedia_active_streams",
			Help: "Current number of registered streams",
		}, []string{"collection"}),

		SpeakingTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "localmedia_speaking_transitions_total",
			Help: "Total number of speaking state changes",
		}, []string{"state"}),
		Volume: factory.NewGauge(prometheus.GaugeOpts{
			Name: "localmedia_volume_dbfs",
			Help: "Most recent smoothed microphone level",
		}),
		Threshold: factory.NewGauge(prometheus.GaugeOpts{
			Name: "localmedia_speaking_threshold_dbfs",
			Help: "Level above which audio counts as speech",
		}),

		AudioEnabled: factory.NewGauge(prometheus.GaugeOpts{
			Name: "localmedia_audio_enabled",
			Help: "1 when outgoing audio is unmuted",
		}),
		VideoEnabled: factory.NewGauge(prometheus.GaugeOpts{
			Name: "localmedia_video_enabled",
			Help: "1 when camera video is not paused",
		}),
	}
}

// Attach records every event published by mgr. The returned subscription
// detaches the metrics.
func (m *Metrics) Attach(mgr *session.Manager) session.Subscription {
	m.ActiveStreams.WithLabelValues(collectionCamera).Set(float64(len(mgr.LocalStreams())))
	m.ActiveStreams.WithLabelValues(collectionScreen).Set(float64(len(mgr.LocalScreens())))
	m.AudioEnabled.Set(boolGauge(mgr.IsAudioEnabled()))
	m.VideoEnabled.Set(boolGauge(mgr.IsVideoEnabled()))

	return mgr.SubscribeAll(m.Observe)
}

// Observe updates the collectors for a single event.
func (m *Metrics) Observe(ev session.Event) {
	switch ev.Type {
	case session.LocalStreamRequested:
		m.Requests.WithLabelValues(collectionCamera).Inc()
	case session.LocalStream:
		m.Acquired.WithLabelValues(collectionCamera).Inc()
		m.ActiveStreams.WithLabelValues(collectionCamera).Inc()
	case session.LocalStreamRequestFailed:
		m.Failures.WithLabelValues(collectionCamera).Inc()
	case session.LocalStreamStopped:
		m.Stopped.WithLabelValues(collectionCamera).Inc()
		m.ActiveStreams.WithLabelValues(collectionCamera).Dec()

	case session.LocalScreenRequested:
		m.Requests.WithLabelValues(collectionScreen).Inc()
	case session.LocalScreen:
		m.Acquired.WithLabelValues(collectionScreen).Inc()
		m.ActiveStreams.WithLabelValues(collectionScreen).Inc()
	case session.LocalScreenRequestFailed:
		m.Failures.WithLabelValues(collectionScreen).Inc()
	case session.LocalScreenStopped:
		m.Stopped.WithLabelValues(collectionScreen).Inc()
		m.ActiveStreams.WithLabelValues(collectionScreen).Dec()

	case session.AudioOn:
		m.AudioEnabled.Set(1)
	case session.AudioOff:
		m.AudioEnabled.Set(0)
	case session.VideoOn:
		m.VideoEnabled.Set(1)
	case session.VideoOff:
		m.VideoEnabled.Set(0)

	case session.Speaking:
		m.SpeakingTransitions.WithLabelValues("speaking").Inc()
	case session.StoppedSpeaking:
		m.SpeakingTransitions.WithLabelValues("stopped").Inc()
	case session.VolumeChange:
		m.Volume.Set(ev.Volume)
		m.Threshold.Set(ev.Threshold)
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
