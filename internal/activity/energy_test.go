package activity

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/petems/localmedia/internal/media"
)

type recorder struct {
	mu       sync.Mutex
	speaking int
	stopped  int
	volumes  []float64
}

func (r *recorder) attach(d Detector) {
	d.OnSpeaking(func() {
		r.mu.Lock()
		r.speaking++
		r.mu.Unlock()
	})
	d.OnStoppedSpeaking(func() {
		r.mu.Lock()
		r.stopped++
		r.mu.Unlock()
	})
	d.OnVolumeChange(func(volume, threshold float64) {
		r.mu.Lock()
		r.volumes = append(r.volumes, volume)
		r.mu.Unlock()
	})
}

func (r *recorder) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speaking, r.stopped, len(r.volumes)
}

func TestProcessSpeakingNeedsTwoOfThree(t *testing.T) {
	d := newEnergyDetector(DefaultOptions())
	rec := &recorder{}
	rec.attach(d)

	d.process(-20)
	d.process(-20)
	if s, _, _ := rec.counts(); s != 0 {
		t.Fatalf("expected no speaking before history fills, got %d", s)
	}

	d.process(-20)
	if s, _, _ := rec.counts(); s != 1 {
		t.Fatalf("expected speaking after three loud readings, got %d", s)
	}

	d.process(-20)
	if s, _, _ := rec.counts(); s != 1 {
		t.Errorf("speaking should fire once per transition, got %d", s)
	}
}

func TestProcessStoppedSpeakingNeedsQuietHistory(t *testing.T) {
	opts := DefaultOptions()
	d := newEnergyDetector(opts)
	rec := &recorder{}
	rec.attach(d)

	for i := 0; i < 3; i++ {
		d.process(-20)
	}

	for i := 0; i < opts.History; i++ {
		d.process(-80)
		if _, st, _ := rec.counts(); st != 0 {
			t.Fatalf("stopped speaking fired after %d quiet readings", i+1)
		}
	}

	d.process(-80)
	if _, st, _ := rec.counts(); st != 1 {
		t.Fatalf("expected stopped speaking once history is quiet, got %d", st)
	}
}

func TestProcessForwardsEveryVolume(t *testing.T) {
	d := newEnergyDetector(DefaultOptions())
	rec := &recorder{}
	rec.attach(d)

	for i := 0; i < 7; i++ {
		d.process(-60)
	}

	if _, _, v := rec.counts(); v != 7 {
		t.Errorf("expected 7 volume changes, got %d", v)
	}
}

func TestVolumeDB(t *testing.T) {
	if got := volumeDB(nil); got != silenceFloor {
		t.Errorf("empty buffer: expected %f, got %f", silenceFloor, got)
	}
	if got := volumeDB([]float32{0, 0, 0}); got != silenceFloor {
		t.Errorf("silent buffer: expected %f, got %f", silenceFloor, got)
	}

	got := volumeDB([]float32{1, -1, 1, -1})
	if math.Abs(got) > 1e-9 {
		t.Errorf("full scale buffer: expected 0 dBFS, got %f", got)
	}

	got = volumeDB([]float32{0.1, -0.1})
	if math.Abs(got+20) > 1e-6 {
		t.Errorf("0.1 amplitude: expected -20 dBFS, got %f", got)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var nilOpts *Options
	if got := nilOpts.withDefaults(); got != DefaultOptions() {
		t.Errorf("nil options: got %+v", got)
	}

	got := (&Options{Threshold: -40, History: 1, Smoothing: 2}).withDefaults()
	if got.Threshold != -40 {
		t.Errorf("expected threshold to be kept, got %f", got.Threshold)
	}
	if got.History != 10 || got.Smoothing != 0.1 || got.Interval != 50*time.Millisecond {
		t.Errorf("expected invalid fields to fall back to defaults, got %+v", got)
	}
}

func TestDetectorOnLiveTrack(t *testing.T) {
	track := media.NewAudioTrack("mic", 16000, nil)
	stream := media.NewLocalStream(track)

	d := New(stream, &Options{Interval: 5 * time.Millisecond, Smoothing: 0.01})
	defer d.Stop()
	rec := &recorder{}
	rec.attach(d)

	loud := make([]float32, 160)
	for i := range loud {
		loud[i] = 0.5
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		track.WriteSamples(loud)
		if s, _, _ := rec.counts(); s > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected speaking from a loud live track")
}

func TestDetectorWithoutSamplesStaysSilent(t *testing.T) {
	stream := media.NewLocalStream(media.NewLocalTrack(media.KindAudio, "mic", nil))

	d := New(stream, &Options{Interval: time.Millisecond})
	rec := &recorder{}
	rec.attach(d)

	time.Sleep(20 * time.Millisecond)
	d.Stop()
	d.Stop()

	if s, st, v := rec.counts(); s+st+v != 0 {
		t.Errorf("expected no callbacks, got speaking=%d stopped=%d volumes=%d", s, st, v)
	}
}

func TestHasSampleSource(t *testing.T) {
	tests := []struct {
		name   string
		stream media.Stream
		want   bool
	}{
		{"pcm audio", media.NewLocalStream(media.NewAudioTrack("mic", 16000, nil)), true},
		{"audio without pcm", media.NewLocalStream(media.NewLocalTrack(media.KindAudio, "mic", nil)), false},
		{"video only", media.NewLocalStream(media.NewLocalTrack(media.KindVideo, "cam", nil)), false},
		{"empty", media.NewLocalStream(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasSampleSource(tt.stream); got != tt.want {
				t.Errorf("HasSampleSource() = %t, want %t", got, tt.want)
			}
		})
	}
}
