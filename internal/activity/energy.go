package activity

import (
	"math"
	"sync"
	"time"

	"github.com/petems/localmedia/internal/media"
)

// silenceFloor is reported when a window carries no signal at all.
const silenceFloor = -100.0

type energyDetector struct {
	opts Options

	mu         sync.Mutex
	speaking   bool
	history    []bool
	level      float64
	peak       float64
	onSpeaking func()
	onStopped  func()
	onVolume   func(volume, threshold float64)

	stopOnce sync.Once
	stop     chan struct{}
}

// New starts an energy based detector on the first audio track of stream
// that exposes PCM samples. Streams without such a track get a detector
// that never fires.
func New(stream media.Stream, opts *Options) Detector {
	d := newEnergyDetector(opts.withDefaults())
	if src := sampleSource(stream); src != nil {
		go d.run(src.Samples())
	}
	return d
}

// HasSampleSource reports whether New would find PCM samples in stream.
func HasSampleSource(stream media.Stream) bool {
	return sampleSource(stream) != nil
}

func sampleSource(stream media.Stream) media.SampleSource {
	for _, t := range stream.AudioTracks() {
		if src, ok := t.(media.SampleSource); ok && src.Samples() != nil {
			return src
		}
	}
	return nil
}

func newEnergyDetector(opts Options) *energyDetector {
	return &energyDetector{
		opts:    opts,
		history: make([]bool, opts.History),
		level:   silenceFloor,
		peak:    silenceFloor,
		stop:    make(chan struct{}),
	}
}

func (d *energyDetector) OnSpeaking(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onSpeaking = callback
}

func (d *energyDetector) OnStoppedSpeaking(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onStopped = callback
}

func (d *energyDetector) OnVolumeChange(callback func(volume, threshold float64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onVolume = callback
}

func (d *energyDetector) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

func (d *energyDetector) run(samples <-chan []float32) {
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case buf := <-samples:
			d.observe(buf)
		case <-ticker.C:
			d.tick()
		}
	}
}

// observe folds a buffer into the loudest level seen this interval.
func (d *energyDetector) observe(buf []float32) {
	v := volumeDB(buf)
	d.mu.Lock()
	if v > d.peak {
		d.peak = v
	}
	d.mu.Unlock()
}

func (d *energyDetector) tick() {
	d.mu.Lock()
	current := d.peak
	d.peak = silenceFloor
	d.level = d.opts.Smoothing*d.level + (1-d.opts.Smoothing)*current
	level := d.level
	d.mu.Unlock()

	d.process(level)
}

// process applies one volume reading. Speaking starts quickly (two of the
// last three readings above threshold) and stops only once the whole
// history is quiet.
func (d *energyDetector) process(volume float64) {
	threshold := d.opts.Threshold
	above := volume > threshold

	d.mu.Lock()
	onVolume := d.onVolume
	var fire func()
	if above && !d.speaking {
		n := 0
		for _, h := range d.history[len(d.history)-3:] {
			if h {
				n++
			}
		}
		if n >= 2 {
			d.speaking = true
			fire = d.onSpeaking
		}
	} else if !above && d.speaking {
		quiet := true
		for _, h := range d.history {
			if h {
				quiet = false
				break
			}
		}
		if quiet {
			d.speaking = false
			fire = d.onStopped
		}
	}
	copy(d.history, d.history[1:])
	d.history[len(d.history)-1] = above
	d.mu.Unlock()

	if onVolume != nil {
		onVolume(volume, threshold)
	}
	if fire != nil {
		fire()
	}
}

// volumeDB returns the RMS level of buf in dBFS.
func volumeDB(buf []float32) float64 {
	if len(buf) == 0 {
		return silenceFloor
	}
	var sum float64
	for _, s := range buf {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(buf)))
	if rms == 0 {
		return silenceFloor
	}
	db := 20 * math.Log10(rms)
	if db < silenceFloor {
		return silenceFloor
	}
	return db
}
