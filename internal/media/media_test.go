package media

import "testing"

func TestLocalTrackStopIsTerminal(t *testing.T) {
	var released, ended int
	track := NewLocalTrack(KindVideo, "camera", func() error {
		released++
		return nil
	})
	track.OnEnded(func() { ended++ })

	if track.State() != TrackStateLive {
		t.Fatalf("expected live track, got %s", track.State())
	}

	track.Stop()
	track.Stop()

	if track.State() != TrackStateEnded {
		t.Fatalf("expected ended track, got %s", track.State())
	}
	if released != 1 {
		t.Errorf("expected release once, got %d", released)
	}
	if ended != 1 {
		t.Errorf("expected one ended callback, got %d", ended)
	}
}

func TestLocalTrackEndSkipsRelease(t *testing.T) {
	released := false
	track := NewLocalTrack(KindAudio, "mic", func() error {
		released = true
		return nil
	})

	track.End()

	if released {
		t.Error("device-side end should not call release")
	}
	if track.State() != TrackStateEnded {
		t.Errorf("expected ended track, got %s", track.State())
	}
}

func TestFullyEnded(t *testing.T) {
	audio := NewLocalTrack(KindAudio, "mic", nil)
	video := NewLocalTrack(KindVideo, "camera", nil)
	stream := NewLocalStream(audio, video)

	if FullyEnded(stream) {
		t.Fatal("fresh stream should not be fully ended")
	}

	audio.End()
	if FullyEnded(stream) {
		t.Fatal("stream with a live video track should not be fully ended")
	}

	video.End()
	if !FullyEnded(stream) {
		t.Fatal("stream should be fully ended once every track ended")
	}
}

func TestStreamTrackFilters(t *testing.T) {
	stream := NewLocalStream(
		NewLocalTrack(KindAudio, "mic", nil),
		NewLocalTrack(KindVideo, "camera", nil),
		NewLocalTrack(KindAudio, "loopback", nil),
	)

	if got := len(stream.AudioTracks()); got != 2 {
		t.Errorf("expected 2 audio tracks, got %d", got)
	}
	if got := len(stream.VideoTracks()); got != 1 {
		t.Errorf("expected 1 video track, got %d", got)
	}
	if !HasAudio(stream) {
		t.Error("expected stream to carry audio")
	}
	if HasAudio(NewLocalStream(NewLocalTrack(KindVideo, "screen", nil))) {
		t.Error("video-only stream should not report audio")
	}
}

func TestWriteSamplesDropsWhenDisabled(t *testing.T) {
	track := NewAudioTrack("mic", 16000, nil)

	if !track.WriteSamples([]float32{0.1}) {
		t.Fatal("expected enabled track to accept samples")
	}

	track.SetEnabled(false)
	if track.WriteSamples([]float32{0.2}) {
		t.Error("disabled track should drop samples")
	}

	track.SetEnabled(true)
	track.Stop()
	if track.WriteSamples([]float32{0.3}) {
		t.Error("ended track should drop samples")
	}

	got := <-track.Samples()
	if got[0] != 0.1 {
		t.Errorf("expected first buffer, got %v", got)
	}
}

func TestConstraintsWithoutVideo(t *testing.T) {
	c := Constraints{Audio: true, Video: true, DeviceID: "usb"}
	got := c.WithoutVideo()

	if got.Video || !got.Audio || got.DeviceID != "usb" {
		t.Errorf("unexpected constraints %+v", got)
	}
	if !c.Video {
		t.Error("original constraints must not change")
	}
}
