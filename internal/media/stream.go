package media

import "github.com/google/uuid"

// Stream is a set of tracks produced by a single acquisition.
type Stream interface {
	ID() string
	Tracks() []Track
	AudioTracks() []Track
	VideoTracks() []Track
}

// LocalStream is a Stream with a fixed track list.
type LocalStream struct {
	id     string
	tracks []Track
}

func NewLocalStream(tracks ...Track) *LocalStream {
	return &LocalStream{
		id:     uuid.NewString(),
		tracks: tracks,
	}
}

func (s *LocalStream) ID() string { return s.id }

func (s *LocalStream) Tracks() []Track {
	result := make([]Track, len(s.tracks))
	copy(result, s.tracks)
	return result
}

func (s *LocalStream) AudioTracks() []Track { return TracksOfKind(s, KindAudio) }
func (s *LocalStream) VideoTracks() []Track { return TracksOfKind(s, KindVideo) }

// TracksOfKind filters the tracks of s by kind.
func TracksOfKind(s Stream, kind Kind) []Track {
	var result []Track
	for _, t := range s.Tracks() {
		if t.Kind() == kind {
			result = append(result, t)
		}
	}
	return result
}

// FullyEnded reports whether every track of s has ended.
func FullyEnded(s Stream) bool {
	for _, t := range s.Tracks() {
		if t.State() != TrackStateEnded {
			return false
		}
	}
	return true
}

// HasAudio reports whether s carries at least one audio track.
func HasAudio(s Stream) bool {
	return len(s.AudioTracks()) > 0
}

// StopAll stops every track of s.
func StopAll(s Stream) {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
