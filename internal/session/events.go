package session

import (
	"sync"

	"github.com/petems/localmedia/internal/media"
)

// EventType names a session lifecycle event.
type EventType string

const (
	LocalStreamRequested     EventType = "localStreamRequested"
	LocalStream              EventType = "localStream"
	LocalStreamRequestFailed EventType = "localStreamRequestFailed"
	LocalStreamStopped       EventType = "localStreamStopped"

	LocalScreenRequested     EventType = "localScreenRequested"
	LocalScreen              EventType = "localScreen"
	LocalScreenRequestFailed EventType = "localScreenRequestFailed"
	LocalScreenStopped       EventType = "localScreenStopped"

	AudioOn  EventType = "audioOn"
	AudioOff EventType = "audioOff"
	VideoOn  EventType = "videoOn"
	VideoOff EventType = "videoOff"

	Speaking        EventType = "speaking"
	StoppedSpeaking EventType = "stoppedSpeaking"
	VolumeChange    EventType = "volumeChange"
)

// Event carries the payload of one published event. Only the fields that
// make sense for Type are set.
type Event struct {
	Type        EventType
	Stream      media.Stream
	Constraints media.Constraints
	Err         error
	Volume      float64
	Threshold   float64
}

// Handler receives events synchronously on the publishing goroutine.
type Handler func(Event)

// Subscription identifies a registered handler.
type Subscription struct {
	id uint64
}

type subscriber struct {
	id      uint64
	event   EventType // "" matches every event
	handler Handler
}

// emitter delivers events to subscribers in registration order. Handlers
// may subscribe, unsubscribe or publish from inside a handler.
type emitter struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber
}

func (e *emitter) subscribe(event EventType, handler Handler) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.subs = append(e.subs, subscriber{id: e.nextID, event: event, handler: handler})
	return Subscription{id: e.nextID}
}

func (e *emitter) unsubscribe(s Subscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, sub := range e.subs {
		if sub.id == s.id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (e *emitter) publish(ev Event) {
	e.mu.Lock()
	var handlers []Handler
	for _, sub := range e.subs {
		if sub.event == "" || sub.event == ev.Type {
			handlers = append(handlers, sub.handler)
		}
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
