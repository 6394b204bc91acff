package session

import "testing"

func TestEmitterOrderAndFilter(t *testing.T) {
	var e emitter
	var got []string

	e.subscribe(AudioOn, func(Event) { got = append(got, "first") })
	e.subscribe("", func(ev Event) { got = append(got, "all:"+string(ev.Type)) })
	e.subscribe(AudioOn, func(Event) { got = append(got, "third") })

	e.publish(Event{Type: AudioOn})
	e.publish(Event{Type: AudioOff})

	want := []string{"first", "all:audioOn", "third", "all:audioOff"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestEmitterUnsubscribe(t *testing.T) {
	var e emitter
	calls := 0
	sub := e.subscribe(VideoOff, func(Event) { calls++ })

	e.publish(Event{Type: VideoOff})
	if !e.unsubscribe(sub) {
		t.Fatal("expected subscription to be removed")
	}
	if e.unsubscribe(sub) {
		t.Error("second unsubscribe should report false")
	}
	e.publish(Event{Type: VideoOff})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestEmitterReentrantPublish(t *testing.T) {
	var e emitter
	var order []EventType

	e.subscribe(LocalStreamStopped, func(Event) {
		order = append(order, LocalStreamStopped)
		e.subscribe(LocalStreamRequested, func(Event) { order = append(order, LocalStreamRequested) })
		e.publish(Event{Type: LocalStreamRequested})
	})

	e.publish(Event{Type: LocalStreamStopped})

	if len(order) != 2 || order[1] != LocalStreamRequested {
		t.Errorf("expected nested publish to reach the new subscriber, got %v", order)
	}
}
