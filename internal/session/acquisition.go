package session

import (
	"context"
	"sync"

	"github.com/petems/localmedia/internal/media"
)

// Callback is the optional completion handler of an acquisition.
type Callback func(err error, stream media.Stream)

// Acquisition is the pending result of Start or StartScreenShare. It
// completes exactly once.
type Acquisition struct {
	done chan struct{}

	mu        sync.Mutex
	completed bool
	stream    media.Stream
	err       error
	callbacks []Callback
}

func newAcquisition(cb Callback) *Acquisition {
	a := &Acquisition{done: make(chan struct{})}
	if cb != nil {
		a.callbacks = append(a.callbacks, cb)
	}
	return a
}

// Done is closed once the acquisition has a result and its callbacks
// have returned.
func (a *Acquisition) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the acquisition completes or ctx is done.
func (a *Acquisition) Wait(ctx context.Context) (media.Stream, error) {
	select {
	case <-a.done:
		return a.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome. Both values are nil while pending.
func (a *Acquisition) Result() (media.Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream, a.err
}

// OnComplete registers cb to run when the acquisition completes, or runs it
// right away if it already has.
func (a *Acquisition) OnComplete(cb Callback) {
	a.mu.Lock()
	if !a.completed {
		a.callbacks = append(a.callbacks, cb)
		a.mu.Unlock()
		return
	}
	stream, err := a.stream, a.err
	a.mu.Unlock()
	cb(err, stream)
}

func (a *Acquisition) complete(stream media.Stream, err error) {
	a.mu.Lock()
	if a.completed {
		a.mu.Unlock()
		return
	}
	a.completed = true
	a.stream, a.err = stream, err
	callbacks := a.callbacks
	a.callbacks = nil
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb(err, stream)
	}
	close(a.done)
}
