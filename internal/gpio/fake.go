package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/firesport-timer/internal/logic"
)

// FakeSource is a test double that delivers scripted edges.
type FakeSource struct {
	mu      sync.Mutex
	watches map[int]*fakeWatch

	// Closed tracks if Close was called
	Closed bool

	// WatchError, if set, will be returned by Watch()
	WatchError error
}

type fakeWatch struct {
	in Input
	db *logic.Debouncer
	fn func()
}

// NewFakeSource creates an empty FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{watches: make(map[int]*fakeWatch)}
}

// Watch registers fn for the input's pin.
func (f *FakeSource) Watch(in Input, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WatchError != nil {
		return f.WatchError
	}
	if _, ok := f.watches[in.Pin]; ok {
		return fmt.Errorf("request %s pin %d: already watched", in.Name, in.Pin)
	}
	f.watches[in.Pin] = &fakeWatch{in: in, db: logic.NewDebouncer(in.Debounce), fn: fn}
	return nil
}

// Fire simulates a falling edge on pin at monotonic time ts. It returns true
// if the edge passed the debounce filter and the callback was invoked.
func (f *FakeSource) Fire(pin int, ts time.Duration) bool {
	f.mu.Lock()
	w, ok := f.watches[pin]
	closed := f.Closed
	f.mu.Unlock()

	if !ok || closed || !w.db.Allow(ts) {
		return false
	}
	w.fn()
	return true
}

// Watched reports whether pin has a registered callback.
func (f *FakeSource) Watched(pin int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.watches[pin]
	return ok
}

// Close marks the source as closed. Later edges are not delivered.
func (f *FakeSource) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
