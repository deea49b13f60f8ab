//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/firesport-timer/internal/logic"
)

// RealSource watches GPIO lines on actual hardware using Linux GPIO
// character device edge events.
type RealSource struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines []*gpiocdev.Line
}

// NewRealSource opens the named GPIO chip (usually "gpiochip0").
func NewRealSource(chipName string) (*RealSource, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealSource{chip: chip}, nil
}

// Watch requests the line as a pulled-up input and calls fn on each falling
// edge that passes the input's debounce interval.
// Buttons and sensors pull the line to ground when actuated.
func (r *RealSource) Watch(in Input, fn func()) error {
	db := logic.NewDebouncer(in.Debounce)
	handler := func(evt gpiocdev.LineEvent) {
		if evt.Type != gpiocdev.LineEventFallingEdge {
			return
		}
		// Kernel timestamps are monotonic, so the debounce is immune to
		// wall clock changes.
		if db.Allow(evt.Timestamp) {
			fn()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	line, err := r.chip.RequestLine(in.Pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(handler),
	)
	if err != nil {
		return fmt.Errorf("request %s pin %d: %w", in.Name, in.Pin, err)
	}
	r.lines = append(r.lines, line)
	return nil
}

// Close releases every watched line and the chip.
func (r *RealSource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, l := range r.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	r.lines = nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	return errors.Join(errs...)
}
