// Package gpio delivers debounced trigger notifications from GPIO inputs.
// The real implementation uses Linux GPIO character device edge events.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by the real source on non-Linux platforms.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Input describes one watched line.
type Input struct {
	Name     string
	Pin      int           // BCM offset on gpiochip0
	Debounce time.Duration // minimum gap between notifications; 0 disables
}

// Source calls fn once per debounced actuation of a watched input.
// fn runs on the source's own goroutine and must not block.
type Source interface {
	Watch(in Input, fn func()) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	PinStart      = 26
	PinFirstSplit = 19
	PinStopA      = 13
	PinStopB      = 6
	PinReset      = 21
	PinManual     = 5
	PinFlow       = 20
	PinRPM        = 16
)

// Debounce defaults per input kind.
const (
	ButtonDebounce = 100 * time.Millisecond
	FlowDebounce   = time.Millisecond
	RPMDebounce    = 0
)
