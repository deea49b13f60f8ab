// Package pressure provides the pressure transducer reading contract.
// The station only needs two calibrated values in bar, or a not-ready signal
// when the ADC could not be initialized.
package pressure

import (
	"errors"
	"sync"
)

// ErrNotReady is returned when the pressure hardware is unavailable.
var ErrNotReady = errors.New("pressure: sensor not ready")

// Reader reads both pressure transducers.
type Reader interface {
	// Read returns the two pressures in bar, or ErrNotReady.
	Read() (a, b float64, err error)
}

// Absent is a Reader for stations without pressure hardware.
type Absent struct{}

// Read always returns ErrNotReady.
func (Absent) Read() (float64, float64, error) {
	return 0, 0, ErrNotReady
}

// Static returns fixed values. Used for bench setups without transducers.
type Static struct {
	A, B float64
}

// Read returns the configured values.
func (s Static) Read() (float64, float64, error) {
	return s.A, s.B, nil
}

// Fake is a test double whose readings can be changed between calls.
type Fake struct {
	mu   sync.Mutex
	a, b float64
	err  error
}

// NewFake creates a Fake returning the given readings.
func NewFake(a, b float64) *Fake {
	return &Fake{a: a, b: b}
}

// Set changes the readings and clears any error.
func (f *Fake) Set(a, b float64) {
	f.mu.Lock()
	f.a, f.b, f.err = a, b, nil
	f.mu.Unlock()
}

// Fail makes subsequent reads return err.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Read returns the scripted readings.
func (f *Fake) Read() (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.a, f.b, nil
}
