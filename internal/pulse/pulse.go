// Package pulse converts a stream of sensor pulse timestamps into an
// engineering-unit rate using a fixed-size sliding window.
package pulse

import (
	"sync"
	"time"
)

// Window capacities for the station's pulse sensors.
const (
	FlowWindow = 5
	RPMWindow  = 10
)

// Default calibration coefficients.
const (
	DefaultFlowK = 8.34
	DefaultFlowQ = 0.229
	DefaultRPMK  = 1.0
)

// Calibration maps a pulse frequency in Hz to an engineering-unit rate.
type Calibration interface {
	Apply(hz float64) float64
}

// FlowCalibration is the flow meter's linear law: rate = K * (f + Q).
type FlowCalibration struct {
	K float64
	Q float64
}

// DefaultFlow returns the flow meter's default calibration.
func DefaultFlow() FlowCalibration {
	return FlowCalibration{K: DefaultFlowK, Q: DefaultFlowQ}
}

// Apply implements Calibration.
func (c FlowCalibration) Apply(hz float64) float64 {
	return c.K * (hz + c.Q)
}

// RPMCalibration converts pulses per second to revolutions per minute.
// K is the number of pulses per revolution.
type RPMCalibration struct {
	K float64
}

// DefaultRPM returns the engine speed sensor's default calibration.
func DefaultRPM() RPMCalibration {
	return RPMCalibration{K: DefaultRPMK}
}

// Apply implements Calibration.
func (c RPMCalibration) Apply(hz float64) float64 {
	if c.K <= 0 {
		return 0
	}
	return hz / c.K * 60
}

// Estimator keeps the N most recent pulse timestamps of one sensor.
// It has its own lock so that pulse traffic never contends with the
// stopwatch.
type Estimator struct {
	mu  sync.Mutex
	now func() time.Time
	cal Calibration

	buf   []time.Time
	head  int // next write position
	count int
}

// New creates an Estimator with the given window capacity and calibration.
// A capacity below 2 is raised to 2, the smallest window with a span.
func New(capacity int, cal Calibration, now func() time.Time) *Estimator {
	if capacity < 2 {
		capacity = 2
	}
	if now == nil {
		now = time.Now
	}
	return &Estimator{
		now: now,
		cal: cal,
		buf: make([]time.Time, capacity),
	}
}

// NewFlow creates the flow meter estimator.
func NewFlow(cal FlowCalibration, now func() time.Time) *Estimator {
	return New(FlowWindow, cal, now)
}

// NewRPM creates the engine speed estimator.
func NewRPM(cal RPMCalibration, now func() time.Time) *Estimator {
	return New(RPMWindow, cal, now)
}

// RecordPulse appends the current time, evicting the oldest sample once the
// window is full.
func (e *Estimator) RecordPulse() {
	e.mu.Lock()
	e.buf[e.head] = e.now()
	e.head = (e.head + 1) % len(e.buf)
	if e.count < len(e.buf) {
		e.count++
	}
	e.mu.Unlock()
}

// Rate returns the calibrated rate truncated to an integer. It returns 0
// until the window has filled, and when the window spans no time.
func (e *Estimator) Rate() int {
	e.mu.Lock()
	n := len(e.buf)
	if e.count < n {
		e.mu.Unlock()
		return 0
	}
	// Full window: head points at the oldest sample.
	oldest := e.buf[e.head]
	newest := e.buf[(e.head+n-1)%n]
	e.mu.Unlock()

	span := newest.Sub(oldest)
	if span <= 0 {
		return 0
	}
	hz := float64(n) / span.Seconds()
	return int(e.cal.Apply(hz))
}

// Samples returns how many timestamps are currently held.
func (e *Estimator) Samples() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Capacity returns the window size N.
func (e *Estimator) Capacity() int {
	return len(e.buf)
}

// Reset discards all samples.
func (e *Estimator) Reset() {
	e.mu.Lock()
	e.head = 0
	e.count = 0
	e.mu.Unlock()
}
