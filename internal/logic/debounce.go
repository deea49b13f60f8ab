package logic

import (
	"sync"
	"time"
)

// Debouncer collapses a rapidly repeating raw signal into one logical
// trigger per actuation. An edge is accepted only if at least the interval
// has passed since the previously accepted edge.
//
// Timestamps are monotonic offsets (e.g. kernel line event timestamps).
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Duration
	seen     bool
}

// NewDebouncer creates a Debouncer. An interval <= 0 accepts every edge.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Allow reports whether an edge at ts should be delivered.
func (d *Debouncer) Allow(ts time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen && d.interval > 0 && ts-d.last < d.interval {
		return false
	}
	d.seen = true
	d.last = ts
	return true
}

// Interval returns the minimum gap between accepted edges.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}
