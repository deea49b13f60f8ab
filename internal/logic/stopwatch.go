package logic

import (
	"fmt"
	"sync"
	"time"
)

// Stopwatch records split timestamps for a single run and enforces the
// ordering of start, first split, stop and reset triggers.
//
// Mutators hold the write lock for their whole body, so two stop triggers
// arriving within microseconds of each other are serialized.
type Stopwatch struct {
	mu  sync.RWMutex
	now func() time.Time

	splits         []Split
	state          State
	pendingStop    bool
	firstSplitDone bool
}

// StopResult describes the outcome of a Stop call.
type StopResult struct {
	Split    Split
	Accepted bool // a split was recorded
	Stopped  bool // the run is now frozen
}

// NewStopwatch creates an idle stopwatch reading time from now.
func NewStopwatch(now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	return &Stopwatch{now: now, state: StateIdle}
}

// Start records the start split. It is ignored while already running.
// Starting from Stopped without a reset resumes the existing run: the
// original start split stays at index 0.
func (s *Stopwatch) Start() (Split, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return Split{}, false
	}
	sp := s.record(CheckpointStart)
	s.state = StateRunning
	return sp, true
}

// MeasureFirstSplit records the first intermediate split. It is ignored
// unless the stopwatch is running.
func (s *Stopwatch) MeasureFirstSplit() (Split, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return Split{}, false
	}
	sp := s.record(CheckpointFirstSplit)
	s.firstSplitDone = true
	return sp, true
}

// Stop records a split for the given finish sensor. The first accepted stop
// only arms the pending flag; the second one stops the clock. Only the flag
// is checked, so the same sensor firing twice also completes the stop.
func (s *Stopwatch) Stop(sensor StopSensor) StopResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.firstSplitDone || s.state != StateRunning {
		return StopResult{}
	}
	res := StopResult{Split: s.record(sensor.Checkpoint()), Accepted: true}
	if s.pendingStop {
		s.state = StateStopped
		res.Stopped = true
	} else {
		s.pendingStop = true
	}
	return res
}

// Reset clears all splits and returns to Idle. Always effective.
func (s *Stopwatch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.splits = nil
	s.state = StateIdle
	s.pendingStop = false
	s.firstSplitDone = false
}

// Elapsed returns the live stopwatch time.
// Running: time since the start split.
// Not running with at least two splits: last split minus start split.
// Otherwise zero.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.state == StateRunning:
		return s.now().Sub(s.splits[0].At)
	case len(s.splits) > 1:
		return s.splits[len(s.splits)-1].Elapsed
	default:
		return 0
	}
}

// State returns the current life cycle state.
func (s *Stopwatch) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// PendingStop reports whether exactly one stop trigger has fired.
func (s *Stopwatch) PendingStop() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingStop
}

// FirstSplitDone reports whether the first split was recorded in this run.
func (s *Stopwatch) FirstSplitDone() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstSplitDone
}

// Splits returns a copy of the recorded splits in the order they occurred.
func (s *Stopwatch) Splits() []Split {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Split, len(s.splits))
	copy(out, s.splits)
	return out
}

// record appends a split. Caller must hold the write lock.
func (s *Stopwatch) record(cp Checkpoint) Split {
	at := s.now()
	sp := Split{Checkpoint: cp, At: at}
	if n := len(s.splits); n > 0 {
		if at.Before(s.splits[n-1].At) {
			panic(fmt.Sprintf("logic: split at checkpoint %d went backwards (%v before %v)", cp, at, s.splits[n-1].At))
		}
		sp.Elapsed = at.Sub(s.splits[0].At)
	}
	s.splits = append(s.splits, sp)
	return sp
}
