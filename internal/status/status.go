// Package status provides the thread-safe display board of the stopwatch
// station. It is fed by the consumer loop and read by HTTP handlers.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/firesport-timer/internal/logic"
)

// MaxRows is the number of automatic rows on the board.
const MaxRows = 4

// Config contains station configuration for display.
type Config struct {
	Broker     string
	HTTPAddr   string
	TickMs     int64
	DebounceMs int64
	FlowK      float64
	FlowQ      float64
	RPMK       float64
}

// Row is one measured line on the board.
type Row struct {
	Checkpoint logic.Checkpoint
	Elapsed    time.Duration
	RPM        int
	Flow       int
	PressureA  float64
	PressureB  float64
	Ready      bool // pressure readings are real
	At         time.Time
}

// Time returns the elapsed time formatted as mm:ss.mmm.
func (r Row) Time() string {
	return logic.FormatElapsed(r.Elapsed)
}

// Pressure returns "A/B" in bar, or "--/--" when the transducers are not ready.
func (r Row) Pressure() string {
	if !r.Ready {
		return "--/--"
	}
	return fmt.Sprintf("%.1f/%.1f", r.PressureA, r.PressureB)
}

func rowFromEvent(ev logic.Event) Row {
	s := ev.Snapshot
	return Row{
		Checkpoint: s.Checkpoint,
		Elapsed:    s.Elapsed,
		RPM:        s.RPM,
		Flow:       s.Flow,
		PressureA:  s.PressureA,
		PressureB:  s.PressureB,
		Ready:      s.PressureReady(),
		At:         ev.At,
	}
}

// Counts tallies the events applied since startup.
type Counts struct {
	Started int
	Splits  int
	Stopped int
	Manual  int
	Resets  int
}

// Snapshot is a point-in-time view of the board.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	State   logic.State
	Elapsed time.Duration
	RPM     int
	Flow    int
	RunID   string

	Rows   []Row
	Manual *Row

	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the station started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Live returns the live stopwatch label.
func (s Snapshot) Live() string {
	return logic.FormatElapsed(s.Elapsed)
}

// Board holds the displayed state behind an RWMutex.
type Board struct {
	mu     sync.RWMutex
	snap   Snapshot
	rows   [MaxRows]Row
	nrows  int
	manual *Row
}

// NewBoard creates a Board with the given start time and config.
func NewBoard(startTime time.Time, cfg Config) *Board {
	return &Board{
		snap: Snapshot{
			State:     logic.StateIdle,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Apply updates the rows for one consumed event.
// Rows beyond MaxRows are dropped.
func (b *Board) Apply(ev logic.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev.Type {
	case logic.EventReset:
		b.rows = [MaxRows]Row{}
		b.nrows = 0
		b.manual = nil
		b.snap.RunID = ""
		b.snap.Counts.Resets++
		return
	case logic.EventManualMeasured:
		r := rowFromEvent(ev)
		b.manual = &r
		b.snap.Counts.Manual++
	case logic.EventStarted, logic.EventSplitMeasured, logic.EventStopped:
		if b.nrows < MaxRows {
			b.rows[b.nrows] = rowFromEvent(ev)
			b.nrows++
		}
		switch ev.Type {
		case logic.EventStarted:
			b.snap.Counts.Started++
		case logic.EventStopped:
			b.snap.Counts.Stopped++
		default:
			b.snap.Counts.Splits++
		}
	default:
		return
	}
	if ev.Snapshot.RunID != "" {
		b.snap.RunID = ev.Snapshot.RunID
	}
}

// SetLive updates the live stopwatch label and rates. Called every tick.
func (b *Board) SetLive(elapsed time.Duration, state logic.State, rpm, flow int) {
	b.mu.Lock()
	b.snap.Elapsed = elapsed
	b.snap.State = state
	b.snap.RPM = rpm
	b.snap.Flow = flow
	b.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (b *Board) SetMQTTConnected(connected bool) {
	b.mu.Lock()
	b.snap.MQTTConnected = connected
	b.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the board.
// The Now field is set to the current time at the moment of the call.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	s := b.snap
	s.Rows = make([]Row, b.nrows)
	copy(s.Rows, b.rows[:b.nrows])
	if b.manual != nil {
		m := *b.manual
		s.Manual = &m
	}
	b.mu.RUnlock()
	s.Now = time.Now()
	return s
}
