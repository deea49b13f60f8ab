// Package station owns the timing core of the stopwatch station: the
// stopwatch, both pulse estimators, the pressure reader and the event bridge.
// Trigger sources feed it through Dispatch and Pulse; a periodic consumer
// drains it through TryConsume.
package station

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/firesport-timer/internal/bridge"
	"github.com/sweeney/firesport-timer/internal/logic"
	"github.com/sweeney/firesport-timer/internal/metrics"
	"github.com/sweeney/firesport-timer/internal/pressure"
	"github.com/sweeney/firesport-timer/internal/pulse"
)

// Options configures a Station. Zero values select defaults.
type Options struct {
	// Flow and RPM fall back to the pulse package defaults when K is 0.
	Flow     pulse.FlowCalibration
	RPM      pulse.RPMCalibration
	Pressure pressure.Reader
	Logger   *zap.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
	// NewRunID defaults to a random UUID.
	NewRunID func() string
}

// Station is the explicit context object shared by every trigger source.
type Station struct {
	// mu serializes trigger handling so that events reach the bridge in the
	// order their mutations happened. Pulses and Elapsed never take it.
	mu sync.Mutex

	clock    func() time.Time
	newRunID func() string
	log      *zap.Logger

	watch    *logic.Stopwatch
	flow     *pulse.Estimator
	rpm      *pulse.Estimator
	pressure pressure.Reader
	events   *bridge.Bridge[logic.Event]

	runID string
}

// New constructs a Station.
func New(opts Options) *Station {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = func() string { return uuid.NewString() }
	}
	if opts.Flow.K == 0 {
		opts.Flow = pulse.DefaultFlow()
	}
	if opts.RPM.K == 0 {
		opts.RPM = pulse.DefaultRPM()
	}
	if opts.Pressure == nil {
		opts.Pressure = pressure.Absent{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Station{
		clock:    opts.Clock,
		newRunID: opts.NewRunID,
		log:      opts.Logger.Named("station"),
		watch:    logic.NewStopwatch(opts.Clock),
		flow:     pulse.NewFlow(opts.Flow, opts.Clock),
		rpm:      pulse.NewRPM(opts.RPM, opts.Clock),
		pressure: opts.Pressure,
		events:   bridge.New[logic.Event](),
	}
}

// Dispatch handles one debounced trigger. Triggers whose preconditions are
// not met are ignored.
func (s *Station) Dispatch(tr logic.Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted := s.handle(tr)
	metrics.IncTrigger(string(tr), accepted)
	metrics.SetBridgeDepth(s.events.Len())
	if !accepted {
		s.log.Debug("trigger ignored", zap.String("trigger", string(tr)), zap.String("state", string(s.watch.State())))
	}
}

func (s *Station) handle(tr logic.Trigger) bool {
	switch tr {
	case logic.TriggerStart:
		if s.watch.State() == logic.StateIdle {
			s.runID = s.newRunID()
		}
		sp, ok := s.watch.Start()
		if !ok {
			return false
		}
		s.publish(logic.EventStarted, s.assemble(sp.Checkpoint, sp.Elapsed, false))

	case logic.TriggerFirstSplit:
		sp, ok := s.watch.MeasureFirstSplit()
		if !ok {
			return false
		}
		s.publish(logic.EventSplitMeasured, s.assemble(sp.Checkpoint, sp.Elapsed, false))

	case logic.TriggerStopA, logic.TriggerStopB:
		sensor := logic.StopSensorA
		if tr == logic.TriggerStopB {
			sensor = logic.StopSensorB
		}
		res := s.watch.Stop(sensor)
		if !res.Accepted {
			return false
		}
		typ := logic.EventSplitMeasured
		if res.Stopped {
			typ = logic.EventStopped
		}
		s.publish(typ, s.assemble(res.Split.Checkpoint, res.Split.Elapsed, false))

	case logic.TriggerManual:
		s.publish(logic.EventManualMeasured, s.assemble(logic.CheckpointManual, s.watch.Elapsed(), true))

	case logic.TriggerReset:
		s.watch.Reset()
		s.runID = ""
		s.events.Publish(logic.Event{Type: logic.EventReset, At: s.clock()})

	default:
		return false
	}
	return true
}

// assemble reads both estimators and the pressure transducers into an
// immutable snapshot. Caller must hold s.mu.
func (s *Station) assemble(cp logic.Checkpoint, elapsed time.Duration, manual bool) logic.Snapshot {
	a, b, err := s.pressure.Read()
	if err != nil {
		a, b = logic.PressureNotReady, logic.PressureNotReady
	}
	return logic.Snapshot{
		Checkpoint: cp,
		Elapsed:    elapsed,
		RPM:        s.rpm.Rate(),
		Flow:       s.flow.Rate(),
		PressureA:  a,
		PressureB:  b,
		Manual:     manual,
		RunID:      s.runID,
	}
}

func (s *Station) publish(typ logic.EventType, snap logic.Snapshot) {
	s.events.Publish(logic.Event{Type: typ, At: s.clock(), Snapshot: snap})
}

// Pulse records a pulse from the given sensor. Unknown sensors are ignored.
func (s *Station) Pulse(sensor logic.PulseSensor) {
	switch sensor {
	case logic.PulseFlow:
		s.flow.RecordPulse()
	case logic.PulseRPM:
		s.rpm.RecordPulse()
	default:
		return
	}
	metrics.IncPulse(string(sensor))
}

// Elapsed returns the live stopwatch time.
func (s *Station) Elapsed() time.Duration {
	return s.watch.Elapsed()
}

// State returns the stopwatch state.
func (s *Station) State() logic.State {
	return s.watch.State()
}

// Rates returns the current engine speed and flow.
func (s *Station) Rates() (rpm, flow int) {
	return s.rpm.Rate(), s.flow.Rate()
}

// TryConsume returns the oldest pending event without blocking.
func (s *Station) TryConsume() (logic.Event, bool) {
	ev, ok := s.events.TryConsume()
	metrics.SetBridgeDepth(s.events.Len())
	return ev, ok
}

// Pending returns the number of events waiting to be consumed.
func (s *Station) Pending() int {
	return s.events.Len()
}
