// Package logic contains the pure domain logic of the stopwatch station.
// This package has NO hardware, network or OS dependencies.
// Time is always injectable via a clock function or time.Duration timestamps.
package logic

import "time"

// Checkpoint identifies which physical station recorded a split.
// Values are fixed per sensor role, not sequence numbers.
type Checkpoint int

const (
	CheckpointManual     Checkpoint = 0
	CheckpointStopB      Checkpoint = 1
	CheckpointStopA      Checkpoint = 2
	CheckpointFirstSplit Checkpoint = 3
	CheckpointStart      Checkpoint = 4
)

// State represents the life cycle state of the stopwatch.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StateStopped State = "STOPPED"
)

// StopSensor identifies one of the two finish-line sensors.
type StopSensor int

const (
	StopSensorA StopSensor = iota
	StopSensorB
)

// Checkpoint returns the checkpoint a split from this sensor is recorded at.
func (s StopSensor) Checkpoint() Checkpoint {
	if s == StopSensorB {
		return CheckpointStopB
	}
	return CheckpointStopA
}

// Trigger is a single debounced actuation delivered by a trigger source.
type Trigger string

const (
	TriggerStart      Trigger = "START"
	TriggerFirstSplit Trigger = "FIRST_SPLIT"
	TriggerStopA      Trigger = "STOP_A"
	TriggerStopB      Trigger = "STOP_B"
	TriggerManual     Trigger = "MANUAL"
	TriggerReset      Trigger = "RESET"
)

// PulseSensor identifies a pulse-output sensor.
type PulseSensor string

const (
	PulseFlow PulseSensor = "flow"
	PulseRPM  PulseSensor = "rpm"
)

// EventType is the variant tag of an Event.
type EventType string

const (
	EventStarted        EventType = "STARTED"
	EventStopped        EventType = "STOPPED"
	EventReset          EventType = "RESET"
	EventSplitMeasured  EventType = "SPLIT_MEASURED"
	EventManualMeasured EventType = "MANUAL_MEASURED"
)

// PressureNotReady is substituted for both pressure values when the
// transducer could not be initialized.
const PressureNotReady = -1.0

// Split is a single recorded timestamp within a run.
type Split struct {
	Checkpoint Checkpoint
	At         time.Time
	// Elapsed is At minus the start split of the run.
	Elapsed time.Duration
}

// Snapshot bundles every measured value captured at one instant.
// It is a value type and is never mutated after assembly.
type Snapshot struct {
	Checkpoint Checkpoint
	Elapsed    time.Duration
	RPM        int
	Flow       int
	PressureA  float64
	PressureB  float64
	Manual     bool
	RunID      string
}

// PressureReady reports whether the pressure values are real readings.
func (s Snapshot) PressureReady() bool {
	return s.PressureA != PressureNotReady && s.PressureB != PressureNotReady
}

// Event is carried over the bridge from the station to the consumer.
type Event struct {
	Type     EventType
	At       time.Time
	Snapshot Snapshot
}

// HasSnapshot reports whether the event carries measurement data.
func (e Event) HasSnapshot() bool {
	return e.Type != EventReset
}
