// Package mqtt publishes stopwatch events over MQTT, with an abstraction for
// testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/firesport-timer/internal/logic"
)

// Topic is the MQTT topic for stopwatch events.
const Topic = "firesport/stopwatch/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "firesport/stopwatch/system"

// timeFormat keeps millisecond precision; split times are sub-second.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a stopwatch event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message payload for a stopwatch event.
type Payload struct {
	Stopwatch StopwatchPayload `json:"stopwatch"`
}

// StopwatchPayload contains the event details.
type StopwatchPayload struct {
	Timestamp   string              `json:"timestamp"`
	Event       string              `json:"event"`
	RunID       string              `json:"run_id,omitempty"`
	Measurement *MeasurementPayload `json:"measurement,omitempty"`
}

// MeasurementPayload is the snapshot carried by every event except reset.
type MeasurementPayload struct {
	Checkpoint int              `json:"checkpoint"`
	Elapsed    string           `json:"elapsed"`
	ElapsedMs  int64            `json:"elapsed_ms"`
	RPM        int              `json:"rpm"`
	Flow       int              `json:"flow"`
	Pressure   *PressurePayload `json:"pressure"` // null when the transducers are not ready
	Manual     bool             `json:"manual"`
}

// PressurePayload holds both transducer readings in bar.
type PressurePayload struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// FormatPayload creates the JSON payload for a stopwatch event.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := StopwatchPayload{
		Timestamp: event.At.UTC().Format(timeFormat),
		Event:     string(event.Type),
	}
	if event.HasSnapshot() {
		s := event.Snapshot
		p.RunID = s.RunID
		p.Measurement = &MeasurementPayload{
			Checkpoint: int(s.Checkpoint),
			Elapsed:    logic.FormatElapsed(s.Elapsed),
			ElapsedMs:  s.Elapsed.Milliseconds(),
			RPM:        s.RPM,
			Flow:       s.Flow,
			Manual:     s.Manual,
		}
		if s.PressureReady() {
			p.Measurement.Pressure = &PressurePayload{A: s.PressureA, B: s.PressureB}
		}
	}
	return json.Marshal(Payload{Stopwatch: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(timeFormat),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// FormatWillPayload is the last-will message the broker publishes when the
// station drops off without a clean shutdown.
func FormatWillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: "OFFLINE", Reason: "CONNECTION_LOST"}})
	return data
}
