package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	State         string     `json:"state"`
	Elapsed       string     `json:"elapsed"`
	ElapsedMs     int64      `json:"elapsed_ms"`
	RPM           int        `json:"rpm"`
	Flow          int        `json:"flow"`
	RunID         string     `json:"run_id,omitempty"`
	Rows          []RowJSON  `json:"rows"`
	Manual        *RowJSON   `json:"manual"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// RowJSON is one board row.
type RowJSON struct {
	Checkpoint int    `json:"checkpoint"`
	Elapsed    string `json:"elapsed"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	RPM        int    `json:"rpm"`
	Flow       int    `json:"flow"`
	Pressure   string `json:"pressure"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Started int `json:"started"`
	Splits  int `json:"splits"`
	Stopped int `json:"stopped"`
	Manual  int `json:"manual"`
	Resets  int `json:"resets"`
}

// ConfigJSON is the JSON representation of station config.
type ConfigJSON struct {
	TickMs     int64   `json:"tick_ms"`
	DebounceMs int64   `json:"debounce_ms"`
	Broker     string  `json:"broker"`
	HTTPAddr   string  `json:"http_addr"`
	FlowK      float64 `json:"flow_k"`
	FlowQ      float64 `json:"flow_q"`
	RPMK       float64 `json:"rpm_k"`
}

func rowJSON(r Row) RowJSON {
	return RowJSON{
		Checkpoint: int(r.Checkpoint),
		Elapsed:    r.Time(),
		ElapsedMs:  r.Elapsed.Milliseconds(),
		RPM:        r.RPM,
		Flow:       r.Flow,
		Pressure:   r.Pressure(),
	}
}

func buildInner(snap Snapshot) StatusInner {
	rows := make([]RowJSON, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		rows = append(rows, rowJSON(r))
	}
	var manual *RowJSON
	if snap.Manual != nil {
		m := rowJSON(*snap.Manual)
		manual = &m
	}

	return StatusInner{
		State:         string(snap.State),
		Elapsed:       snap.Live(),
		ElapsedMs:     snap.Elapsed.Milliseconds(),
		RPM:           snap.RPM,
		Flow:          snap.Flow,
		RunID:         snap.RunID,
		Rows:          rows,
		Manual:        manual,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Started: snap.Counts.Started,
			Splits:  snap.Counts.Splits,
			Stopped: snap.Counts.Stopped,
			Manual:  snap.Counts.Manual,
			Resets:  snap.Counts.Resets,
		},
		Config: ConfigJSON{
			TickMs:     snap.Config.TickMs,
			DebounceMs: snap.Config.DebounceMs,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
			FlowK:      snap.Config.FlowK,
			FlowQ:      snap.Config.FlowQ,
			RPMK:       snap.Config.RPMK,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
