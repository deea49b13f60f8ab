package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/firesport-timer/internal/logic"
	"github.com/sweeney/firesport-timer/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Board) {
	t.Helper()
	start := time.Date(2026, 6, 14, 10, 0, 0, 0, time.UTC)
	cfg := status.Config{
		TickMs:     40,
		DebounceMs: 100,
		Broker:     "tcp://192.168.1.200:1883",
		HTTPAddr:   ":80",
	}
	b := status.NewBoard(start, cfg)
	srv := New(":0", b)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, b
}

func split(typ logic.EventType, cp logic.Checkpoint, elapsed time.Duration) logic.Event {
	return logic.Event{
		Type: typ,
		Snapshot: logic.Snapshot{
			Checkpoint: cp,
			Elapsed:    elapsed,
			RPM:        3152,
			Flow:       1032,
			PressureA:  logic.PressureNotReady,
			PressureB:  logic.PressureNotReady,
			RunID:      "run-7",
		},
	}
}

func getBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, b := newTestServer(t)
	b.Apply(split(logic.EventStarted, logic.CheckpointStart, 0))
	b.Apply(split(logic.EventSplitMeasured, logic.CheckpointFirstSplit, 17456*time.Millisecond))
	b.SetLive(18*time.Second, logic.StateRunning, 3152, 1032)
	b.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "RUNNING" {
		t.Errorf("State: got %q, want RUNNING", sj.Status.State)
	}
	if sj.Status.Elapsed != "00:18.000" {
		t.Errorf("Elapsed: got %q, want 00:18.000", sj.Status.Elapsed)
	}
	if len(sj.Status.Rows) != 2 {
		t.Fatalf("Rows: got %d, want 2", len(sj.Status.Rows))
	}
	if sj.Status.Rows[1].Checkpoint != 3 {
		t.Errorf("Rows[1].Checkpoint: got %d, want 3", sj.Status.Rows[1].Checkpoint)
	}
	if sj.Status.Rows[1].Pressure != "--/--" {
		t.Errorf("Rows[1].Pressure: got %q, want --/--", sj.Status.Rows[1].Pressure)
	}
	if sj.Status.RunID != "run-7" {
		t.Errorf("RunID: got %q, want run-7", sj.Status.RunID)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Config.TickMs != 40 {
		t.Errorf("Config.TickMs: got %d, want 40", sj.Status.Config.TickMs)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, b := newTestServer(t)
	b.Apply(split(logic.EventStarted, logic.CheckpointStart, 0))
	b.Apply(split(logic.EventManualMeasured, logic.CheckpointManual, 5*time.Second))
	b.SetLive(6*time.Second+125*time.Millisecond, logic.StateRunning, 3152, 1032)

	resp, body := getBody(t, ts.URL+"/")

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{"00:06.125", "00:05.000", "<td>M</td>", "--/--", "run-7"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := getBody(t, ts.URL+"/index.html")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "00:00.000") {
		t.Error("idle board should show a zero stopwatch")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := getBody(t, ts.URL+"/metrics")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected default Go collectors in /metrics output")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, b := newTestServer(t)

	resp1, _ := http.Get(ts.URL + "/index.json")
	var sj1 status.StatusJSON
	json.NewDecoder(resp1.Body).Decode(&sj1)
	resp1.Body.Close()
	if sj1.Status.State != "IDLE" {
		t.Errorf("State: got %q, want IDLE initially", sj1.Status.State)
	}

	b.Apply(split(logic.EventStarted, logic.CheckpointStart, 0))
	b.Apply(logic.Event{Type: logic.EventReset})
	b.SetLive(0, logic.StateIdle, 0, 0)
	b.SetMQTTConnected(true)

	resp2, _ := http.Get(ts.URL + "/index.json")
	var sj2 status.StatusJSON
	json.NewDecoder(resp2.Body).Decode(&sj2)
	resp2.Body.Close()

	if len(sj2.Status.Rows) != 0 {
		t.Errorf("Rows after reset: got %d, want 0", len(sj2.Status.Rows))
	}
	if sj2.Status.Counts.Resets != 1 {
		t.Errorf("Counts.Resets: got %d, want 1", sj2.Status.Counts.Resets)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
