package logic

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestNewStopwatchIsIdle(t *testing.T) {
	sw := NewStopwatch(newFakeClock().Now)
	if sw.State() != StateIdle {
		t.Errorf("expected IDLE, got %s", sw.State())
	}
	if len(sw.Splits()) != 0 {
		t.Errorf("expected no splits, got %d", len(sw.Splits()))
	}
	if sw.Elapsed() != 0 {
		t.Errorf("expected zero elapsed, got %v", sw.Elapsed())
	}
}

func TestStartRecordsStartSplit(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)

	sp, ok := sw.Start()
	if !ok {
		t.Fatal("start should be accepted from IDLE")
	}
	if sp.Checkpoint != CheckpointStart {
		t.Errorf("expected checkpoint %d, got %d", CheckpointStart, sp.Checkpoint)
	}
	if sp.Elapsed != 0 {
		t.Errorf("start split elapsed should be zero, got %v", sp.Elapsed)
	}
	if sw.State() != StateRunning {
		t.Errorf("expected RUNNING, got %s", sw.State())
	}
}

func TestGuardedStart(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)

	sw.Start()
	clk.Advance(time.Second)
	if _, ok := sw.Start(); ok {
		t.Error("second start while running should be ignored")
	}
	if n := len(sw.Splits()); n != 1 {
		t.Errorf("expected exactly 1 split, got %d", n)
	}
}

func TestFirstSplitRequiresRunning(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)

	if _, ok := sw.MeasureFirstSplit(); ok {
		t.Error("first split while idle should be ignored")
	}
	if sw.FirstSplitDone() {
		t.Error("first split flag should not be set")
	}

	sw.Start()
	clk.Advance(5 * time.Second)
	sp, ok := sw.MeasureFirstSplit()
	if !ok {
		t.Fatal("first split while running should be accepted")
	}
	if sp.Checkpoint != CheckpointFirstSplit {
		t.Errorf("expected checkpoint %d, got %d", CheckpointFirstSplit, sp.Checkpoint)
	}
	if sp.Elapsed != 5*time.Second {
		t.Errorf("expected elapsed 5s, got %v", sp.Elapsed)
	}
	if !sw.FirstSplitDone() {
		t.Error("first split flag should be set")
	}
}

func TestStopBeforeFirstSplitIgnored(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)
	sw.Start()

	res := sw.Stop(StopSensorA)
	if res.Accepted {
		t.Error("stop before first split should be ignored")
	}
	if sw.PendingStop() {
		t.Error("pending stop should not be armed")
	}
	if n := len(sw.Splits()); n != 1 {
		t.Errorf("expected 1 split, got %d", n)
	}
}

func TestStopRace(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)
	sw.Start()
	clk.Advance(10 * time.Second)
	sw.MeasureFirstSplit()
	clk.Advance(20 * time.Second)

	res := sw.Stop(StopSensorA)
	if !res.Accepted || res.Stopped {
		t.Fatalf("first stop: expected accepted and not stopped, got %+v", res)
	}
	if res.Split.Checkpoint != CheckpointStopA {
		t.Errorf("expected checkpoint %d, got %d", CheckpointStopA, res.Split.Checkpoint)
	}
	if sw.State() != StateRunning {
		t.Errorf("expected RUNNING after first stop, got %s", sw.State())
	}
	if !sw.PendingStop() {
		t.Error("pending stop should be armed after first stop")
	}

	clk.Advance(300 * time.Millisecond)
	res = sw.Stop(StopSensorB)
	if !res.Accepted || !res.Stopped {
		t.Fatalf("second stop: expected accepted and stopped, got %+v", res)
	}
	if res.Split.Checkpoint != CheckpointStopB {
		t.Errorf("expected checkpoint %d, got %d", CheckpointStopB, res.Split.Checkpoint)
	}
	if sw.State() != StateStopped {
		t.Errorf("expected STOPPED, got %s", sw.State())
	}
}

func TestStopSameSensorTwiceCompletesStop(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)
	sw.Start()
	sw.MeasureFirstSplit()

	sw.Stop(StopSensorA)
	clk.Advance(time.Second)
	res := sw.Stop(StopSensorA)
	if !res.Stopped {
		t.Error("second trigger from the same sensor should complete the stop")
	}
	if sw.State() != StateStopped {
		t.Errorf("expected STOPPED, got %s", sw.State())
	}
}

func TestStopIgnoredAfterStopped(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)
	sw.Start()
	sw.MeasureFirstSplit()
	sw.Stop(StopSensorA)
	sw.Stop(StopSensorB)

	if res := sw.Stop(StopSensorA); res.Accepted {
		t.Error("stop after STOPPED should be ignored")
	}
	if n := len(sw.Splits()); n != 4 {
		t.Errorf("expected 4 splits, got %d", n)
	}
}

func TestElapsedWhileRunning(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)
	sw.Start()

	clk.Advance(1234 * time.Millisecond)
	if got := sw.Elapsed(); got != 1234*time.Millisecond {
		t.Errorf("expected 1.234s, got %v", got)
	}
	clk.Advance(time.Second)
	if got := sw.Elapsed(); got != 2234*time.Millisecond {
		t.Errorf("expected 2.234s, got %v", got)
	}
}

func TestElapsedFreezesAfterStop(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)
	sw.Start()
	clk.Advance(8 * time.Second)
	sw.MeasureFirstSplit()
	clk.Advance(12 * time.Second)
	sw.Stop(StopSensorB)
	clk.Advance(250 * time.Millisecond)
	sw.Stop(StopSensorA)

	want := 20*time.Second + 250*time.Millisecond
	for i := 0; i < 3; i++ {
		if got := sw.Elapsed(); got != want {
			t.Errorf("read %d: expected %v, got %v", i, want, got)
		}
		clk.Advance(time.Minute)
	}
}

func TestResetFromAnyState(t *testing.T) {
	setups := map[string]func(sw *Stopwatch, clk *fakeClock){
		"idle": func(sw *Stopwatch, clk *fakeClock) {},
		"running": func(sw *Stopwatch, clk *fakeClock) {
			sw.Start()
			clk.Advance(time.Second)
		},
		"pending stop": func(sw *Stopwatch, clk *fakeClock) {
			sw.Start()
			sw.MeasureFirstSplit()
			sw.Stop(StopSensorA)
		},
		"stopped": func(sw *Stopwatch, clk *fakeClock) {
			sw.Start()
			clk.Advance(time.Second)
			sw.MeasureFirstSplit()
			sw.Stop(StopSensorA)
			sw.Stop(StopSensorB)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			clk := newFakeClock()
			sw := NewStopwatch(clk.Now)
			setup(sw, clk)

			sw.Reset()
			sw.Reset()

			if sw.State() != StateIdle {
				t.Errorf("expected IDLE, got %s", sw.State())
			}
			if len(sw.Splits()) != 0 {
				t.Errorf("expected no splits, got %d", len(sw.Splits()))
			}
			if sw.PendingStop() || sw.FirstSplitDone() {
				t.Error("flags should be cleared")
			}
			if got := FormatElapsed(sw.Elapsed()); got != "00:00.000" {
				t.Errorf("expected 00:00.000, got %s", got)
			}
		})
	}
}

func TestStartAfterStopResumesRun(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)
	start, _ := sw.Start()
	sw.MeasureFirstSplit()
	sw.Stop(StopSensorA)
	sw.Stop(StopSensorB)

	clk.Advance(3 * time.Second)
	sp, ok := sw.Start()
	if !ok {
		t.Fatal("start from STOPPED should be accepted")
	}
	if sp.Elapsed != 3*time.Second {
		t.Errorf("resumed start should be measured from the original start, got %v", sp.Elapsed)
	}
	splits := sw.Splits()
	if !splits[0].At.Equal(start.At) {
		t.Error("index 0 must remain the original start split")
	}
	if sw.State() != StateRunning {
		t.Errorf("expected RUNNING, got %s", sw.State())
	}
}

func TestSplitsAreMonotonic(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)
	sw.Start()
	clk.Advance(time.Second)
	sw.MeasureFirstSplit()
	sw.Stop(StopSensorA) // same instant as the first split
	clk.Advance(time.Millisecond)
	sw.Stop(StopSensorB)

	splits := sw.Splits()
	for i := 1; i < len(splits); i++ {
		if splits[i].At.Before(splits[i-1].At) {
			t.Errorf("split %d (%v) before split %d (%v)", i, splits[i].At, i-1, splits[i-1].At)
		}
	}
}

func TestSplitRegressionPanics(t *testing.T) {
	clk := newFakeClock()
	sw := NewStopwatch(clk.Now)
	sw.Start()
	clk.Advance(-time.Second)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on backwards split")
		}
	}()
	sw.MeasureFirstSplit()
}

func TestSplitsReturnsCopy(t *testing.T) {
	sw := NewStopwatch(newFakeClock().Now)
	sw.Start()

	splits := sw.Splits()
	splits[0].Checkpoint = CheckpointManual
	if sw.Splits()[0].Checkpoint != CheckpointStart {
		t.Error("mutating the returned slice must not affect the stopwatch")
	}
}

func TestConcurrentStopsAreSerialized(t *testing.T) {
	for run := 0; run < 50; run++ {
		sw := NewStopwatch(time.Now)
		sw.Start()
		sw.MeasureFirstSplit()

		var wg sync.WaitGroup
		results := make([]StopResult, 2)
		for i, sensor := range []StopSensor{StopSensorA, StopSensorB} {
			wg.Add(1)
			go func(i int, sensor StopSensor) {
				defer wg.Done()
				results[i] = sw.Stop(sensor)
			}(i, sensor)
		}
		// Readers run alongside the writers.
		for i := 0; i < 10; i++ {
			_ = sw.Elapsed()
		}
		wg.Wait()

		stopped := 0
		for _, r := range results {
			if !r.Accepted {
				t.Fatalf("run %d: both stops should be accepted", run)
			}
			if r.Stopped {
				stopped++
			}
		}
		if stopped != 1 {
			t.Fatalf("run %d: exactly one stop should complete the run, got %d", run, stopped)
		}
		if sw.State() != StateStopped {
			t.Fatalf("run %d: expected STOPPED, got %s", run, sw.State())
		}
	}
}
