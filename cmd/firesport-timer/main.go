// Command firesport-timer runs the stopwatch station: it watches the trigger
// buttons and pulse sensors on GPIO, shows the board over HTTP and publishes
// every measurement to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweeney/firesport-timer/internal/config"
	"github.com/sweeney/firesport-timer/internal/gpio"
	"github.com/sweeney/firesport-timer/internal/logger"
	"github.com/sweeney/firesport-timer/internal/logic"
	"github.com/sweeney/firesport-timer/internal/metrics"
	"github.com/sweeney/firesport-timer/internal/mqtt"
	"github.com/sweeney/firesport-timer/internal/pressure"
	"github.com/sweeney/firesport-timer/internal/station"
	"github.com/sweeney/firesport-timer/internal/status"
	"github.com/sweeney/firesport-timer/internal/web"
)

type options struct {
	chip string

	pinStart      int
	pinFirstSplit int
	pinStopA      int
	pinStopB      int
	pinReset      int
	pinManual     int
	pinFlow       int
	pinRPM        int

	buttonDebounce time.Duration
	flowDebounce   time.Duration
	rpmDebounce    time.Duration

	broker     string
	clientID   string
	bufferSize int
	httpAddr   string
	tick       time.Duration

	calibration   string
	benchPressure []float64

	logLevel  string
	logFormat string
	logFile   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:           "firesport-timer",
		Short:         "Firesport stopwatch station",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.chip, "chip", "gpiochip0", "GPIO chip name")
	f.IntVar(&o.pinStart, "pin-start", gpio.PinStart, "BCM pin for the start button")
	f.IntVar(&o.pinFirstSplit, "pin-first-split", gpio.PinFirstSplit, "BCM pin for the first split sensor")
	f.IntVar(&o.pinStopA, "pin-stop-a", gpio.PinStopA, "BCM pin for stop sensor A")
	f.IntVar(&o.pinStopB, "pin-stop-b", gpio.PinStopB, "BCM pin for stop sensor B")
	f.IntVar(&o.pinReset, "pin-reset", gpio.PinReset, "BCM pin for the reset button")
	f.IntVar(&o.pinManual, "pin-manual", gpio.PinManual, "BCM pin for the manual measure button")
	f.IntVar(&o.pinFlow, "pin-flow", gpio.PinFlow, "BCM pin for the flow meter pulse output")
	f.IntVar(&o.pinRPM, "pin-rpm", gpio.PinRPM, "BCM pin for the engine speed pulse output")
	f.DurationVar(&o.buttonDebounce, "button-debounce", gpio.ButtonDebounce, "Debounce for buttons and split sensors")
	f.DurationVar(&o.flowDebounce, "flow-debounce", gpio.FlowDebounce, "Debounce for flow pulses")
	f.DurationVar(&o.rpmDebounce, "rpm-debounce", gpio.RPMDebounce, "Debounce for engine speed pulses (0 disables)")
	f.StringVar(&o.broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	f.StringVar(&o.clientID, "client-id", "firesport-timer", "MQTT client ID")
	f.IntVar(&o.bufferSize, "mqtt-buffer", mqtt.DefaultBufferSize, "Messages kept while the broker is unreachable")
	f.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	f.DurationVar(&o.tick, "tick", 40*time.Millisecond, "Display refresh and event consume interval")
	f.StringVar(&o.calibration, "calibration", "calibration.json", "Sensor calibration file")
	f.Float64SliceVar(&o.benchPressure, "bench-pressure", nil, "Fixed pressure readings A,B in bar (no transducer driver)")
	f.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&o.logFormat, "log-format", "json", "Log format: json or console")
	f.StringVar(&o.logFile, "log-file", "", "Also write logs to this file with rotation")
	return cmd
}

func run(o options) error {
	if o.tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", o.tick)
	}

	log := logger.New(logger.Options{Level: o.logLevel, Format: o.logFormat, File: o.logFile})
	defer log.Sync()

	cal, err := config.Load(o.calibration, log)
	if err != nil {
		return fmt.Errorf("load calibration: %w", err)
	}

	reader, err := pressureReader(o.benchPressure)
	if err != nil {
		return err
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	st := station.New(station.Options{
		Flow:     cal.Flow,
		RPM:      cal.RPM,
		Pressure: reader,
		Logger:   log,
	})

	src, err := gpio.NewRealSource(o.chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer src.Close()

	if err := wireInputs(src, st, o); err != nil {
		return fmt.Errorf("watch inputs: %w", err)
	}

	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     o.broker,
		ClientID:   o.clientID,
		BufferSize: o.bufferSize,
		Logger:     log,
	})
	defer publisher.Close()

	board := status.NewBoard(time.Now(), status.Config{
		Broker:     o.broker,
		HTTPAddr:   o.httpAddr,
		TickMs:     o.tick.Milliseconds(),
		DebounceMs: o.buttonDebounce.Milliseconds(),
		FlowK:      cal.Flow.K,
		FlowQ:      cal.Flow.Q,
		RPMK:       cal.RPM.K,
	})

	snap := board.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warn("failed to publish startup event", zap.Error(err))
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, board)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", zap.String("addr", o.httpAddr))
	}

	log.Info("started",
		zap.Duration("tick", o.tick),
		zap.String("broker", o.broker),
		zap.Float64("flow_k", cal.Flow.K),
		zap.Float64("flow_q", cal.Flow.Q),
		zap.Float64("rpm_k", cal.RPM.K),
	)

	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(st, publisher, publisher, board, log, time.Now, ticker.C, sigCh)
}

func pressureReader(bench []float64) (pressure.Reader, error) {
	switch len(bench) {
	case 0:
		return pressure.Absent{}, nil
	case 2:
		return pressure.Static{A: bench[0], B: bench[1]}, nil
	default:
		return nil, fmt.Errorf("bench-pressure needs two values A,B, got %d", len(bench))
	}
}

// wireInputs registers every trigger and pulse input with the source.
func wireInputs(src gpio.Source, st *station.Station, o options) error {
	triggers := []struct {
		in gpio.Input
		tr logic.Trigger
	}{
		{gpio.Input{Name: "start", Pin: o.pinStart, Debounce: o.buttonDebounce}, logic.TriggerStart},
		{gpio.Input{Name: "first-split", Pin: o.pinFirstSplit, Debounce: o.buttonDebounce}, logic.TriggerFirstSplit},
		{gpio.Input{Name: "stop-a", Pin: o.pinStopA, Debounce: o.buttonDebounce}, logic.TriggerStopA},
		{gpio.Input{Name: "stop-b", Pin: o.pinStopB, Debounce: o.buttonDebounce}, logic.TriggerStopB},
		{gpio.Input{Name: "reset", Pin: o.pinReset, Debounce: o.buttonDebounce}, logic.TriggerReset},
		{gpio.Input{Name: "manual", Pin: o.pinManual, Debounce: o.buttonDebounce}, logic.TriggerManual},
	}
	for _, t := range triggers {
		tr := t.tr
		if err := src.Watch(t.in, func() { st.Dispatch(tr) }); err != nil {
			return err
		}
	}

	pulses := []struct {
		in     gpio.Input
		sensor logic.PulseSensor
	}{
		{gpio.Input{Name: "flow", Pin: o.pinFlow, Debounce: o.flowDebounce}, logic.PulseFlow},
		{gpio.Input{Name: "rpm", Pin: o.pinRPM, Debounce: o.rpmDebounce}, logic.PulseRPM},
	}
	for _, p := range pulses {
		sensor := p.sensor
		if err := src.Watch(p.in, func() { st.Pulse(sensor) }); err != nil {
			return err
		}
	}
	return nil
}

// runLoop is the periodic consumer. Each tick refreshes the live readings
// and takes at most one event off the bridge.
func runLoop(st *station.Station, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, board *status.Board, log *zap.Logger, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Info("shutting down", zap.String("signal", name))
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    name,
				Retained:  true,
			}
			if board != nil {
				if mqttStatus != nil {
					board.SetMQTTConnected(mqttStatus.IsConnected())
				}
				event.RawPayload = status.FormatStatusEvent(board.Snapshot(), "SHUTDOWN", name)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn("failed to publish shutdown event", zap.Error(err))
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case <-tick:
			rpm, flow := st.Rates()
			metrics.SetRate(string(logic.PulseRPM), rpm)
			metrics.SetRate(string(logic.PulseFlow), flow)
			if board != nil {
				board.SetLive(st.Elapsed(), st.State(), rpm, flow)
				if mqttStatus != nil {
					board.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			ev, ok := st.TryConsume()
			if !ok {
				continue
			}
			logEvent(log, ev)
			metrics.IncEvent(string(ev.Type))
			if board != nil {
				board.Apply(ev)
			}
			if err := publisher.Publish(ev); err != nil {
				metrics.IncPublishError()
				log.Warn("publish error", zap.String("event", string(ev.Type)), zap.Error(err))
			}
		}
	}
}

func logEvent(log *zap.Logger, ev logic.Event) {
	if !ev.HasSnapshot() {
		log.Info("stopwatch reset")
		return
	}
	s := ev.Snapshot
	fields := []zap.Field{
		zap.String("event", string(ev.Type)),
		zap.Int("checkpoint", int(s.Checkpoint)),
		zap.String("elapsed", logic.FormatElapsed(s.Elapsed)),
		zap.Int("rpm", s.RPM),
		zap.Int("flow", s.Flow),
		zap.String("run_id", s.RunID),
	}
	if s.PressureReady() {
		fields = append(fields, zap.Float64("pressure_a", s.PressureA), zap.Float64("pressure_b", s.PressureB))
	}
	switch ev.Type {
	case logic.EventSplitMeasured:
		log.Info(fmt.Sprintf("split measured on checkpoint %d", s.Checkpoint), fields...)
	case logic.EventManualMeasured:
		log.Info("manual measurement", fields...)
	case logic.EventStarted:
		log.Info("stopwatch started", fields...)
	case logic.EventStopped:
		log.Info("stopwatch stopped", fields...)
	default:
		log.Info("event", fields...)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
