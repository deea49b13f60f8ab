// Package metrics exposes Prometheus collectors for the stopwatch station.
package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	triggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firesport",
			Subsystem: "stopwatch",
			Name:      "triggers_total",
			Help:      "Debounced triggers received, by trigger and whether the stopwatch accepted them.",
		}, []string{"trigger", "accepted"},
	)
	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firesport",
			Subsystem: "stopwatch",
			Name:      "events_total",
			Help:      "Events consumed from the bridge, by type.",
		}, []string{"type"},
	)
	pulses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "firesport",
			Subsystem: "sensor",
			Name:      "pulses_total",
			Help:      "Pulses recorded per sensor.",
		}, []string{"sensor"},
	)
	rates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "firesport",
			Subsystem: "sensor",
			Name:      "rate",
			Help:      "Last estimated rate per sensor (rpm, l/min).",
		}, []string{"sensor"},
	)
	bridgeDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "firesport",
			Subsystem: "bridge",
			Name:      "depth",
			Help:      "Events waiting to be consumed.",
		},
	)
	publishErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "firesport",
			Subsystem: "mqtt",
			Name:      "publish_errors_total",
			Help:      "Failed MQTT publishes.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{triggers, events, pulses, rates, bridgeDepth, publishErrors}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves metrics from the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register succeeds.

func IncTrigger(trigger string, accepted bool) {
	if regOK.Load() {
		a := "false"
		if accepted {
			a = "true"
		}
		triggers.WithLabelValues(trigger, a).Inc()
	}
}

func IncEvent(eventType string) {
	if regOK.Load() {
		events.WithLabelValues(eventType).Inc()
	}
}

func IncPulse(sensor string) {
	if regOK.Load() {
		pulses.WithLabelValues(sensor).Inc()
	}
}

func SetRate(sensor string, v int) {
	if regOK.Load() {
		rates.WithLabelValues(sensor).Set(float64(v))
	}
}

func SetBridgeDepth(n int) {
	if regOK.Load() {
		bridgeDepth.Set(float64(n))
	}
}

func IncPublishError() {
	if regOK.Load() {
		publishErrors.Inc()
	}
}
