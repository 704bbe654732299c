// Package metrics exposes interaction counters and latencies to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "secondeye"

// States is the label set of the session_state gauge.
var States = []string{"idle", "recording", "awaiting_capture", "uploading", "playing", "failed"}

// Recorder owns the collectors of one process.
type Recorder struct {
	registry *prometheus.Registry

	interactions    *prometheus.CounterVec
	interactionTime *prometheus.HistogramVec
	uploadLatency   *prometheus.HistogramVec
	buttonPresses   prometheus.Counter
	ignoredTriggers *prometheus.CounterVec
	sessionState    *prometheus.GaugeVec
}

// New builds a Recorder on a fresh registry with Go runtime collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		interactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interactions_total",
				Help:      "Completed interactions by outcome",
			},
			[]string{"outcome", "kind"}, // outcome: answered, failed, cancelled
		),
		interactionTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "interaction_duration_seconds",
				Help:      "Wall time from trigger to idle",
				Buckets:   []float64{1, 2.5, 5, 10, 15, 20, 30, 45, 60, 120},
			},
			[]string{"outcome"},
		),
		uploadLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_duration_seconds",
				Help:      "Latency of POST /process including answer audio resolution",
				Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"status"}, // status: success, error
		),
		buttonPresses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "button_presses_total",
				Help:      "Debounced hardware button presses",
			},
		),
		ignoredTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ignored_triggers_total",
				Help:      "Triggers rejected because a session was in flight",
			},
			[]string{"source", "state"},
		),
		sessionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_state",
				Help:      "1 for the current session state, 0 otherwise",
			},
			[]string{"state"},
		),
	}

	r.registry.MustRegister(
		r.interactions,
		r.interactionTime,
		r.uploadLatency,
		r.buttonPresses,
		r.ignoredTriggers,
		r.sessionState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.ObserveState("idle")
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveInteraction records one interaction reaching idle.
func (r *Recorder) ObserveInteraction(outcome, kind string, elapsed time.Duration) {
	r.interactions.WithLabelValues(outcome, kind).Inc()
	r.interactionTime.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveUpload records the backend round trip.
func (r *Recorder) ObserveUpload(elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.uploadLatency.WithLabelValues(status).Observe(elapsed.Seconds())
}

// ObserveButtonPress counts one debounced press.
func (r *Recorder) ObserveButtonPress() {
	r.buttonPresses.Inc()
}

// ObserveIgnoredTrigger counts a trigger dropped by the busy guard.
func (r *Recorder) ObserveIgnoredTrigger(source, state string) {
	r.ignoredTriggers.WithLabelValues(source, state).Inc()
}

// ObserveState marks state as the current session state.
func (r *Recorder) ObserveState(state string) {
	for _, s := range States {
		value := 0.0
		if s == state {
			value = 1
		}
		r.sessionState.WithLabelValues(s).Set(value)
	}
}
