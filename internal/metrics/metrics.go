// Package metrics provides Prometheus instrumentation for the game client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsReceived counts inbound server events, partitioned by event name.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticker_events_received_total",
		Help: "Total server events received",
	}, []string{"event"})

	// CommandsEmitted counts outbound commands by event name and outcome
	// (ok, rejected, timeout, error).
	CommandsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticker_commands_total",
		Help: "Total commands emitted",
	}, []string{"event", "outcome"})

	// AckLatency tracks round-trip time from emit to acknowledgement.
	AckLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ticker_ack_latency_seconds",
		Help:    "Command acknowledgement latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"event"})

	// Reconnects counts automatic reconnection attempts that succeeded.
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticker_reconnects_total",
		Help: "Successful transport reconnections",
	})

	// Connected reports whether the transport currently has a live connection.
	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ticker_connected",
		Help: "1 when the transport session is connected, 0 otherwise",
	})

	// SnapshotsApplied counts authoritative snapshots reduced into the store.
	SnapshotsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticker_snapshots_applied_total",
		Help: "Authoritative game snapshots applied",
	})

	// ToastsShown counts one-shot toast messages surfaced to the player.
	ToastsShown = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticker_toasts_total",
		Help: "Toast messages surfaced",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
