package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Launch results recorded in launches_total.
const (
	LaunchOK                = "ok"
	LaunchCreateError       = "create_error"
	LaunchIntermediateError = "intermediate_error"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	launches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "procguard",
			Subsystem: "guard",
			Name:      "launches_total",
			Help:      "Number of detached launch attempts by result.",
		}, []string{"name", "result"},
	)
	discoveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "procguard",
			Subsystem: "guard",
			Name:      "discoveries_total",
			Help:      "Number of times running instances were found by name lookup.",
		}, []string{"name"},
	)
	exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "procguard",
			Subsystem: "guard",
			Name:      "exits_total",
			Help:      "Number of tracked PIDs that failed the liveness probe.",
		}, []string{"name"},
	)
	trackedPIDs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "procguard",
			Subsystem: "guard",
			Name:      "tracked_pids",
			Help:      "Current number of PIDs believed alive per entry.",
		}, []string{"name"},
	)
	guarding = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "procguard",
			Subsystem: "guard",
			Name:      "guarding",
			Help:      "Whether the entry is actively guarded (1) or dormant (0).",
		}, []string{"name"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{launches, discoveries, exits, trackedPIDs, guarding}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
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

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncLaunch(name, result string) {
	if regOK.Load() {
		launches.WithLabelValues(name, result).Inc()
	}
}

func IncDiscovery(name string) {
	if regOK.Load() {
		discoveries.WithLabelValues(name).Inc()
	}
}

func AddExits(name string, n int) {
	if regOK.Load() && n > 0 {
		exits.WithLabelValues(name).Add(float64(n))
	}
}

func SetTrackedPIDs(name string, n int) {
	if regOK.Load() {
		trackedPIDs.WithLabelValues(name).Set(float64(n))
	}
}

func SetGuarding(name string, on bool) {
	if regOK.Load() {
		var v float64
		if on {
			v = 1
		}
		guarding.WithLabelValues(name).Set(v)
	}
}
