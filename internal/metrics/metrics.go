// Package metrics defines and registers the domain metrics GET
// /api/metrics exposes through promhttp.Handler, distinct from the Go
// runtime/process metrics that handler already serves for free.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/picoHz/taxy-sub001/internal/portmap"
)

var (
	// PortStatusTransitions counts every port status transition the
	// control loop records, labeled by the state entered.
	PortStatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxy_port_status_transitions_total",
		Help: "Total port status transitions, labeled by the state entered.",
	}, []string{"state"})

	// PortsListening is the number of ports currently in the
	// Listening state.
	PortsListening = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taxy_ports_listening",
		Help: "Current number of ports in the listening state.",
	})

	// EventBusDropped counts events a slow SSE subscriber missed
	// because its bounded queue was full (§4.4).
	EventBusDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taxy_event_bus_dropped_total",
		Help: "Total events dropped for subscribers that fell behind the event bus's bounded queue.",
	})

	// AcmeRenewals counts ACME renewal attempts, labeled by outcome.
	AcmeRenewals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taxy_acme_renewals_total",
		Help: "Total ACME renewal attempts, labeled by outcome (success or failure).",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(PortStatusTransitions, PortsListening, EventBusDropped, AcmeRenewals)
}

// RecordPortTransition updates PortStatusTransitions and
// PortsListening for a port moving from previous into next.
func RecordPortTransition(previous, next portmap.State) {
	PortStatusTransitions.WithLabelValues(string(next)).Inc()
	if next == portmap.StateListening && previous != portmap.StateListening {
		PortsListening.Inc()
	} else if previous == portmap.StateListening && next != portmap.StateListening {
		PortsListening.Dec()
	}
}
