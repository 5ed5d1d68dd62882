package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsStarted  prometheus.Counter
	sessionsEnded    prometheus.Counter
	meterLogsTotal   *prometheus.CounterVec
	spontaneousStops prometheus.Counter
	debitFailures    prometheus.Counter
	reservationsMade prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, prometheus.Counter, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Counter) {
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_started_total",
		Help: "Number of sessions confirmed active by the charge point",
	})
	ended := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_ended_total",
		Help: "Number of sessions finalized with a CDR",
	})
	logs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meter_logs_total",
		Help: "Meter readings processed, by outcome",
	}, []string{"outcome"})
	stops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spontaneous_stops_total",
		Help: "Stop requests raised by the cost limit check",
	})
	debits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_debit_failures_total",
		Help: "Finalization debits rejected by the ledger",
	})
	reservations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_requested_total",
		Help: "Connector reservations requested",
	})
	return started, ended, logs, stops, debits, reservations
}

func init() {
	sessionsStarted, sessionsEnded, meterLogsTotal, spontaneousStops, debitFailures, reservationsMade = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers registry metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(sessionsStarted, sessionsEnded, meterLogsTotal, spontaneousStops, debitFailures, reservationsMade)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	sessionsStarted, sessionsEnded, meterLogsTotal, spontaneousStops, debitFailures, reservationsMade = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
