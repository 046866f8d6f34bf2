package service

import "github.com/prometheus/client_golang/prometheus"

var syncsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ledger_syncs_total",
		Help: "Full sync attempts by outcome",
	},
	[]string{"outcome"},
)

const (
	syncOutcomeSuccess  = "success"
	syncOutcomeFallback = "fallback"
)

// RegisterMetrics registers the sync collectors with the default registry.
// Call once from main; load records into the collector whether or not it
// is registered, which keeps tests free of registry conflicts.
func RegisterMetrics() {
	prometheus.MustRegister(syncsTotal)
}
